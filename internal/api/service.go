package api

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"log/slog"
	"math"
	"net/http"
	"path"
	"strings"
	"time"

	// Decoders for the upload formats the service accepts.
	_ "image/gif"
	_ "image/png"

	"github.com/Tahleel1611/Leaf-doc/internal/database"
	"github.com/Tahleel1611/Leaf-doc/internal/heatmap"
	"github.com/Tahleel1611/Leaf-doc/internal/inference"
	"github.com/Tahleel1611/Leaf-doc/internal/storage"
	"github.com/Tahleel1611/Leaf-doc/internal/tips"
	"github.com/Tahleel1611/Leaf-doc/pkg/api"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	Version = "1.0.0"

	maxUploadBytes = 20 << 20

	defaultHistoryLimit = 20
	maxHistoryLimit     = 100

	defaultStatisticsDays = 30
	maxStatisticsDays     = 365

	distributionTopN = 10
)

type Service struct {
	db         *gorm.DB
	classifier *inference.Classifier
	visualizer *heatmap.Visualizer
	objects    storage.Provider
	appName    string
}

func NewService(db *gorm.DB, classifier *inference.Classifier, visualizer *heatmap.Visualizer, objects storage.Provider, appName string) *Service {
	return &Service{
		db:         db,
		classifier: classifier,
		visualizer: visualizer,
		objects:    objects,
		appName:    appName,
	}
}

func (s *Service) AddRoutes(r chi.Router) {
	r.Get("/", RestHandler(s.Root))
	r.Get("/health", RestHandler(s.Health))
	r.Route("/api", func(r chi.Router) {
		r.Post("/predict", RestHandler(s.Predict))
		r.Post("/feedback", RestHandler(s.SubmitFeedback))
		r.Get("/history", RestHandler(s.History))
		r.Get("/statistics", RestHandler(s.Statistics))
	})
}

func (s *Service) Root(r *http.Request) (any, error) {
	return api.AppInfo{
		Name:        s.appName,
		Version:     Version,
		Description: "Plant disease detection API",
		Health:      "/health",
	}, nil
}

func (s *Service) Health(r *http.Request) (any, error) {
	return api.HealthResponse{
		Status:      "healthy",
		AppName:     s.appName,
		ModelLoaded: s.classifier.IsLoaded(),
	}, nil
}

// Predict classifies an uploaded image and stores a durable record of the
// result. Classification never fails (the classifier falls back to a stub),
// and heatmap generation is best-effort: its failure leaves heatmap_url
// absent but does not abort the request.
func (s *Service) Predict(r *http.Request) (any, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "unable to parse multipart form")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "missing file upload")
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, CodedErrorf(http.StatusBadRequest, "file must be an image")
	}

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "unable to decode image: file must be a valid image")
	}

	ctx := r.Context()

	// One UUID names the stored files and the database row.
	id := uuid.New()
	createdAt := time.Now().UTC()

	imageKey := path.Join("images", id.String()+".jpg")
	if err := s.putJPEG(ctx, imageKey, img, 95); err != nil {
		slog.Error("error storing uploaded image", "id", id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error processing image")
	}

	label, confidence := s.classifier.Classify(img)

	heatmapKey := ""
	if s.classifier.IsLoaded() {
		if overlay, ok := s.visualizer.Explain(img, inference.ClassIndex(label)); ok {
			key := path.Join("heatmaps", id.String()+".jpg")
			if err := s.putJPEG(ctx, key, overlay, 90); err != nil {
				slog.Error("error storing heatmap, continuing without it", "id", id, "error", err)
			} else {
				heatmapKey = key
			}
		}
	}

	prediction := database.Prediction{
		Id:        id,
		ImagePath: imageKey,
		PredLabel: label,
		PredConf:  confidence,
		CreatedAt: createdAt,
	}
	if heatmapKey != "" {
		prediction.HeatmapPath.String = heatmapKey
		prediction.HeatmapPath.Valid = true
	}

	if err := database.CreatePrediction(ctx, s.db, &prediction); err != nil {
		slog.Error("error saving prediction", "id", id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error processing image")
	}

	slog.Info("prediction saved", "id", id, "label", label, "confidence", confidence)

	response := api.PredictResponse{
		Id:         id,
		Class:      label,
		Confidence: confidence,
		Tips:       tips.Get(label),
		ImageUrl:   s.objects.URL(imageKey),
		CreatedAt:  createdAt,
	}
	if heatmapKey != "" {
		response.HeatmapUrl = s.objects.URL(heatmapKey)
	}
	return response, nil
}

func (s *Service) putJPEG(ctx context.Context, key string, img image.Image, quality int) error {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return err
	}
	return s.objects.PutObject(ctx, key, &buf)
}

// SubmitFeedback records a correctness judgment for a prediction. A repeat
// submission for the same prediction updates the existing feedback row.
func (s *Service) SubmitFeedback(r *http.Request) (any, error) {
	req, err := ParseRequest[api.FeedbackRequest](r)
	if err != nil {
		return nil, err
	}

	predictionId, err := uuid.Parse(req.Id)
	if err != nil {
		return nil, CodedErrorf(http.StatusNotFound, "prediction not found")
	}

	ctx := r.Context()

	if _, err := database.UpsertFeedback(ctx, s.db, predictionId, req.Correct, req.TrueLabel); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, CodedErrorf(http.StatusNotFound, "prediction not found")
		}
		slog.Error("error saving feedback", "prediction_id", predictionId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error saving feedback")
	}

	prediction, err := database.GetPrediction(ctx, s.db, predictionId)
	if err != nil {
		slog.Error("error reloading prediction", "prediction_id", predictionId, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error saving feedback")
	}

	return s.historyItem(prediction), nil
}

// Page and Limit are pointers so that an explicit "?page=0" is rejected
// rather than silently treated as absent.
type historyQuery struct {
	Page    *int   `schema:"page"`
	Limit   *int   `schema:"limit"`
	Label   string `schema:"label"`
	Correct *bool  `schema:"correct"`
	From    string `schema:"from"`
	To      string `schema:"to"`
}

// History lists predictions, newest first, with conjunctive filters and
// page/limit pagination.
func (s *Service) History(r *http.Request) (any, error) {
	query, err := ParseRequestQueryParams[historyQuery](r)
	if err != nil {
		return nil, err
	}

	page, limit := 1, defaultHistoryLimit
	if query.Page != nil {
		page = *query.Page
	}
	if query.Limit != nil {
		limit = *query.Limit
	}
	if page < 1 {
		return nil, CodedErrorf(http.StatusBadRequest, "page must be >= 1")
	}
	if limit < 1 || limit > maxHistoryLimit {
		return nil, CodedErrorf(http.StatusBadRequest, "limit must be between 1 and %d", maxHistoryLimit)
	}

	filter := database.HistoryFilter{
		Label:   query.Label,
		Correct: query.Correct,
	}
	if filter.From, err = parseTimeParam(query.From, "from"); err != nil {
		return nil, err
	}
	if filter.To, err = parseTimeParam(query.To, "to"); err != nil {
		return nil, err
	}

	ctx := r.Context()

	total, err := database.CountPredictions(ctx, s.db, filter)
	if err != nil {
		slog.Error("error counting history", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving history")
	}

	offset := (page - 1) * limit
	predictions, err := database.ListPredictions(ctx, s.db, filter, offset, limit)
	if err != nil {
		slog.Error("error listing history", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving history")
	}

	pages := int((total + int64(limit) - 1) / int64(limit))
	if pages < 1 {
		pages = 1
	}

	items := make([]api.HistoryItem, 0, len(predictions))
	for _, prediction := range predictions {
		items = append(items, s.historyItem(prediction))
	}

	return api.HistoryResponse{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: pages,
	}, nil
}

func (s *Service) historyItem(prediction database.Prediction) api.HistoryItem {
	item := api.HistoryItem{
		Id:        prediction.Id,
		ImageUrl:  s.objects.URL(prediction.ImagePath),
		PredLabel: prediction.PredLabel,
		PredConf:  prediction.PredConf,
		CreatedAt: prediction.CreatedAt,
	}
	if prediction.HeatmapPath.Valid {
		item.HeatmapUrl = s.objects.URL(prediction.HeatmapPath.String)
	}
	if prediction.Feedback != nil {
		item.Feedback = &api.Feedback{Correct: prediction.Feedback.Correct}
		if prediction.Feedback.TrueLabel.Valid {
			label := prediction.Feedback.TrueLabel.String
			item.Feedback.TrueLabel = &label
		}
	}
	return item
}

func parseTimeParam(value, name string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, CodedErrorf(http.StatusBadRequest, "invalid %s date: %q", name, value)
}

type statisticsQuery struct {
	Days *int `schema:"days"`
}

// Statistics aggregates predictions over a trailing window of whole days.
// accuracy_rate is omitted when no feedback exists in the window, while
// avg_confidence reports 0.0 for an empty window; the asymmetry is kept for
// compatibility.
func (s *Service) Statistics(r *http.Request) (any, error) {
	query, err := ParseRequestQueryParams[statisticsQuery](r)
	if err != nil {
		return nil, err
	}

	days := defaultStatisticsDays
	if query.Days != nil {
		days = *query.Days
	}
	if days < 1 || days > maxStatisticsDays {
		return nil, CodedErrorf(http.StatusBadRequest, "days must be between 1 and %d", maxStatisticsDays)
	}

	ctx := r.Context()
	endDate := time.Now().UTC()
	startDate := endDate.AddDate(0, 0, -days)

	summary, err := database.GetWindowSummary(ctx, s.db, startDate)
	if err != nil {
		slog.Error("error computing statistics summary", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error computing statistics")
	}

	distribution, err := database.GetLabelDistribution(ctx, s.db, startDate, distributionTopN)
	if err != nil {
		slog.Error("error computing label distribution", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error computing statistics")
	}

	daily, err := database.GetDailyCounts(ctx, s.db, startDate)
	if err != nil {
		slog.Error("error computing daily counts", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error computing statistics")
	}

	response := api.StatisticsResponse{
		TotalPredictions:        summary.TotalPredictions,
		PredictionsWithFeedback: summary.PredictionsWithFeedback,
		CorrectPredictions:      summary.CorrectPredictions,
		AvgConfidence:           round4(summary.AvgConfidence),
		DiseaseDistribution:     make([]api.DiseaseStats, 0, len(distribution)),
		DailyPredictions:        make([]api.TimeSeriesPoint, 0, len(daily)),
		DateRangeDays:           days,
		StartDate:               startDate,
		EndDate:                 endDate,
	}

	if summary.PredictionsWithFeedback > 0 {
		rate := float64(summary.CorrectPredictions) / float64(summary.PredictionsWithFeedback) * 100
		response.AccuracyRate = &rate
	}

	for _, row := range distribution {
		response.DiseaseDistribution = append(response.DiseaseDistribution, api.DiseaseStats{
			DiseaseName:   row.PredLabel,
			Count:         row.Count,
			AvgConfidence: round4(row.AvgConfidence),
		})
	}
	for _, row := range daily {
		response.DailyPredictions = append(response.DailyPredictions, api.TimeSeriesPoint{
			Date:  row.Date,
			Count: row.Count,
		})
	}

	return response, nil
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}
