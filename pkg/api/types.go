package api

import (
	"time"

	"github.com/google/uuid"
)

// PredictResponse is returned by POST /api/predict.
type PredictResponse struct {
	Id         uuid.UUID `json:"id"`
	Class      string    `json:"class"`
	Confidence float64   `json:"confidence"`
	Tips       string    `json:"tips"`
	HeatmapUrl string    `json:"heatmap_url,omitempty"`
	ImageUrl   string    `json:"image_url"`
	CreatedAt  time.Time `json:"created_at"`
}

type FeedbackRequest struct {
	Id        string  `json:"id"`
	Correct   bool    `json:"correct"`
	TrueLabel *string `json:"true_label,omitempty"`
}

// Feedback is the user judgment embedded in history items.
type Feedback struct {
	Correct   bool    `json:"correct"`
	TrueLabel *string `json:"true_label,omitempty"`
}

type HistoryItem struct {
	Id         uuid.UUID `json:"id"`
	ImageUrl   string    `json:"image_url"`
	PredLabel  string    `json:"pred_label"`
	PredConf   float64   `json:"pred_conf"`
	HeatmapUrl string    `json:"heatmap_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	Feedback   *Feedback `json:"feedback,omitempty"`
}

type HistoryResponse struct {
	Items []HistoryItem `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
	Pages int           `json:"pages"`
}

type DiseaseStats struct {
	DiseaseName   string  `json:"disease_name"`
	Count         int64   `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
}

type TimeSeriesPoint struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// StatisticsResponse is returned by GET /api/statistics. AccuracyRate is
// omitted entirely when no feedback exists in the window, while
// AvgConfidence reports 0.0 for an empty window. Both defaults are kept
// as-is for compatibility with existing clients.
type StatisticsResponse struct {
	TotalPredictions        int64             `json:"total_predictions"`
	PredictionsWithFeedback int64             `json:"predictions_with_feedback"`
	CorrectPredictions      int64             `json:"correct_predictions"`
	AccuracyRate            *float64          `json:"accuracy_rate,omitempty"`
	AvgConfidence           float64           `json:"avg_confidence"`
	DiseaseDistribution     []DiseaseStats    `json:"disease_distribution"`
	DailyPredictions        []TimeSeriesPoint `json:"daily_predictions"`
	DateRangeDays           int               `json:"date_range_days"`
	StartDate               time.Time         `json:"start_date"`
	EndDate                 time.Time         `json:"end_date"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	AppName     string `json:"app_name"`
	ModelLoaded bool   `json:"model_loaded"`
}

type AppInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Health      string `json:"health"`
}
