package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HistoryFilter narrows prediction listings. All set fields are combined
// with AND. Correct joins against feedback, so predictions without feedback
// are excluded whenever it is set.
type HistoryFilter struct {
	Label   string
	Correct *bool
	From    *time.Time
	To      *time.Time
}

func applyHistoryFilter(query *gorm.DB, filter HistoryFilter) *gorm.DB {
	if filter.Correct != nil {
		query = query.
			Joins("JOIN feedbacks ON feedbacks.prediction_id = predictions.id").
			Where("feedbacks.correct = ?", *filter.Correct)
	}
	if filter.Label != "" {
		query = query.Where("LOWER(predictions.pred_label) LIKE ?", "%"+strings.ToLower(filter.Label)+"%")
	}
	if filter.From != nil {
		query = query.Where("predictions.created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("predictions.created_at <= ?", *filter.To)
	}
	return query
}

// ListPredictions returns one page of predictions matching the filter,
// newest first, with feedback preloaded where present.
func ListPredictions(ctx context.Context, db *gorm.DB, filter HistoryFilter, offset, limit int) ([]Prediction, error) {
	var predictions []Prediction
	query := applyHistoryFilter(db.WithContext(ctx).Model(&Prediction{}), filter)
	if err := query.
		Preload("Feedback").
		Order("predictions.created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&predictions).Error; err != nil {
		return nil, fmt.Errorf("error listing predictions: %w", err)
	}
	return predictions, nil
}

// CountPredictions counts rows matching the filter without materializing them.
func CountPredictions(ctx context.Context, db *gorm.DB, filter HistoryFilter) (int64, error) {
	var total int64
	query := applyHistoryFilter(db.WithContext(ctx).Model(&Prediction{}), filter)
	if err := query.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("error counting predictions: %w", err)
	}
	return total, nil
}

func GetPrediction(ctx context.Context, db *gorm.DB, id uuid.UUID) (Prediction, error) {
	var prediction Prediction
	err := db.WithContext(ctx).Preload("Feedback").First(&prediction, "id = ?", id).Error
	return prediction, err
}

// CreatePrediction inserts a prediction row. Predictions are immutable once
// written.
func CreatePrediction(ctx context.Context, db *gorm.DB, prediction *Prediction) error {
	if err := db.WithContext(ctx).Create(prediction).Error; err != nil {
		return fmt.Errorf("error creating prediction: %w", err)
	}
	return nil
}

// UpsertFeedback records a user judgment for a prediction, updating the
// existing row in place (same id) when one exists. The existence check and
// the insert-or-update run in one transaction, and the write itself is a
// single ON CONFLICT statement keyed on prediction_id, so concurrent
// submissions for the same prediction cannot produce two rows. Returns
// gorm.ErrRecordNotFound when the prediction does not exist.
func UpsertFeedback(ctx context.Context, db *gorm.DB, predictionId uuid.UUID, correct bool, trueLabel *string) (Feedback, error) {
	var feedback Feedback

	err := db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		var prediction Prediction
		if err := txn.Select("id").First(&prediction, "id = ?", predictionId).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		label := sql.NullString{}
		if trueLabel != nil {
			label = sql.NullString{String: *trueLabel, Valid: true}
		}

		row := Feedback{
			Id:           uuid.New(),
			PredictionId: predictionId,
			Correct:      correct,
			TrueLabel:    label,
			CreatedAt:    now,
		}
		if err := txn.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "prediction_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"correct":    correct,
				"true_label": label,
				"created_at": now,
			}),
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("error upserting feedback: %w", err)
		}

		// Re-read to pick up the surviving id on the update path.
		return txn.Where("prediction_id = ?", predictionId).First(&feedback).Error
	})

	return feedback, err
}

// WindowSummary aggregates prediction and feedback counts for a trailing
// time window.
type WindowSummary struct {
	TotalPredictions        int64
	PredictionsWithFeedback int64
	CorrectPredictions      int64
	AvgConfidence           float64
}

func GetWindowSummary(ctx context.Context, db *gorm.DB, since time.Time) (WindowSummary, error) {
	var summary WindowSummary

	if err := db.WithContext(ctx).
		Model(&Prediction{}).
		Where("created_at >= ?", since).
		Count(&summary.TotalPredictions).Error; err != nil {
		return summary, fmt.Errorf("error counting predictions in window: %w", err)
	}

	withFeedback := db.WithContext(ctx).
		Model(&Feedback{}).
		Joins("JOIN predictions ON predictions.id = feedbacks.prediction_id").
		Where("predictions.created_at >= ?", since)
	if err := withFeedback.Count(&summary.PredictionsWithFeedback).Error; err != nil {
		return summary, fmt.Errorf("error counting feedback in window: %w", err)
	}

	correct := db.WithContext(ctx).
		Model(&Feedback{}).
		Joins("JOIN predictions ON predictions.id = feedbacks.prediction_id").
		Where("predictions.created_at >= ?", since).
		Where("feedbacks.correct = ?", true)
	if err := correct.Count(&summary.CorrectPredictions).Error; err != nil {
		return summary, fmt.Errorf("error counting correct feedback in window: %w", err)
	}

	// COALESCE keeps the empty-window average at 0.0 rather than NULL.
	if err := db.WithContext(ctx).
		Model(&Prediction{}).
		Select("COALESCE(AVG(pred_conf), 0)").
		Where("created_at >= ?", since).
		Scan(&summary.AvgConfidence).Error; err != nil {
		return summary, fmt.Errorf("error averaging confidence in window: %w", err)
	}

	return summary, nil
}

// LabelStats is one row of the per-label distribution.
type LabelStats struct {
	PredLabel     string
	Count         int64
	AvgConfidence float64
}

// GetLabelDistribution returns the topN labels by prediction count within
// the window, ties broken by label for a stable order.
func GetLabelDistribution(ctx context.Context, db *gorm.DB, since time.Time, topN int) ([]LabelStats, error) {
	var stats []LabelStats
	err := db.WithContext(ctx).
		Model(&Prediction{}).
		Select("pred_label, COUNT(*) as count, AVG(pred_conf) as avg_confidence").
		Where("created_at >= ?", since).
		Group("pred_label").
		Order("count DESC, pred_label ASC").
		Limit(topN).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("error getting label distribution: %w", err)
	}
	return stats, nil
}

// DailyCount is the prediction count for one calendar date. Dates with no
// predictions produce no row, so the series is sparse.
type DailyCount struct {
	Date  string
	Count int64
}

func GetDailyCounts(ctx context.Context, db *gorm.DB, since time.Time) ([]DailyCount, error) {
	// Postgres returns DATE() values as timestamps, which do not scan into
	// a string column, so each dialect formats the date in SQL.
	dateExpr := "DATE(created_at)"
	if db.Dialector.Name() == "postgres" {
		dateExpr = "to_char(created_at, 'YYYY-MM-DD')"
	}

	var counts []DailyCount
	err := db.WithContext(ctx).
		Model(&Prediction{}).
		Select(dateExpr+" as date, COUNT(*) as count").
		Where("created_at >= ?", since).
		Group(dateExpr).
		Order("date ASC").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("error getting daily counts: %w", err)
	}
	return counts, nil
}
