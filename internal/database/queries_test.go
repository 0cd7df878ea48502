package database_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/Tahleel1611/Leaf-doc/internal/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func createDB(t *testing.T, create ...any) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, database.GetMigrator(db).Migrate())

	for _, c := range create {
		require.NoError(t, db.Create(c).Error)
	}

	return db
}

func prediction(label string, conf float64, age time.Duration) *database.Prediction {
	id := uuid.New()
	return &database.Prediction{
		Id:        id,
		ImagePath: "images/" + id.String() + ".jpg",
		PredLabel: label,
		PredConf:  conf,
		CreatedAt: time.Now().UTC().Add(-age),
	}
}

func TestUpsertFeedbackCreatesThenUpdatesInPlace(t *testing.T) {
	pred := prediction("apple_scab", 0.9, 0)
	db := createDB(t, pred)
	ctx := context.Background()

	first, err := database.UpsertFeedback(ctx, db, pred.Id, true, nil)
	require.NoError(t, err)
	assert.True(t, first.Correct)
	assert.False(t, first.TrueLabel.Valid)

	trueLabel := "apple_black_rot"
	second, err := database.UpsertFeedback(ctx, db, pred.Id, false, &trueLabel)
	require.NoError(t, err)

	// Second submission wins, id is preserved, timestamp refreshed.
	assert.Equal(t, first.Id, second.Id)
	assert.False(t, second.Correct)
	assert.Equal(t, "apple_black_rot", second.TrueLabel.String)
	assert.False(t, second.CreatedAt.Before(first.CreatedAt))

	var count int64
	require.NoError(t, db.Model(&database.Feedback{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpsertFeedbackUnknownPrediction(t *testing.T) {
	db := createDB(t)

	_, err := database.UpsertFeedback(context.Background(), db, uuid.New(), true, nil)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPaginationTotality(t *testing.T) {
	var seed []any
	for i := 0; i < 25; i++ {
		seed = append(seed, prediction("apple_scab", 0.8, time.Duration(i)*time.Minute))
	}
	db := createDB(t, seed...)
	ctx := context.Background()

	filter := database.HistoryFilter{}
	total, err := database.CountPredictions(ctx, db, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)

	limit := 10
	var collected int
	var previous *time.Time
	for page := 1; ; page++ {
		items, err := database.ListPredictions(ctx, db, filter, (page-1)*limit, limit)
		require.NoError(t, err)
		if len(items) == 0 {
			break
		}
		collected += len(items)

		// Newest first, across page boundaries too.
		for i := range items {
			if previous != nil {
				assert.False(t, items[i].CreatedAt.After(*previous))
			}
			previous = &items[i].CreatedAt
		}
	}
	assert.Equal(t, int(total), collected)
}

func TestHistoryFilterLabel(t *testing.T) {
	db := createDB(t,
		prediction("apple_scab", 0.8, time.Minute),
		prediction("apple_healthy", 0.9, 2*time.Minute),
		prediction("tomato_leaf_mold", 0.7, 3*time.Minute),
	)
	ctx := context.Background()

	filter := database.HistoryFilter{Label: "APPLE"}
	total, err := database.CountPredictions(ctx, db, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	items, err := database.ListPredictions(ctx, db, filter, 0, 20)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Contains(t, item.PredLabel, "apple")
	}
}

func TestHistoryFilterCorrectExcludesMissingFeedback(t *testing.T) {
	correct := prediction("apple_scab", 0.8, time.Minute)
	wrong := prediction("grape_esca", 0.9, 2*time.Minute)
	noFeedback := prediction("corn_common_rust", 0.7, 3*time.Minute)
	db := createDB(t, correct, wrong, noFeedback)
	ctx := context.Background()

	_, err := database.UpsertFeedback(ctx, db, correct.Id, true, nil)
	require.NoError(t, err)
	label := "grape_black_rot"
	_, err = database.UpsertFeedback(ctx, db, wrong.Id, false, &label)
	require.NoError(t, err)

	isCorrect := true
	items, err := database.ListPredictions(ctx, db, database.HistoryFilter{Correct: &isCorrect}, 0, 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, correct.Id, items[0].Id)

	isCorrect = false
	items, err = database.ListPredictions(ctx, db, database.HistoryFilter{Correct: &isCorrect}, 0, 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, wrong.Id, items[0].Id)
}

func TestHistoryFilterTimeWindow(t *testing.T) {
	recent := prediction("apple_scab", 0.8, time.Hour)
	old := prediction("apple_scab", 0.8, 72*time.Hour)
	db := createDB(t, recent, old)
	ctx := context.Background()

	from := time.Now().UTC().Add(-24 * time.Hour)
	items, err := database.ListPredictions(ctx, db, database.HistoryFilter{From: &from}, 0, 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, recent.Id, items[0].Id)

	to := time.Now().UTC().Add(-24 * time.Hour)
	items, err = database.ListPredictions(ctx, db, database.HistoryFilter{To: &to}, 0, 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, old.Id, items[0].Id)
}

func TestListPreloadsFeedback(t *testing.T) {
	pred := prediction("apple_scab", 0.8, time.Minute)
	bare := prediction("grape_esca", 0.9, 2*time.Minute)
	db := createDB(t, pred, bare)
	ctx := context.Background()

	_, err := database.UpsertFeedback(ctx, db, pred.Id, true, nil)
	require.NoError(t, err)

	items, err := database.ListPredictions(ctx, db, database.HistoryFilter{}, 0, 20)
	require.NoError(t, err)
	require.Len(t, items, 2)

	byId := map[uuid.UUID]*database.Feedback{}
	for _, item := range items {
		byId[item.Id] = item.Feedback
	}
	assert.NotNil(t, byId[pred.Id])
	assert.Nil(t, byId[bare.Id])
}

func TestWindowSummary(t *testing.T) {
	a := prediction("apple_scab", 0.8, time.Hour)
	b := prediction("grape_esca", 0.6, 2*time.Hour)
	outside := prediction("corn_common_rust", 0.99, 100*24*time.Hour)
	db := createDB(t, a, b, outside)
	ctx := context.Background()

	_, err := database.UpsertFeedback(ctx, db, a.Id, true, nil)
	require.NoError(t, err)
	label := "grape_black_rot"
	_, err = database.UpsertFeedback(ctx, db, b.Id, false, &label)
	require.NoError(t, err)

	since := time.Now().UTC().AddDate(0, 0, -30)
	summary, err := database.GetWindowSummary(ctx, db, since)
	require.NoError(t, err)

	assert.Equal(t, int64(2), summary.TotalPredictions)
	assert.Equal(t, int64(2), summary.PredictionsWithFeedback)
	assert.Equal(t, int64(1), summary.CorrectPredictions)
	assert.InDelta(t, 0.7, summary.AvgConfidence, 1e-9)
}

func TestWindowSummaryEmptyWindow(t *testing.T) {
	db := createDB(t, prediction("apple_scab", 0.8, 100*24*time.Hour))

	since := time.Now().UTC().AddDate(0, 0, -7)
	summary, err := database.GetWindowSummary(context.Background(), db, since)
	require.NoError(t, err)

	assert.Equal(t, int64(0), summary.TotalPredictions)
	assert.Equal(t, int64(0), summary.PredictionsWithFeedback)
	assert.Equal(t, 0.0, summary.AvgConfidence)
}

func TestLabelDistribution(t *testing.T) {
	db := createDB(t,
		prediction("apple_scab", 0.8, time.Hour),
		prediction("apple_scab", 0.6, 2*time.Hour),
		prediction("grape_esca", 0.9, 3*time.Hour),
	)

	since := time.Now().UTC().AddDate(0, 0, -30)
	stats, err := database.GetLabelDistribution(context.Background(), db, since, 10)
	require.NoError(t, err)

	require.Len(t, stats, 2)
	assert.Equal(t, "apple_scab", stats[0].PredLabel)
	assert.Equal(t, int64(2), stats[0].Count)
	assert.InDelta(t, 0.7, stats[0].AvgConfidence, 1e-9)
	assert.Equal(t, "grape_esca", stats[1].PredLabel)
}

func TestLabelDistributionTopN(t *testing.T) {
	var seed []any
	labels := []string{"a", "b", "c"}
	for i, label := range labels {
		for j := 0; j <= i; j++ {
			seed = append(seed, prediction(label, 0.5, time.Hour))
		}
	}
	db := createDB(t, seed...)

	since := time.Now().UTC().AddDate(0, 0, -1)
	stats, err := database.GetLabelDistribution(context.Background(), db, since, 2)
	require.NoError(t, err)

	require.Len(t, stats, 2)
	assert.Equal(t, "c", stats[0].PredLabel)
	assert.Equal(t, "b", stats[1].PredLabel)
}

func TestDailyCountsSparseAscending(t *testing.T) {
	db := createDB(t,
		prediction("apple_scab", 0.8, 0),
		prediction("apple_scab", 0.8, time.Minute),
		prediction("grape_esca", 0.9, 5*24*time.Hour),
	)

	since := time.Now().UTC().AddDate(0, 0, -30)
	counts, err := database.GetDailyCounts(context.Background(), db, since)
	require.NoError(t, err)

	// Two dates with rows; empty days are omitted.
	require.Len(t, counts, 2)
	assert.Less(t, counts[0].Date, counts[1].Date)
	assert.Equal(t, int64(1), counts[0].Count)
	assert.Equal(t, int64(2), counts[1].Count)

	// Dates come back as plain YYYY-MM-DD strings on every dialect.
	for _, point := range counts {
		_, err := time.Parse("2006-01-02", point.Date)
		assert.NoError(t, err, "date %q", point.Date)
	}
}

func TestCreatePredictionPersistsHeatmapPath(t *testing.T) {
	db := createDB(t)
	ctx := context.Background()

	pred := prediction("apple_scab", 0.8, 0)
	pred.HeatmapPath = sql.NullString{String: "heatmaps/x.jpg", Valid: true}
	require.NoError(t, database.CreatePrediction(ctx, db, pred))

	got, err := database.GetPrediction(ctx, db, pred.Id)
	require.NoError(t, err)
	assert.True(t, got.HeatmapPath.Valid)
	assert.Equal(t, "heatmaps/x.jpg", got.HeatmapPath.String)
}
