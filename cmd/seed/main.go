// Seeds the database with sample predictions and feedback spread over the
// last 30 days, for demoing the history and statistics endpoints.
package main

import (
	"context"
	"database/sql"
	"log"
	"math/rand"
	"time"

	"github.com/Tahleel1611/Leaf-doc/cmd"
	"github.com/Tahleel1611/Leaf-doc/internal/database"
	"github.com/Tahleel1611/Leaf-doc/internal/inference"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
)

type SeedConfig struct {
	DatabaseURL    string `env:"DATABASE_URL" envDefault:"leafdoc.db"`
	NumPredictions int    `env:"NUM_PREDICTIONS" envDefault:"10"`
}

func main() {
	cmd.LoadEnvFile()

	var cfg SeedConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	now := time.Now().UTC()

	log.Printf("Creating %d sample predictions...", cfg.NumPredictions)

	predictions := make([]database.Prediction, 0, cfg.NumPredictions)
	for i := 0; i < cfg.NumPredictions; i++ {
		createdAt := now.AddDate(0, 0, -rand.Intn(31))
		prediction := database.Prediction{
			Id:        uuid.New(),
			ImagePath: "images/sample.jpg",
			PredLabel: inference.Classes[rand.Intn(len(inference.Classes))],
			PredConf:  0.7 + rand.Float64()*0.29,
			CreatedAt: createdAt,
		}
		if rand.Float64() > 0.3 {
			prediction.HeatmapPath = sql.NullString{String: "heatmaps/sample.jpg", Valid: true}
		}

		if err := database.CreatePrediction(ctx, db, &prediction); err != nil {
			log.Fatalf("Failed to create prediction: %v", err)
		}
		predictions = append(predictions, prediction)
	}

	numFeedback := cfg.NumPredictions / 3
	log.Printf("Adding feedback to %d predictions...", numFeedback)

	rand.Shuffle(len(predictions), func(i, j int) {
		predictions[i], predictions[j] = predictions[j], predictions[i]
	})
	for _, prediction := range predictions[:numFeedback] {
		correct := rand.Float64() > 0.3
		var trueLabel *string
		if !correct {
			label := inference.Classes[rand.Intn(len(inference.Classes))]
			trueLabel = &label
		}

		if _, err := database.UpsertFeedback(ctx, db, prediction.Id, correct, trueLabel); err != nil {
			log.Fatalf("Failed to create feedback: %v", err)
		}
	}

	log.Println("Database seeded successfully")
}
