package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Tahleel1611/Leaf-doc/cmd"
	"github.com/Tahleel1611/Leaf-doc/internal/api"
	"github.com/Tahleel1611/Leaf-doc/internal/database"
	"github.com/Tahleel1611/Leaf-doc/internal/heatmap"
	"github.com/Tahleel1611/Leaf-doc/internal/inference"
	"github.com/Tahleel1611/Leaf-doc/internal/storage"
	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type ServerConfig struct {
	AppName     string `env:"APP_NAME" envDefault:"LeafDoc"`
	APIPort     string `env:"API_PORT" envDefault:"8000"`
	DatabaseURL string `env:"DATABASE_URL" envDefault:"leafdoc.db"`
	CORSOrigins string `env:"CORS_ORIGINS" envDefault:"*"`

	ModelPath        string `env:"MODEL_PATH" envDefault:"models/leafdoc_mobilev3.onnx"`
	OnnxRuntimeDylib string `env:"ONNX_RUNTIME_DYLIB" envDefault:""`

	StorageDir   string `env:"STORAGE_DIR" envDefault:"storage"`
	StaticPrefix string `env:"STATIC_PREFIX" envDefault:"/static"`

	// When S3Bucket is set images go to S3/MinIO instead of StorageDir.
	S3Bucket          string `env:"S3_BUCKET" envDefault:""`
	S3EndpointURL     string `env:"S3_ENDPOINT_URL" envDefault:""`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" envDefault:""`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" envDefault:""`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`
}

func main() {
	log.Println("Starting LeafDoc API...")

	cmd.LoadEnvFile()

	var cfg ServerConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	var objects storage.Provider
	var local *storage.LocalProvider
	if cfg.S3Bucket != "" {
		objects, err = storage.NewS3Provider(context.Background(), &storage.S3ProviderConfig{
			S3EndpointURL:     cfg.S3EndpointURL,
			S3AccessKeyID:     cfg.S3AccessKeyID,
			S3SecretAccessKey: cfg.S3SecretAccessKey,
			S3Region:          cfg.S3Region,
			Bucket:            cfg.S3Bucket,
		})
		if err != nil {
			log.Fatalf("Failed to create S3 storage provider: %v", err)
		}
	} else {
		local, err = storage.NewLocalProvider(cfg.StorageDir, cfg.StaticPrefix)
		if err != nil {
			log.Fatalf("Failed to create local storage provider: %v", err)
		}
		objects = local
	}

	classifier := inference.NewClassifier(cfg.ModelPath, cfg.OnnxRuntimeDylib)
	if classifier.Load() {
		log.Println("Model loaded successfully")
	} else {
		log.Println("Model not loaded - using stub predictions")
	}
	visualizer := heatmap.New(classifier)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   splitOrigins(cfg.CORSOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: cfg.CORSOrigins != "*",
	}))

	service := api.NewService(db, classifier, visualizer, objects, cfg.AppName)
	service.AddRoutes(r)

	if local != nil {
		prefix := strings.TrimSuffix(cfg.StaticPrefix, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(http.Dir(local.Root()))))
	}

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: r,
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("API server listening on port %s", cfg.APIPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
	}

	log.Println("Server stopped.")
}

func splitOrigins(origins string) []string {
	if origins == "*" {
		return []string{"*"}
	}
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
