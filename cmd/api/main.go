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

	"xelda/internal/ai"
	"xelda/internal/auth"
	"xelda/internal/config"
	"xelda/internal/design"
	"xelda/internal/events"
	"xelda/internal/gallery"
	"xelda/internal/media"
	"xelda/internal/server"
	"xelda/internal/storage"
)

func main() {
	cfg := config.FromEnv()

	if cfg.Auth.Secret == "" {
		log.Fatal("AUTH_SECRET cannot be empty")
	}

	ctx := context.Background()
	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}
	defer store.Close()

	var uploader media.Uploader
	var mediaFS http.Handler
	if cfg.Media.Bucket != "" && cfg.Media.Region != "" {
		uploader, err = media.NewUploader(ctx, media.Config{
			Bucket:         cfg.Media.Bucket,
			Region:         cfg.Media.Region,
			Endpoint:       cfg.Media.Endpoint,
			PublicURL:      cfg.Media.PublicURL,
			KeyPrefix:      cfg.Media.KeyPrefix,
			ForcePathStyle: cfg.Media.ForcePathStyle,
		})
		if err != nil {
			log.Fatalf("failed to init media uploader: %v", err)
		}
	} else {
		local, err := media.NewLocalUploader("")
		if err != nil {
			log.Fatalf("failed to init local media storage: %v", err)
		}
		uploader = local
		mediaFS = local.FileServer()
		log.Println("media uploader: using local temp storage (S3 config missing)")
	}

	var client ai.Client
	if strings.EqualFold(cfg.AI.Provider, "gemini") && cfg.AI.GeminiAPIKey != "" {
		gemini := ai.NewGemini(ai.GeminiConfig{
			APIKey:        cfg.AI.GeminiAPIKey,
			ImageModel:    cfg.AI.ImageModel,
			AnalysisModel: cfg.AI.AnalysisModel,
			Timeout:       time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
		})
		if imagen := ai.NewVertexImagen(ai.VertexImagenConfig{
			ProjectID:          cfg.AI.Imagen.ProjectID,
			Location:           cfg.AI.Imagen.Location,
			Model:              cfg.AI.Imagen.Model,
			APIKey:             cfg.AI.Imagen.APIKey,
			ServiceAccount:     cfg.AI.Imagen.ServiceAccount,
			ServiceAccountJSON: cfg.AI.Imagen.ServiceAccountJSON,
		}); imagen.Configured() {
			gemini.Editor = imagen
			log.Println("ai client ready: Gemini with Imagen edits")
		} else {
			log.Println("ai client ready: Gemini")
		}
		client = gemini
	} else {
		client = ai.NewCanned()
		log.Println("ai client ready: canned fallback (no GEMINI_API_KEY)")
	}

	sessions := auth.SessionManager{
		Secret:       []byte(cfg.Auth.Secret),
		CookieName:   cfg.Auth.CookieName,
		SecureCookie: cfg.Auth.SecureCookie,
	}

	eventBroker := events.NewBroker()
	manager := design.NewManager(client, store, uploader, eventBroker)
	galleryHandler := gallery.Handler{Store: store}
	designHandler := design.Handler{
		Manager:  manager,
		AI:       client,
		Profiles: galleryHandler,
	}
	authHandler := auth.Handler{Store: store, Sessions: sessions}
	authMiddleware := auth.Middleware{Store: store, Sessions: sessions}

	staticFS := http.FileServer(http.Dir("web"))
	srv := server.New(cfg.Port, authMiddleware, authHandler, designHandler, galleryHandler, eventBroker, staticFS, mediaFS)

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-shutdownChan
		log.Println("shutting down server...")
		if err := srv.Close(); err != nil {
			log.Printf("server close error: %v", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server failed: %v", err)
	}
}
