package server

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"xelda/internal/auth"
	"xelda/internal/design"
	"xelda/internal/events"
	"xelda/internal/gallery"
)

// New constructs the HTTP server with routes and middleware. mediaFS may
// be nil when uploaded images are served from object storage directly.
func New(port string, authMiddleware auth.Middleware, authHandler auth.Handler, designHandler design.Handler, galleryHandler gallery.Handler, broker *events.Broker, staticFS, mediaFS http.Handler) *http.Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(authMiddleware.InjectUser)

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		r.Get("/styles", designHandler.ListStyles)
		r.Get("/ambiances", designHandler.ListAmbiances)

		r.Route("/gallery", func(r chi.Router) {
			r.Get("/", galleryHandler.ListPublic)
			r.Get("/{id}", galleryHandler.GetPublic)
		})
		r.Post("/designs/{id}/like", galleryHandler.Like)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", designHandler.CreateSession)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", designHandler.GetSession)
					r.Delete("/", designHandler.Reset)
					r.Post("/upload", designHandler.Upload)
					r.Post("/style", designHandler.SelectStyle)
					r.Post("/generate", designHandler.Generate)
					r.Post("/surprise", designHandler.Surprise)
					r.Post("/messages", designHandler.SendMessage)
					r.Post("/ambiance", designHandler.ChangeAmbiance)
					r.Post("/restyle", designHandler.Restyle)
					r.Post("/save", designHandler.Save)
				})
			})

			r.Get("/designs", galleryHandler.ListMine)
			r.Post("/designs/{id}/publish", galleryHandler.Publish)
			r.Delete("/designs/{id}", galleryHandler.Delete)
			r.Get("/profile/styles", galleryHandler.ProfileStyles)
			r.Post("/palette", designHandler.ExtractPalette)

			r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
				user, _ := auth.UserFromContext(r.Context())
				broker.Stream(w, r, user.ID)
			})
		})
	})

	if mediaFS != nil {
		router.Handle("/media/*", mediaFS)
	}

	// Serve the static frontend
	router.Handle("/*", staticFS)

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Long enough for the SSE stream to stay useful; generation itself
		// settles out of band.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	log.Println("server ready on", srv.Addr)
	return srv
}
