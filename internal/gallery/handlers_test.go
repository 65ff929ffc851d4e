package gallery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"xelda/internal/auth"
	"xelda/internal/storage"
)

func galleryRouter(h Handler) *chi.Mux {
	router := chi.NewRouter()
	router.Get("/api/gallery", h.ListPublic)
	router.Get("/api/gallery/{id}", h.GetPublic)
	router.Get("/api/designs", h.ListMine)
	router.Post("/api/designs/{id}/publish", h.Publish)
	router.Post("/api/designs/{id}/like", h.Like)
	router.Get("/api/profile/styles", h.ProfileStyles)
	return router
}

func seedDesigns(t *testing.T, store storage.Store) (mine, other storage.DesignRecord) {
	t.Helper()
	ctx := context.Background()

	mine, err := store.SaveDesign(ctx, storage.DesignRecord{OwnerID: "u1", Name: "Salon", StyleID: "Modern+Cozy"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	other, err = store.SaveDesign(ctx, storage.DesignRecord{OwnerID: "u2", Name: "Bureau", StyleID: "Industrial"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return mine, other
}

func asUser(req *http.Request, id string) *http.Request {
	return req.WithContext(auth.WithUser(req.Context(), storage.User{ID: id}))
}

func TestListPublicOnlyShowsPublished(t *testing.T) {
	store := storage.NewInMemoryStore()
	mine, _ := seedDesigns(t, store)
	if err := store.PublishDesign(context.Background(), mine.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}
	router := galleryRouter(Handler{Store: store})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/gallery", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var records []storage.DesignRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 || records[0].ID != mine.ID {
		t.Fatalf("records = %+v", records)
	}
}

func TestGetPublicBumpsViewCount(t *testing.T) {
	store := storage.NewInMemoryStore()
	mine, other := seedDesigns(t, store)
	if err := store.PublishDesign(context.Background(), mine.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}
	router := galleryRouter(Handler{Store: store})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/gallery/"+mine.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	got, _ := store.GetDesign(context.Background(), mine.ID)
	if got.ViewCount != 1 {
		t.Fatalf("view count = %d", got.ViewCount)
	}

	// Unpublished designs stay hidden.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/gallery/"+other.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unpublished status = %d", rec.Code)
	}
}

func TestPublishRequiresOwnership(t *testing.T) {
	store := storage.NewInMemoryStore()
	mine, _ := seedDesigns(t, store)
	router := galleryRouter(Handler{Store: store})

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/designs/"+mine.ID+"/publish", nil), "u2")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign publish status = %d", rec.Code)
	}

	req = asUser(httptest.NewRequest(http.MethodPost, "/api/designs/"+mine.ID+"/publish", nil), "u1")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner publish status = %d", rec.Code)
	}

	got, _ := store.GetDesign(context.Background(), mine.ID)
	if !got.Published {
		t.Fatal("design not published")
	}
}

func TestLikeIncrementsCounter(t *testing.T) {
	store := storage.NewInMemoryStore()
	mine, _ := seedDesigns(t, store)
	router := galleryRouter(Handler{Store: store})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/designs/"+mine.ID+"/like", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}

	got, _ := store.GetDesign(context.Background(), mine.ID)
	if got.LikeCount != 1 {
		t.Fatalf("like count = %d", got.LikeCount)
	}
}

func TestProfileStylesHistogram(t *testing.T) {
	store := storage.NewInMemoryStore()
	seedDesigns(t, store)
	router := galleryRouter(Handler{Store: store})

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/profile/styles", nil), "u1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var payload struct {
		Preferences   map[string]int `json:"preferences"`
		TotalDesigns  int            `json:"total_designs"`
		DominantOrder []string       `json:"dominant_styles"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.TotalDesigns != 1 {
		t.Fatalf("total = %d", payload.TotalDesigns)
	}
	if payload.Preferences["Modern"] != 1 || payload.Preferences["Cozy"] != 1 {
		t.Fatalf("preferences = %v", payload.Preferences)
	}
}
