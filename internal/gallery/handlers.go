package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"xelda/internal/auth"
	"xelda/internal/design"
	"xelda/internal/storage"
)

// Handler bundles dependencies for gallery and profile endpoints.
type Handler struct {
	Store storage.Store
}

// ListPublic handles GET /api/gallery?style=&room=&sort=.
func (h Handler) ListPublic(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListPublished(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	filter := Filter{
		Style: strings.TrimSpace(r.URL.Query().Get("style")),
		Room:  strings.TrimSpace(r.URL.Query().Get("room")),
		Sort:  strings.TrimSpace(r.URL.Query().Get("sort")),
	}
	respondJSON(w, http.StatusOK, FilterAndSort(records, filter))
}

// GetPublic handles GET /api/gallery/{id} and bumps the view counter.
func (h Handler) GetPublic(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	record, err := h.Store.GetDesign(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !record.Published {
		http.Error(w, "design not found", http.StatusNotFound)
		return
	}

	if err := h.Store.AddView(r.Context(), id); err != nil {
		log.Printf("view count bump failed for %s: %v", id, err)
	} else {
		record.ViewCount++
	}
	respondJSON(w, http.StatusOK, record)
}

// ListMine handles GET /api/designs.
func (h Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "connexion requise", http.StatusUnauthorized)
		return
	}

	records, err := h.Store.ListDesigns(r.Context(), user.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, records)
}

// Publish handles POST /api/designs/{id}/publish. Only the owner may
// publish.
func (h Handler) Publish(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "connexion requise", http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")
	record, err := h.Store.GetDesign(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if record.OwnerID != user.ID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if err := h.Store.PublishDesign(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	record.Published = true
	respondJSON(w, http.StatusOK, record)
}

// Like handles POST /api/designs/{id}/like.
func (h Handler) Like(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Store.LikeDesign(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/designs/{id}.
func (h Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "connexion requise", http.StatusUnauthorized)
		return
	}

	id := chi.URLParam(r, "id")
	record, err := h.Store.GetDesign(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if record.OwnerID != user.ID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if err := h.Store.DeleteDesign(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ProfileStyles handles GET /api/profile/styles: the caller's style usage
// histogram plus dominant styles.
func (h Handler) ProfileStyles(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "connexion requise", http.StatusUnauthorized)
		return
	}

	records, err := h.Store.ListDesigns(r.Context(), user.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"preferences":     ComputeStyleHistogram(records),
		"dominant_styles": DominantStyles(records),
		"total_designs":   len(records),
	})
}

// StyleProfile implements design.ProfileSource for the surprise selector.
func (h Handler) StyleProfile(ctx context.Context, ownerID string) (design.StyleProfile, error) {
	records, err := h.Store.ListDesigns(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return ComputeStyleHistogram(records), nil
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "design not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
