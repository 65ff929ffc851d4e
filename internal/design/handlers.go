package design

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"xelda/internal/ai"
	"xelda/internal/auth"
)

// ProfileSource supplies a user's historical style preferences for the
// surprise selector.
type ProfileSource interface {
	StyleProfile(ctx context.Context, ownerID string) (StyleProfile, error)
}

// Handler bundles dependencies for session endpoints.
type Handler struct {
	Manager  *Manager
	AI       ai.Client
	Profiles ProfileSource
}

// CreateSession handles POST /api/sessions.
func (h Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		http.Error(w, "connexion requise", http.StatusUnauthorized)
		return
	}
	snap := h.Manager.Create(user.ID)
	respondJSON(w, http.StatusCreated, snap)
}

// GetSession handles GET /api/sessions/{id}.
func (h Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	snap, err := h.Manager.Get(chi.URLParam(r, "id"), user.ID)
	if err != nil {
		writeTransitionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// Upload handles POST /api/sessions/{id}/upload with a multipart "photo".
func (h Handler) Upload(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	file, err := readImageFile(r, "photo")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if file == nil {
		http.Error(w, "photo file is required", http.StatusBadRequest)
		return
	}

	snap, err := h.Manager.UploadOriginal(chi.URLParam(r, "id"), user.ID, *file)
	if err != nil {
		writeTransitionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// SelectStyle handles POST /api/sessions/{id}/style.
func (h Handler) SelectStyle(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req struct {
		StyleID string `json:"style_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	snap, err := h.Manager.SelectStyle(chi.URLParam(r, "id"), user.ID, strings.TrimSpace(req.StyleID))
	if err != nil {
		writeTransitionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// Generate handles POST /api/sessions/{id}/generate. Accepts an optional
// multipart "inspiration" image or a JSON body with a prompt override.
func (h Handler) Generate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var (
		inspiration    *UploadedFile
		promptOverride string
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, err := readImageFile(r, "inspiration")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		inspiration = file
		promptOverride = strings.TrimSpace(r.FormValue("prompt"))
	} else if r.ContentLength > 0 {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		promptOverride = strings.TrimSpace(req.Prompt)
	}

	snap, err := h.Manager.Generate(r.Context(), chi.URLParam(r, "id"), user.ID, inspiration, promptOverride)
	if err != nil {
		writeTransitionError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, snap)
}

// Surprise handles POST /api/sessions/{id}/surprise.
func (h Handler) Surprise(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var profile StyleProfile
	if h.Profiles != nil {
		p, err := h.Profiles.StyleProfile(r.Context(), user.ID)
		if err != nil {
			log.Printf("style profile lookup failed: %v", err)
		} else {
			profile = p
		}
	}

	snap, err := h.Manager.Surprise(r.Context(), chi.URLParam(r, "id"), user.ID, profile)
	if err != nil {
		writeTransitionError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, snap)
}

// SendMessage handles POST /api/sessions/{id}/messages.
func (h Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	snap, err := h.Manager.SendMessage(chi.URLParam(r, "id"), user.ID, req.Text)
	if err != nil {
		writeTransitionError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, snap)
}

// ChangeAmbiance handles POST /api/sessions/{id}/ambiance.
func (h Handler) ChangeAmbiance(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req struct {
		Preset string `json:"preset"`
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	snap, err := h.Manager.ChangeAmbiance(chi.URLParam(r, "id"), user.ID, strings.TrimSpace(req.Preset), req.Prompt)
	if err != nil {
		writeTransitionError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, snap)
}

// Restyle handles POST /api/sessions/{id}/restyle.
func (h Handler) Restyle(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	snap, err := h.Manager.TryAnotherStyle(chi.URLParam(r, "id"), user.ID)
	if err != nil {
		writeTransitionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// Reset handles DELETE /api/sessions/{id}.
func (h Handler) Reset(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	snap, err := h.Manager.Reset(chi.URLParam(r, "id"), user.ID)
	if err != nil {
		writeTransitionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// Save handles POST /api/sessions/{id}/save.
func (h Handler) Save(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())

	var req struct {
		Name     string `json:"name"`
		RoomType string `json:"room_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	record, err := h.Manager.Save(r.Context(), chi.URLParam(r, "id"), user.ID, req.Name, req.RoomType)
	if err != nil {
		writeTransitionError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, record)
}

// ListStyles handles GET /api/styles.
func (h Handler) ListStyles(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, Catalog())
}

// ListAmbiances handles GET /api/ambiances.
func (h Handler) ListAmbiances(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, Ambiances())
}

// ExtractPalette handles POST /api/palette with a multipart "photo".
// Extraction is best effort; a failed analysis still answers 200 with the
// fallback palette.
func (h Handler) ExtractPalette(w http.ResponseWriter, r *http.Request) {
	file, err := readImageFile(r, "photo")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if file == nil {
		http.Error(w, "photo file is required", http.StatusBadRequest)
		return
	}

	palette, err := h.AI.ExtractPalette(r.Context(), file.Data, file.MIMEType)
	if err != nil {
		log.Printf("palette extraction degraded: %v", err)
	}
	respondJSON(w, http.StatusOK, palette)
}

func readImageFile(r *http.Request, field string) (*UploadedFile, error) {
	const maxFormMemory = ai.MaxImageBytes + (1 << 20)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return nil, fmt.Errorf("invalid multipart payload: %w", err)
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not read image: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, ai.MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > ai.MaxImageBytes {
		return nil, fmt.Errorf("image is too large (max %d MB)", ai.MaxImageBytes/(1024*1024))
	}
	if len(data) == 0 {
		return nil, nil
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	return &UploadedFile{
		Filename: header.Filename,
		MIMEType: contentType,
		Data:     data,
	}, nil
}

func writeTransitionError(w http.ResponseWriter, err error) {
	var (
		validation *ValidationError
		quota      *QuotaExceededError
		conflict   *ConflictError
	)
	switch {
	case errors.As(err, &validation):
		respondError(w, http.StatusBadRequest, validation.Message)
	case errors.As(err, &quota):
		respondJSON(w, http.StatusPaymentRequired, map[string]any{
			"error": "quota de générations atteint, passez à un plan supérieur",
			"used":  quota.Used,
			"limit": quota.Limit,
		})
	case errors.As(err, &conflict):
		respondError(w, http.StatusConflict, conflict.Error())
	case errors.Is(err, ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session not found")
	default:
		log.Printf("session operation failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
