package design

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"xelda/internal/ai"
	"xelda/internal/events"
	"xelda/internal/media"
	"xelda/internal/storage"
)

// Status is the lifecycle state of a design session.
type Status string

const (
	StatusIdle                Status = "idle"
	StatusAwaitingStyle       Status = "awaiting_style"
	StatusAwaitingInspiration Status = "awaiting_inspiration"
	StatusGenerating          Status = "generating"
	StatusAnalyzing           Status = "analyzing"
	StatusReady               Status = "ready"
	StatusRefining            Status = "refining"
	StatusChangingAmbiance    Status = "changing_ambiance"
	StatusFailed              Status = "failed"
)

// User-facing chat copy.
const (
	chatWelcome      = "Votre design est prêt ! Vous pouvez maintenant l'affiner. Demandez-moi ce que vous voulez changer."
	chatRefined      = "Voici le design mis à jour. D'autres modifications ?"
	chatRefineFailed = "Désolé, je n'ai pas pu appliquer cette modification. Veuillez réessayer."
	errGeneration    = "Une erreur est survenue lors de la génération. Veuillez réessayer."
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// UploadedFile is an image received from the client.
type UploadedFile struct {
	Filename string
	MIMEType string
	Data     []byte
}

func (f *UploadedFile) validate() error {
	if f == nil || len(f.Data) == 0 {
		return &ValidationError{Message: "image file is required"}
	}
	if len(f.Data) > ai.MaxImageBytes {
		return &ValidationError{Message: fmt.Sprintf("image exceeds the %d MB limit", ai.MaxImageBytes/(1024*1024))}
	}
	if !allowedImageTypes[strings.ToLower(strings.TrimSpace(f.MIMEType))] {
		return &ValidationError{Message: "unsupported image type, use JPEG, PNG or WebP"}
	}
	return nil
}

// session is the mutable aggregate. Owned by the Manager; all access goes
// through the Manager mutex.
type session struct {
	id      string
	ownerID string
	status  Status
	// epoch invalidates in-flight continuations after a reset or restyle.
	epoch int

	originalFile    *UploadedFile
	inspirationFile *UploadedFile
	selectedStyle   *Style

	generatedImage []byte
	generatedMIME  string
	modelUsed      string
	generationTime time.Duration
	ambiance       string

	chatHistory     []storage.ChatMessage
	furnitureItems  []storage.FurnitureItem
	recommendations []string
	room            ai.RoomAnalysis

	lastError string
	createdAt time.Time
	updatedAt time.Time
}

// Snapshot is the read-only JSON view of a session.
type Snapshot struct {
	ID              string                  `json:"id"`
	OwnerID         string                  `json:"owner_id"`
	Status          Status                  `json:"status"`
	Style           *Style                  `json:"style,omitempty"`
	Ambiance        string                  `json:"ambiance,omitempty"`
	HasOriginal     bool                    `json:"has_original"`
	GeneratedImage  string                  `json:"generated_image,omitempty"`
	ModelUsed       string                  `json:"model_used,omitempty"`
	GenerationMs    int64                   `json:"generation_time_ms,omitempty"`
	ChatHistory     []storage.ChatMessage   `json:"chat_history"`
	FurnitureItems  []storage.FurnitureItem `json:"furniture_items"`
	Recommendations []string                `json:"recommendations,omitempty"`
	Room            *ai.RoomAnalysis        `json:"room,omitempty"`
	Error           string                  `json:"error,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// Manager owns the session registry and runs every state transition.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session

	client   ai.Client
	store    storage.Store
	uploader media.Uploader
	broker   *events.Broker
	rng      *rand.Rand
	timeout  time.Duration
	now      func() time.Time
}

// NewManager wires a session manager.
func NewManager(client ai.Client, store storage.Store, uploader media.Uploader, broker *events.Broker) *Manager {
	return &Manager{
		sessions: make(map[string]*session),
		client:   client,
		store:    store,
		uploader: uploader,
		broker:   broker,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		timeout:  2 * time.Minute,
		now:      time.Now,
	}
}

// Create starts an empty session for the owner.
func (m *Manager) Create(ownerID string) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	s := &session{
		id:        uuid.NewString(),
		ownerID:   ownerID,
		status:    StatusIdle,
		createdAt: now,
		updatedAt: now,
	}
	m.sessions[s.id] = s
	return m.snapshot(s)
}

// Get returns the current view of a session.
func (m *Manager) Get(id, ownerID string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id, ownerID)
	if err != nil {
		return Snapshot{}, err
	}
	return m.snapshot(s), nil
}

// UploadOriginal attaches the room photo and moves the session to style
// selection.
func (m *Manager) UploadOriginal(id, ownerID string, file UploadedFile) (Snapshot, error) {
	if err := file.validate(); err != nil {
		return Snapshot{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id, ownerID)
	if err != nil {
		return Snapshot{}, err
	}
	if s.status != StatusIdle && s.status != StatusAwaitingStyle {
		return Snapshot{}, &ConflictError{Status: s.status}
	}

	s.originalFile = &file
	s.status = StatusAwaitingStyle
	s.lastError = ""
	s.updatedAt = m.now()
	m.publish(s)
	return m.snapshot(s), nil
}

// SelectStyle records the decorating style. Requires an uploaded photo.
func (m *Manager) SelectStyle(id, ownerID, styleID string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id, ownerID)
	if err != nil {
		return Snapshot{}, err
	}
	if s.originalFile == nil {
		return Snapshot{}, &ValidationError{Message: "upload a room photo before choosing a style"}
	}
	if s.status != StatusAwaitingStyle && s.status != StatusAwaitingInspiration {
		return Snapshot{}, &ConflictError{Status: s.status}
	}

	style, ok := StyleByID(styleID)
	if !ok {
		return Snapshot{}, &ValidationError{Message: fmt.Sprintf("unknown style %q", styleID)}
	}

	s.selectedStyle = &style
	s.status = StatusAwaitingInspiration
	s.updatedAt = m.now()
	m.publish(s)
	return m.snapshot(s), nil
}

// Generate kicks off the styled render. The optional inspiration image and
// prompt override feed the prompt builder. The call returns as soon as the
// session enters Generating; completion arrives via events and Get.
func (m *Manager) Generate(ctx context.Context, id, ownerID string, inspiration *UploadedFile, promptOverride string) (Snapshot, error) {
	if inspiration != nil {
		if err := inspiration.validate(); err != nil {
			return Snapshot{}, err
		}
	}

	user, err := m.store.GetUserByID(ctx, ownerID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load user: %w", err)
	}
	if !CanGenerate(user.Quota()) {
		return Snapshot{}, &QuotaExceededError{Used: user.GenerationsUsed, Limit: user.GenerationsLimit}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id, ownerID)
	if err != nil {
		return Snapshot{}, err
	}
	if s.status != StatusAwaitingInspiration && s.status != StatusFailed {
		return Snapshot{}, &ConflictError{Status: s.status}
	}
	if s.originalFile == nil || s.selectedStyle == nil {
		return Snapshot{}, &ValidationError{Message: "upload a photo and choose a style before generating"}
	}

	s.inspirationFile = inspiration
	s.status = StatusGenerating
	s.lastError = ""
	s.updatedAt = m.now()
	m.publish(s)

	m.startGeneration(s, promptOverride)
	return m.snapshot(s), nil
}

// Surprise picks a fused style from the user's profile and generates with
// it in one step. Valid wherever style selection is.
func (m *Manager) Surprise(ctx context.Context, id, ownerID string, profile StyleProfile) (Snapshot, error) {
	user, err := m.store.GetUserByID(ctx, ownerID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load user: %w", err)
	}
	if !CanGenerate(user.Quota()) {
		return Snapshot{}, &QuotaExceededError{Used: user.GenerationsUsed, Limit: user.GenerationsLimit}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id, ownerID)
	if err != nil {
		return Snapshot{}, err
	}
	switch s.status {
	case StatusAwaitingStyle, StatusAwaitingInspiration, StatusFailed:
	default:
		return Snapshot{}, &ConflictError{Status: s.status}
	}
	if s.originalFile == nil {
		return Snapshot{}, &ValidationError{Message: "upload a room photo before choosing a style"}
	}

	pick := ChooseSurpriseStyle(Catalog(), profile, m.rng)
	fused := pick.Fused
	s.selectedStyle = &fused
	s.inspirationFile = nil
	s.status = StatusGenerating
	s.lastError = ""
	s.updatedAt = m.now()
	m.publish(s)

	m.startGeneration(s, pick.Reasoning)
	return m.snapshot(s), nil
}

// startGeneration runs the render and analysis pipeline in the background.
// Caller holds the manager mutex with the session already in Generating.
func (m *Manager) startGeneration(s *session, promptOverride string) {
	epoch := s.epoch
	params := ai.GenerateParams{
		OriginalImage:  s.originalFile.Data,
		MIMEType:       s.originalFile.MIMEType,
		StyleID:        s.selectedStyle.ID,
		StylePrompt:    ai.StylePrompt(s.selectedStyle.ID),
		PromptOverride: promptOverride,
	}
	if s.inspirationFile != nil {
		params.InspirationImage = s.inspirationFile.Data
		params.InspirationMIME = s.inspirationFile.MIMEType
	}
	sessionID, ownerID := s.id, s.ownerID

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		result, genErr := m.client.GenerateDesign(ctx, params)

		m.mu.Lock()
		s, ok := m.sessions[sessionID]
		if !ok || s.epoch != epoch {
			m.mu.Unlock()
			return
		}
		if genErr != nil {
			log.Printf("session %s: generation failed: %v", sessionID, genErr)
			s.status = StatusFailed
			s.lastError = errGeneration
			s.updatedAt = m.now()
			m.publish(s)
			m.mu.Unlock()
			return
		}

		s.generatedImage = result.Image
		s.generatedMIME = result.MIME
		s.modelUsed = result.ModelUsed
		s.generationTime = result.GenerationTime
		s.ambiance = ""
		s.chatHistory = []storage.ChatMessage{{Sender: "assistant", Text: chatWelcome}}
		s.status = StatusAnalyzing
		s.updatedAt = m.now()
		m.publish(s)
		image, mime := result.Image, result.MIME
		m.mu.Unlock()

		if err := m.store.IncrementUsage(ctx, ownerID); err != nil {
			log.Printf("session %s: increment usage: %v", sessionID, err)
		}

		// Analysis never blocks the session: on failure the client hands
		// back a fallback and the session still reaches Ready.
		analysis, analysisErr := m.client.AnalyzeFurniture(ctx, image, mime)
		if analysisErr != nil {
			log.Printf("session %s: furniture analysis degraded: %v", sessionID, analysisErr)
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		s, ok = m.sessions[sessionID]
		if !ok || s.epoch != epoch {
			return
		}
		s.furnitureItems = analysis.Items
		s.recommendations = analysis.Recommendations
		s.room = analysis.Room
		s.status = StatusReady
		s.updatedAt = m.now()
		m.publish(s)
	}()
}

// SendMessage appends a user instruction and refines the current design.
func (m *Manager) SendMessage(id, ownerID, text string) (Snapshot, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Snapshot{}, &ValidationError{Message: "message text is required"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id, ownerID)
	if err != nil {
		return Snapshot{}, err
	}
	if s.status != StatusReady {
		return Snapshot{}, &ConflictError{Status: s.status}
	}

	s.chatHistory = append(s.chatHistory, storage.ChatMessage{Sender: "user", Text: text})
	s.status = StatusRefining
	s.updatedAt = m.now()
	m.publish(s)

	epoch := s.epoch
	params := ai.RefineParams{
		CurrentImage: s.generatedImage,
		MIMEType:     s.generatedMIME,
		Instruction:  text,
		StyleID:      s.selectedStyle.ID,
		ChatHistory:  append([]storage.ChatMessage(nil), s.chatHistory...),
	}
	sessionID := s.id

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		result, refineErr := m.client.RefineDesign(ctx, params)

		m.mu.Lock()
		defer m.mu.Unlock()
		s, ok := m.sessions[sessionID]
		if !ok || s.epoch != epoch {
			return
		}
		if refineErr != nil {
			log.Printf("session %s: refinement failed: %v", sessionID, refineErr)
			s.chatHistory = append(s.chatHistory, storage.ChatMessage{Sender: "assistant", Text: chatRefineFailed})
		} else {
			s.generatedImage = result.Image
			s.generatedMIME = result.MIME
			s.chatHistory = append(s.chatHistory, storage.ChatMessage{Sender: "assistant", Text: chatRefined})
		}
		s.status = StatusReady
		s.updatedAt = m.now()
		m.publish(s)
	}()

	return m.snapshot(s), nil
}

// ChangeAmbiance re-renders the design under a lighting preset or a
// free-text lighting prompt. Failures are silent and session-local.
func (m *Manager) ChangeAmbiance(id, ownerID, presetID, prompt string) (Snapshot, error) {
	label := presetID
	if preset, ok := AmbianceByID(presetID); ok {
		prompt = preset.Prompt
	} else if strings.TrimSpace(prompt) == "" {
		return Snapshot{}, &ValidationError{Message: "ambiance preset or prompt is required"}
	} else if label == "" {
		label = "custom"
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id, ownerID)
	if err != nil {
		return Snapshot{}, err
	}
	if s.status != StatusReady {
		return Snapshot{}, &ConflictError{Status: s.status}
	}

	s.status = StatusChangingAmbiance
	s.updatedAt = m.now()
	m.publish(s)

	epoch := s.epoch
	params := ai.RefineParams{
		CurrentImage: s.generatedImage,
		MIMEType:     s.generatedMIME,
		Instruction:  prompt,
		StyleID:      s.selectedStyle.ID,
	}
	sessionID := s.id

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		result, editErr := m.client.RefineDesign(ctx, params)

		m.mu.Lock()
		defer m.mu.Unlock()
		s, ok := m.sessions[sessionID]
		if !ok || s.epoch != epoch {
			return
		}
		if editErr != nil {
			log.Printf("session %s: ambiance change failed: %v", sessionID, editErr)
		} else {
			s.generatedImage = result.Image
			s.generatedMIME = result.MIME
			s.ambiance = label
		}
		s.status = StatusReady
		s.updatedAt = m.now()
		m.publish(s)
	}()

	return m.snapshot(s), nil
}

// TryAnotherStyle keeps the uploaded photo but clears everything derived
// from the previous generation.
func (m *Manager) TryAnotherStyle(id, ownerID string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id, ownerID)
	if err != nil {
		return Snapshot{}, err
	}
	if s.status != StatusReady && s.status != StatusFailed {
		return Snapshot{}, &ConflictError{Status: s.status}
	}

	s.epoch++
	s.selectedStyle = nil
	s.inspirationFile = nil
	s.generatedImage = nil
	s.generatedMIME = ""
	s.modelUsed = ""
	s.generationTime = 0
	s.ambiance = ""
	s.chatHistory = nil
	s.furnitureItems = nil
	s.recommendations = nil
	s.room = ai.RoomAnalysis{}
	s.lastError = ""
	s.status = StatusAwaitingStyle
	s.updatedAt = m.now()
	m.publish(s)
	return m.snapshot(s), nil
}

// Reset clears the whole session back to Idle. Safe to call repeatedly;
// any in-flight result settling afterwards is discarded.
func (m *Manager) Reset(id, ownerID string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id, ownerID)
	if err != nil {
		return Snapshot{}, err
	}

	s.epoch++
	s.originalFile = nil
	s.inspirationFile = nil
	s.selectedStyle = nil
	s.generatedImage = nil
	s.generatedMIME = ""
	s.modelUsed = ""
	s.generationTime = 0
	s.ambiance = ""
	s.chatHistory = nil
	s.furnitureItems = nil
	s.recommendations = nil
	s.room = ai.RoomAnalysis{}
	s.lastError = ""
	s.status = StatusIdle
	s.updatedAt = m.now()
	m.publish(s)
	return m.snapshot(s), nil
}

// Save persists a Ready session as a DesignRecord, pushing both images
// through the media uploader.
func (m *Manager) Save(ctx context.Context, id, ownerID, name, roomType string) (storage.DesignRecord, error) {
	m.mu.Lock()
	s, err := m.lookup(id, ownerID)
	if err != nil {
		m.mu.Unlock()
		return storage.DesignRecord{}, err
	}
	if s.status != StatusReady {
		m.mu.Unlock()
		return storage.DesignRecord{}, &ConflictError{Status: s.status}
	}

	record := storage.DesignRecord{
		OwnerID:          ownerID,
		Name:             strings.TrimSpace(name),
		StyleID:          s.selectedStyle.ID,
		StyleName:        s.selectedStyle.Name,
		RoomType:         strings.TrimSpace(roomType),
		ModelUsed:        s.modelUsed,
		GenerationTimeMs: s.generationTime.Milliseconds(),
		ChatHistory:      append([]storage.ChatMessage(nil), s.chatHistory...),
		FurnitureItems:   append([]storage.FurnitureItem(nil), s.furnitureItems...),
	}
	if record.Name == "" {
		record.Name = s.selectedStyle.Name
	}
	original := *s.originalFile
	generated := append([]byte(nil), s.generatedImage...)
	generatedMIME := s.generatedMIME
	m.mu.Unlock()

	originalUpload, err := media.UploadImage(ctx, m.uploader, original.Filename, original.MIMEType, original.Data)
	if err != nil {
		return storage.DesignRecord{}, fmt.Errorf("store original image: %w", err)
	}
	generatedUpload, err := media.UploadImage(ctx, m.uploader, "design.png", generatedMIME, generated)
	if err != nil {
		return storage.DesignRecord{}, fmt.Errorf("store generated image: %w", err)
	}

	record.OriginalImageURL = originalUpload.URL
	record.GeneratedImageURL = generatedUpload.URL

	saved, err := m.store.SaveDesign(ctx, record)
	if err != nil {
		return storage.DesignRecord{}, fmt.Errorf("save design: %w", err)
	}
	return saved, nil
}

func (m *Manager) lookup(id, ownerID string) (*session, error) {
	s, ok := m.sessions[id]
	if !ok || s.ownerID != ownerID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *Manager) publish(s *session) {
	if m.broker == nil {
		return
	}
	m.broker.Publish(events.Event{
		SessionID: s.id,
		OwnerID:   s.ownerID,
		Status:    string(s.status),
		Error:     s.lastError,
	})
}

func (m *Manager) snapshot(s *session) Snapshot {
	snap := Snapshot{
		ID:              s.id,
		OwnerID:         s.ownerID,
		Status:          s.status,
		Ambiance:        s.ambiance,
		HasOriginal:     s.originalFile != nil,
		ModelUsed:       s.modelUsed,
		GenerationMs:    s.generationTime.Milliseconds(),
		ChatHistory:     append([]storage.ChatMessage(nil), s.chatHistory...),
		FurnitureItems:  append([]storage.FurnitureItem(nil), s.furnitureItems...),
		Recommendations: s.recommendations,
		Error:           s.lastError,
		CreatedAt:       s.createdAt,
		UpdatedAt:       s.updatedAt,
	}
	if s.selectedStyle != nil {
		style := *s.selectedStyle
		snap.Style = &style
	}
	if len(s.generatedImage) > 0 {
		snap.GeneratedImage = fmt.Sprintf("data:%s;base64,%s", s.generatedMIME, base64.StdEncoding.EncodeToString(s.generatedImage))
	}
	if s.room.Size != "" || s.room.Style != "" {
		room := s.room
		snap.Room = &room
	}
	return snap
}
