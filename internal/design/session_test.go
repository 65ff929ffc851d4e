package design

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"xelda/internal/ai"
	"xelda/internal/media"
	"xelda/internal/storage"
)

type fakeClient struct {
	mu          sync.Mutex
	generateErr error
	refineErr   error
	// blockGenerate, when set, holds GenerateDesign until closed.
	blockGenerate chan struct{}
	refined       []byte
}

func (f *fakeClient) GenerateDesign(ctx context.Context, params ai.GenerateParams) (ai.GenerateResult, error) {
	f.mu.Lock()
	block := f.blockGenerate
	genErr := f.generateErr
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ai.GenerateResult{}, ctx.Err()
		}
	}
	if genErr != nil {
		return ai.GenerateResult{}, &ai.GenerationError{Err: genErr}
	}
	return ai.GenerateResult{
		Image:          []byte("generated-" + params.StyleID),
		MIME:           "image/png",
		ModelUsed:      "fake-model",
		GenerationTime: 5 * time.Millisecond,
	}, nil
}

func (f *fakeClient) RefineDesign(ctx context.Context, params ai.RefineParams) (ai.RefineResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refineErr != nil {
		return ai.RefineResult{}, &ai.RefinementError{Err: f.refineErr}
	}
	image := f.refined
	if image == nil {
		image = []byte("refined")
	}
	return ai.RefineResult{Image: image, MIME: "image/png"}, nil
}

func (f *fakeClient) AnalyzeFurniture(ctx context.Context, image []byte, mimeType string) (ai.FurnitureAnalysis, error) {
	return ai.FurnitureAnalysis{
		Items: []storage.FurnitureItem{{Name: "Sofa", Description: "A sofa."}},
	}, nil
}

func (f *fakeClient) ExtractPalette(ctx context.Context, image []byte, mimeType string) (ai.ColorPalette, error) {
	return ai.FallbackPalette(), nil
}

func (f *fakeClient) setGenerateErr(err error) {
	f.mu.Lock()
	f.generateErr = err
	f.mu.Unlock()
}

func (f *fakeClient) setRefineErr(err error) {
	f.mu.Lock()
	f.refineErr = err
	f.mu.Unlock()
}

func newTestManager(t *testing.T, client ai.Client) (*Manager, *storage.InMemoryStore, storage.User) {
	t.Helper()

	store := storage.NewInMemoryStore()
	user, err := store.CreateUser(context.Background(), storage.User{
		Email:        "test@example.com",
		Username:     "test",
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	uploader, err := media.NewLocalUploader(t.TempDir())
	if err != nil {
		t.Fatalf("local uploader: %v", err)
	}

	return NewManager(client, store, uploader, nil), store, user
}

func testPhoto() UploadedFile {
	return UploadedFile{
		Filename: "room.jpg",
		MIMEType: "image/jpeg",
		Data:     bytes.Repeat([]byte{0xff}, 2*1024*1024),
	}
}

func waitForStatus(t *testing.T, m *Manager, id, ownerID string, want Status) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := m.Get(id, ownerID)
		if err != nil {
			t.Fatalf("get session: %v", err)
		}
		if snap.Status == want {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	snap, _ := m.Get(id, ownerID)
	t.Fatalf("session never reached %q, stuck at %q", want, snap.Status)
	return Snapshot{}
}

func readySession(t *testing.T, m *Manager, user storage.User) Snapshot {
	t.Helper()
	ctx := context.Background()

	snap := m.Create(user.ID)
	if _, err := m.UploadOriginal(snap.ID, user.ID, testPhoto()); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := m.SelectStyle(snap.ID, user.ID, "Scandinavian"); err != nil {
		t.Fatalf("select style: %v", err)
	}
	if _, err := m.Generate(ctx, snap.ID, user.ID, nil, ""); err != nil {
		t.Fatalf("generate: %v", err)
	}
	return waitForStatus(t, m, snap.ID, user.ID, StatusReady)
}

func TestHappyPathToReady(t *testing.T) {
	client := &fakeClient{}
	m, store, user := newTestManager(t, client)

	snap := m.Create(user.ID)
	if snap.Status != StatusIdle {
		t.Fatalf("new session status = %q, want idle", snap.Status)
	}

	snap, err := m.UploadOriginal(snap.ID, user.ID, testPhoto())
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if snap.Status != StatusAwaitingStyle {
		t.Fatalf("after upload status = %q", snap.Status)
	}

	snap, err = m.SelectStyle(snap.ID, user.ID, "Scandinavian")
	if err != nil {
		t.Fatalf("select style: %v", err)
	}
	if snap.Status != StatusAwaitingInspiration {
		t.Fatalf("after style status = %q", snap.Status)
	}
	if snap.Style == nil || snap.Style.Name != "Scandinave" {
		t.Fatalf("style = %+v", snap.Style)
	}

	snap, err = m.Generate(context.Background(), snap.ID, user.ID, nil, "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if snap.Status != StatusGenerating {
		t.Fatalf("after generate status = %q", snap.Status)
	}

	snap = waitForStatus(t, m, snap.ID, user.ID, StatusReady)
	if snap.GeneratedImage == "" {
		t.Fatal("no generated image on ready session")
	}
	if !strings.HasPrefix(snap.GeneratedImage, "data:image/png;base64,") {
		t.Fatalf("generated image encoding: %q", snap.GeneratedImage[:30])
	}
	if len(snap.ChatHistory) != 1 || snap.ChatHistory[0].Sender != "assistant" {
		t.Fatalf("chat history = %+v, want one assistant welcome", snap.ChatHistory)
	}
	if len(snap.FurnitureItems) != 1 {
		t.Fatalf("furniture items = %+v", snap.FurnitureItems)
	}

	updated, err := store.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if updated.GenerationsUsed != 1 {
		t.Fatalf("generations used = %d, want 1", updated.GenerationsUsed)
	}
}

func TestSelectStyleBeforeUploadRejected(t *testing.T) {
	m, _, user := newTestManager(t, &fakeClient{})

	snap := m.Create(user.ID)
	_, err := m.SelectStyle(snap.ID, user.ID, "Modern")

	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if got, _ := m.Get(snap.ID, user.ID); got.Status != StatusIdle {
		t.Fatalf("status changed to %q", got.Status)
	}
}

func TestSendMessageWhileGeneratingRejected(t *testing.T) {
	client := &fakeClient{blockGenerate: make(chan struct{})}
	m, _, user := newTestManager(t, client)

	snap := m.Create(user.ID)
	if _, err := m.UploadOriginal(snap.ID, user.ID, testPhoto()); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := m.SelectStyle(snap.ID, user.ID, "Modern"); err != nil {
		t.Fatalf("select style: %v", err)
	}
	if _, err := m.Generate(context.Background(), snap.ID, user.ID, nil, ""); err != nil {
		t.Fatalf("generate: %v", err)
	}

	_, err := m.SendMessage(snap.ID, user.ID, "make it brighter")
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}

	close(client.blockGenerate)
	waitForStatus(t, m, snap.ID, user.ID, StatusReady)
}

func TestGenerationFailurePreservesUpload(t *testing.T) {
	client := &fakeClient{}
	client.setGenerateErr(errors.New("provider down"))
	m, _, user := newTestManager(t, client)

	snap := m.Create(user.ID)
	if _, err := m.UploadOriginal(snap.ID, user.ID, testPhoto()); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := m.SelectStyle(snap.ID, user.ID, "Luxury"); err != nil {
		t.Fatalf("select style: %v", err)
	}
	if _, err := m.Generate(context.Background(), snap.ID, user.ID, nil, ""); err != nil {
		t.Fatalf("generate: %v", err)
	}

	snap = waitForStatus(t, m, snap.ID, user.ID, StatusFailed)
	if !snap.HasOriginal {
		t.Fatal("original upload lost after failure")
	}
	if snap.Error == "" {
		t.Fatal("no user-facing error message set")
	}
	if snap.GeneratedImage != "" {
		t.Fatal("generated image set after failed generation")
	}

	// Retrying from Failed succeeds once the provider recovers.
	client.setGenerateErr(nil)
	if _, err := m.Generate(context.Background(), snap.ID, user.ID, nil, ""); err != nil {
		t.Fatalf("retry generate: %v", err)
	}
	waitForStatus(t, m, snap.ID, user.ID, StatusReady)
}

func TestRefineFailureKeepsImage(t *testing.T) {
	client := &fakeClient{}
	m, _, user := newTestManager(t, client)
	snap := readySession(t, m, user)
	before := snap.GeneratedImage

	client.setRefineErr(errors.New("provider down"))
	if _, err := m.SendMessage(snap.ID, user.ID, "add plants"); err != nil {
		t.Fatalf("send message: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		snap, _ = m.Get(snap.ID, user.ID)
		if snap.Status == StatusReady && len(snap.ChatHistory) == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("refinement never settled: status=%q history=%d", snap.Status, len(snap.ChatHistory))
		}
		time.Sleep(5 * time.Millisecond)
	}

	if snap.GeneratedImage != before {
		t.Fatal("image changed on failed refinement")
	}
	last := snap.ChatHistory[len(snap.ChatHistory)-1]
	if last.Sender != "assistant" || last.Text != chatRefineFailed {
		t.Fatalf("last message = %+v", last)
	}
}

func TestRefineSuccessUpdatesImage(t *testing.T) {
	client := &fakeClient{}
	m, _, user := newTestManager(t, client)
	snap := readySession(t, m, user)
	before := snap.GeneratedImage

	if _, err := m.SendMessage(snap.ID, user.ID, "add plants"); err != nil {
		t.Fatalf("send message: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		snap, _ = m.Get(snap.ID, user.ID)
		if snap.Status == StatusReady && len(snap.ChatHistory) == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("refinement never settled: status=%q", snap.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if snap.GeneratedImage == before {
		t.Fatal("image unchanged after successful refinement")
	}
	last := snap.ChatHistory[len(snap.ChatHistory)-1]
	if last.Text != chatRefined {
		t.Fatalf("last message = %+v", last)
	}
}

func TestAmbianceFailureIsSilent(t *testing.T) {
	client := &fakeClient{}
	m, _, user := newTestManager(t, client)
	snap := readySession(t, m, user)
	before := snap.GeneratedImage
	messages := len(snap.ChatHistory)

	client.setRefineErr(errors.New("provider down"))
	if _, err := m.ChangeAmbiance(snap.ID, user.ID, "morning", ""); err != nil {
		t.Fatalf("change ambiance: %v", err)
	}

	snap = waitForStatus(t, m, snap.ID, user.ID, StatusReady)
	if snap.GeneratedImage != before {
		t.Fatal("image changed on failed ambiance edit")
	}
	if len(snap.ChatHistory) != messages {
		t.Fatal("ambiance failure added chat messages")
	}
	if snap.Ambiance != "" {
		t.Fatalf("ambiance recorded on failure: %q", snap.Ambiance)
	}
}

func TestAmbianceSuccessRecordsPreset(t *testing.T) {
	client := &fakeClient{}
	m, _, user := newTestManager(t, client)
	snap := readySession(t, m, user)
	before := snap.GeneratedImage

	if _, err := m.ChangeAmbiance(snap.ID, user.ID, "evening", ""); err != nil {
		t.Fatalf("change ambiance: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		snap, _ = m.Get(snap.ID, user.ID)
		if snap.Status == StatusReady && snap.Ambiance == "evening" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("ambiance never settled: status=%q ambiance=%q", snap.Status, snap.Ambiance)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if snap.GeneratedImage == before {
		t.Fatal("image unchanged after ambiance edit")
	}
}

func TestTryAnotherStyleKeepsUpload(t *testing.T) {
	client := &fakeClient{}
	m, _, user := newTestManager(t, client)
	snap := readySession(t, m, user)

	snap, err := m.TryAnotherStyle(snap.ID, user.ID)
	if err != nil {
		t.Fatalf("restyle: %v", err)
	}
	if snap.Status != StatusAwaitingStyle {
		t.Fatalf("status = %q", snap.Status)
	}
	if !snap.HasOriginal {
		t.Fatal("original upload lost on restyle")
	}
	if snap.GeneratedImage != "" || len(snap.ChatHistory) != 0 || snap.Style != nil {
		t.Fatal("restyle did not clear derived state")
	}
}

func TestResetIsIdempotent(t *testing.T) {
	client := &fakeClient{}
	m, _, user := newTestManager(t, client)
	snap := readySession(t, m, user)

	first, err := m.Reset(snap.ID, user.ID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	second, err := m.Reset(snap.ID, user.ID)
	if err != nil {
		t.Fatalf("second reset: %v", err)
	}

	for _, got := range []Snapshot{first, second} {
		if got.Status != StatusIdle || got.HasOriginal || got.GeneratedImage != "" || len(got.ChatHistory) != 0 {
			t.Fatalf("reset session not empty: %+v", got)
		}
	}
}

func TestResetDiscardsInFlightResult(t *testing.T) {
	client := &fakeClient{blockGenerate: make(chan struct{})}
	m, _, user := newTestManager(t, client)

	snap := m.Create(user.ID)
	if _, err := m.UploadOriginal(snap.ID, user.ID, testPhoto()); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := m.SelectStyle(snap.ID, user.ID, "Modern"); err != nil {
		t.Fatalf("select style: %v", err)
	}
	if _, err := m.Generate(context.Background(), snap.ID, user.ID, nil, ""); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := m.Reset(snap.ID, user.ID); err != nil {
		t.Fatalf("reset: %v", err)
	}

	close(client.blockGenerate)
	time.Sleep(50 * time.Millisecond)

	got, err := m.Get(snap.ID, user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusIdle || got.GeneratedImage != "" {
		t.Fatalf("stale generation mutated reset session: %+v", got.Status)
	}
}

func TestGenerateBlockedByQuota(t *testing.T) {
	client := &fakeClient{}
	m, store, user := newTestManager(t, client)

	if err := store.UpdateUserPlan(context.Background(), user.ID, "free", 1); err != nil {
		t.Fatalf("update plan: %v", err)
	}
	if err := store.IncrementUsage(context.Background(), user.ID); err != nil {
		t.Fatalf("increment usage: %v", err)
	}

	snap := m.Create(user.ID)
	if _, err := m.UploadOriginal(snap.ID, user.ID, testPhoto()); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := m.SelectStyle(snap.ID, user.ID, "Modern"); err != nil {
		t.Fatalf("select style: %v", err)
	}

	_, err := m.Generate(context.Background(), snap.ID, user.ID, nil, "")
	var quota *QuotaExceededError
	if !errors.As(err, &quota) {
		t.Fatalf("err = %v, want QuotaExceededError", err)
	}
	if quota.Used != 1 || quota.Limit != 1 {
		t.Fatalf("quota = %+v", quota)
	}
}

func TestUploadValidation(t *testing.T) {
	m, _, user := newTestManager(t, &fakeClient{})
	snap := m.Create(user.ID)

	cases := []struct {
		name string
		file UploadedFile
	}{
		{"empty", UploadedFile{MIMEType: "image/jpeg"}},
		{"wrong type", UploadedFile{MIMEType: "image/gif", Data: []byte("gif")}},
		{"too large", UploadedFile{MIMEType: "image/png", Data: bytes.Repeat([]byte{1}, ai.MaxImageBytes+1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.UploadOriginal(snap.ID, user.ID, tc.file)
			var validation *ValidationError
			if !errors.As(err, &validation) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
		})
	}
}

func TestSurpriseGeneratesFusedStyle(t *testing.T) {
	client := &fakeClient{}
	m, _, user := newTestManager(t, client)

	snap := m.Create(user.ID)
	if _, err := m.UploadOriginal(snap.ID, user.ID, testPhoto()); err != nil {
		t.Fatalf("upload: %v", err)
	}

	snap, err := m.Surprise(context.Background(), snap.ID, user.ID, nil)
	if err != nil {
		t.Fatalf("surprise: %v", err)
	}
	if snap.Style == nil || !strings.Contains(snap.Style.ID, "+") {
		t.Fatalf("surprise style = %+v, want fused id", snap.Style)
	}
	if !strings.Contains(snap.Style.Name, " + ") {
		t.Fatalf("fused name = %q", snap.Style.Name)
	}
	waitForStatus(t, m, snap.ID, user.ID, StatusReady)
}

func TestSaveProducesRecord(t *testing.T) {
	client := &fakeClient{}
	m, store, user := newTestManager(t, client)
	snap := readySession(t, m, user)

	record, err := m.Save(context.Background(), snap.ID, user.ID, "Ma chambre", "bedroom")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if record.ID == "" || record.OwnerID != user.ID {
		t.Fatalf("record = %+v", record)
	}
	if record.OriginalImageURL == "" || record.GeneratedImageURL == "" {
		t.Fatal("image refs missing on saved record")
	}
	if record.StyleID != "Scandinavian" || record.ModelUsed != "fake-model" {
		t.Fatalf("metadata = %q %q", record.StyleID, record.ModelUsed)
	}

	mine, err := store.ListDesigns(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("list designs: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("stored designs = %d", len(mine))
	}
}

func TestSessionOwnershipEnforced(t *testing.T) {
	m, _, user := newTestManager(t, &fakeClient{})
	snap := m.Create(user.ID)

	if _, err := m.Get(snap.ID, "someone-else"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}
