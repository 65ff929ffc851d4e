package ai

import (
	"context"
	"time"

	"xelda/internal/storage"
)

// Canned is a no-network Client for local development and tests. It echoes
// the input image back as the "generated" result so the rest of the app can
// be exercised without credentials.
type Canned struct {
	// Delay, when positive, simulates model latency.
	Delay time.Duration
}

// NewCanned returns a deterministic offline client.
func NewCanned() *Canned {
	return &Canned{}
}

func (c *Canned) wait(ctx context.Context) error {
	if c.Delay <= 0 {
		return nil
	}
	timer := time.NewTimer(c.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Canned) GenerateDesign(ctx context.Context, params GenerateParams) (GenerateResult, error) {
	started := time.Now()
	if err := c.wait(ctx); err != nil {
		return GenerateResult{}, &GenerationError{Err: err}
	}
	return GenerateResult{
		Image:          params.OriginalImage,
		MIME:           detectMime(params.OriginalImage, params.MIMEType),
		ModelUsed:      "canned",
		GenerationTime: time.Since(started),
		Prompt:         BuildGeneratePrompt(params),
	}, nil
}

func (c *Canned) RefineDesign(ctx context.Context, params RefineParams) (RefineResult, error) {
	if err := c.wait(ctx); err != nil {
		return RefineResult{}, &RefinementError{Err: err}
	}
	return RefineResult{
		Image: params.CurrentImage,
		MIME:  detectMime(params.CurrentImage, params.MIMEType),
	}, nil
}

func (c *Canned) AnalyzeFurniture(ctx context.Context, image []byte, mimeType string) (FurnitureAnalysis, error) {
	if err := c.wait(ctx); err != nil {
		return FallbackFurnitureAnalysis(), err
	}
	return FurnitureAnalysis{
		Items: []storage.FurnitureItem{
			{Name: "Sofa", Description: "Three-seat sofa in a neutral fabric."},
			{Name: "Coffee Table", Description: "Low wooden coffee table."},
		},
		Recommendations: []string{"Add a floor lamp near the seating area for warmer evening light."},
		Room: RoomAnalysis{
			Size:           "medium",
			LightingType:   "natural",
			DominantColors: []string{"beige", "white", "brown"},
			Style:          "contemporary",
		},
	}, nil
}

func (c *Canned) ExtractPalette(ctx context.Context, image []byte, mimeType string) (ColorPalette, error) {
	if err := c.wait(ctx); err != nil {
		return FallbackPalette(), err
	}
	return FallbackPalette(), nil
}
