package ai

import (
	"context"
	"fmt"
	"time"

	"xelda/internal/storage"
)

// MaxImageBytes caps images accepted by the capability boundary.
const MaxImageBytes = 10 * 1024 * 1024

// GenerateParams describes a primary room transformation request.
type GenerateParams struct {
	OriginalImage    []byte
	MIMEType         string
	StyleID          string
	StylePrompt      string
	PromptOverride   string
	Ambiance         string
	InspirationImage []byte
	InspirationMIME  string
}

// GenerateResult is the settled payload of a generation request.
type GenerateResult struct {
	Image          []byte
	MIME           string
	ModelUsed      string
	GenerationTime time.Duration
	Prompt         string
}

// RefineParams describes a follow-up edit of the current design.
type RefineParams struct {
	CurrentImage []byte
	MIMEType     string
	Instruction  string
	StyleID      string
	ChatHistory  []storage.ChatMessage
}

// RefineResult carries the re-rendered design.
type RefineResult struct {
	Image []byte
	MIME  string
}

// RoomAnalysis summarizes the room detected alongside furniture items.
type RoomAnalysis struct {
	Size           string   `json:"size"`
	LightingType   string   `json:"lightingType"`
	DominantColors []string `json:"dominantColors"`
	Style          string   `json:"style"`
}

// FurnitureAnalysis is the structured output of the furniture pass.
type FurnitureAnalysis struct {
	Items           []storage.FurnitureItem `json:"items"`
	Recommendations []string                `json:"recommendations"`
	Room            RoomAnalysis            `json:"roomAnalysis"`
}

// PaletteColor is one extracted color with its intended usage.
type PaletteColor struct {
	Hex        string `json:"hex"`
	Name       string `json:"name"`
	Usage      string `json:"usage"` // primary, secondary or accent
	Percentage int    `json:"percentage"`
}

// ColorPalette is the best-effort palette extracted from an image.
type ColorPalette struct {
	Colors []PaletteColor `json:"colors"`
}

// Client is the boundary to the remote image capability. Implementations are
// stateless between calls; every method is safe for concurrent use.
//
// AnalyzeFurniture and ExtractPalette are best-effort: implementations return
// a usable fallback value together with the error, and callers must treat the
// error as advisory rather than blocking.
type Client interface {
	GenerateDesign(ctx context.Context, params GenerateParams) (GenerateResult, error)
	RefineDesign(ctx context.Context, params RefineParams) (RefineResult, error)
	AnalyzeFurniture(ctx context.Context, image []byte, mimeType string) (FurnitureAnalysis, error)
	ExtractPalette(ctx context.Context, image []byte, mimeType string) (ColorPalette, error)
}

// ImageEditor re-renders an existing image from a textual instruction. It is
// the pluggable backend for refine/ambiance calls.
type ImageEditor interface {
	Edit(ctx context.Context, image []byte, mimeType, prompt string) (RefineResult, error)
}

// GenerationError wraps failures of the primary generation call.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return fmt.Sprintf("design generation failed: %v", e.Err) }
func (e *GenerationError) Unwrap() error { return e.Err }

// RefinementError wraps failures of refine/ambiance calls.
type RefinementError struct {
	Err error
}

func (e *RefinementError) Error() string { return fmt.Sprintf("design refinement failed: %v", e.Err) }
func (e *RefinementError) Unwrap() error { return e.Err }

// FallbackFurnitureAnalysis is returned whenever the analysis pass cannot
// produce real results. The session flow degrades to it instead of failing.
func FallbackFurnitureAnalysis() FurnitureAnalysis {
	return FurnitureAnalysis{
		Items:           []storage.FurnitureItem{},
		Recommendations: []string{"Unable to analyze furniture at this time."},
		Room: RoomAnalysis{
			Size:           "medium",
			LightingType:   "mixed",
			DominantColors: []string{"neutral"},
			Style:          "contemporary",
		},
	}
}

// FallbackPalette is the static palette used when extraction fails.
func FallbackPalette() ColorPalette {
	return ColorPalette{Colors: []PaletteColor{
		{Hex: "#FFFFFF", Name: "White", Usage: "primary", Percentage: 30},
		{Hex: "#F5F5F5", Name: "Light Gray", Usage: "secondary", Percentage: 25},
		{Hex: "#8B4513", Name: "Brown", Usage: "accent", Percentage: 20},
	}}
}
