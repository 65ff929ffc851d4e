package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/genai"
)

const (
	defaultImageModel    = "gemini-2.5-flash-image"
	defaultAnalysisModel = "gemini-2.5-flash"
)

// Gemini implements Client against Google's generative APIs: the genai SDK
// for image rendering and the Generative Language REST API for structured
// analysis.
type Gemini struct {
	apiKey        string
	imageModel    string
	analysisModel string
	timeout       time.Duration
	client        *http.Client
	tokenSource   oauth2.TokenSource

	// Editor, when set, takes over refine/ambiance rendering (e.g. Vertex
	// Imagen). Generation always goes through the genai image model.
	Editor ImageEditor
}

// GeminiConfig describes how to reach the Gemini backends.
type GeminiConfig struct {
	APIKey        string
	ImageModel    string
	AnalysisModel string
	Timeout       time.Duration
	TokenSource   oauth2.TokenSource
}

// NewGemini constructs the production capability client.
func NewGemini(cfg GeminiConfig) *Gemini {
	imageModel := normalizeModel(cfg.ImageModel)
	if imageModel == "" {
		imageModel = defaultImageModel
	}
	analysisModel := normalizeModel(cfg.AnalysisModel)
	if analysisModel == "" {
		analysisModel = defaultAnalysisModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Gemini{
		apiKey:        cfg.APIKey,
		imageModel:    imageModel,
		analysisModel: analysisModel,
		timeout:       timeout,
		client:        &http.Client{Timeout: timeout},
		tokenSource:   cfg.TokenSource,
	}
}

// GenerateDesign renders the styled transformation of the original room photo.
func (g *Gemini) GenerateDesign(ctx context.Context, params GenerateParams) (GenerateResult, error) {
	if len(params.OriginalImage) == 0 {
		return GenerateResult{}, &GenerationError{Err: fmt.Errorf("original image is required")}
	}
	if len(params.OriginalImage) > MaxImageBytes {
		return GenerateResult{}, &GenerationError{Err: fmt.Errorf("image exceeds %d bytes", MaxImageBytes)}
	}

	prompt := BuildGeneratePrompt(params)

	parts := []*genai.Part{genai.NewPartFromBytes(params.OriginalImage, detectMime(params.OriginalImage, params.MIMEType))}
	if len(params.InspirationImage) > 0 {
		parts = append(parts, genai.NewPartFromBytes(params.InspirationImage, detectMime(params.InspirationImage, params.InspirationMIME)))
	}
	parts = append(parts, genai.NewPartFromText(prompt))

	started := time.Now()
	image, mime, err := g.renderImage(ctx, parts)
	if err != nil {
		return GenerateResult{}, &GenerationError{Err: err}
	}

	return GenerateResult{
		Image:          image,
		MIME:           mime,
		ModelUsed:      g.imageModel,
		GenerationTime: time.Since(started),
		Prompt:         prompt,
	}, nil
}

// RefineDesign re-renders the current design according to the instruction.
func (g *Gemini) RefineDesign(ctx context.Context, params RefineParams) (RefineResult, error) {
	if len(params.CurrentImage) == 0 {
		return RefineResult{}, &RefinementError{Err: fmt.Errorf("current image is required")}
	}
	if strings.TrimSpace(params.Instruction) == "" {
		return RefineResult{}, &RefinementError{Err: fmt.Errorf("instruction is required")}
	}

	prompt := BuildRefinePrompt(params)
	mime := detectMime(params.CurrentImage, params.MIMEType)

	if g.Editor != nil {
		result, err := g.Editor.Edit(ctx, params.CurrentImage, mime, prompt)
		if err != nil {
			return RefineResult{}, &RefinementError{Err: err}
		}
		return result, nil
	}

	parts := []*genai.Part{
		genai.NewPartFromBytes(params.CurrentImage, mime),
		genai.NewPartFromText(prompt),
	}
	image, outMime, err := g.renderImage(ctx, parts)
	if err != nil {
		return RefineResult{}, &RefinementError{Err: err}
	}
	return RefineResult{Image: image, MIME: outMime}, nil
}

// AnalyzeFurniture extracts key furniture items from a generated design.
// Failures degrade to the fallback analysis; the error is advisory.
func (g *Gemini) AnalyzeFurniture(ctx context.Context, image []byte, mimeType string) (FurnitureAnalysis, error) {
	text, err := g.analyzeData(ctx, image, mimeType, furnitureAnalysisPrompt)
	if err != nil {
		log.Printf("furniture analysis failed: %v", err)
		return FallbackFurnitureAnalysis(), err
	}

	var analysis FurnitureAnalysis
	if err := parseJSONBlock(text, &analysis); err != nil {
		log.Printf("furniture analysis parse failed: %v", err)
		return FallbackFurnitureAnalysis(), err
	}
	if analysis.Items == nil {
		analysis.Items = FallbackFurnitureAnalysis().Items
	}
	return analysis, nil
}

// ExtractPalette pulls the dominant colors out of an image, best effort.
func (g *Gemini) ExtractPalette(ctx context.Context, image []byte, mimeType string) (ColorPalette, error) {
	text, err := g.analyzeData(ctx, image, mimeType, palettePrompt)
	if err != nil {
		log.Printf("palette extraction failed: %v", err)
		return FallbackPalette(), err
	}

	var palette ColorPalette
	if err := parseJSONBlock(text, &palette); err != nil {
		log.Printf("palette parse failed: %v", err)
		return FallbackPalette(), err
	}
	if len(palette.Colors) == 0 {
		return FallbackPalette(), nil
	}
	return palette, nil
}

func (g *Gemini) renderImage(ctx context.Context, parts []*genai.Part) ([]byte, string, error) {
	if strings.TrimSpace(g.apiKey) == "" && g.tokenSource == nil {
		return nil, "", fmt.Errorf("gemini: missing API key or credentials")
	}

	childCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	client, err := genai.NewClient(childCtx, &genai.ClientConfig{
		APIKey: g.apiKey,
	})
	if err != nil {
		return nil, "", fmt.Errorf("gemini: create genai client: %w", err)
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := client.Models.GenerateContent(childCtx, g.imageModel, contents, nil)
	if err != nil {
		return nil, "", fmt.Errorf("gemini: render failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, "", fmt.Errorf("gemini: render returned no candidates")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mime := part.InlineData.MIMEType
		if strings.TrimSpace(mime) == "" {
			mime = "image/png"
		}
		return part.InlineData.Data, mime, nil
	}
	return nil, "", fmt.Errorf("gemini: render returned no image data")
}

func (g *Gemini) analyzeData(ctx context.Context, data []byte, mimeType, prompt string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("analysis: empty image data")
	}
	if len(data) > MaxImageBytes {
		return "", fmt.Errorf("analysis: image exceeds %d bytes", MaxImageBytes)
	}

	payload := map[string]any{
		"contents": []map[string]any{
			{
				"role": "user",
				"parts": []map[string]any{
					{"text": prompt},
					{
						"inline_data": map[string]string{
							"mime_type": detectMime(data, mimeType),
							"data":      base64.StdEncoding.EncodeToString(data),
						},
					},
				},
			},
		},
		"generationConfig": map[string]any{
			"temperature": 0.3,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("analysis: marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf(
		"https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent",
		url.PathEscape(g.analysisModel),
	)
	if g.tokenSource == nil {
		if strings.TrimSpace(g.apiKey) == "" {
			return "", fmt.Errorf("analysis: missing API key or credentials")
		}
		endpoint = fmt.Sprintf("%s?key=%s", endpoint, url.QueryEscape(g.apiKey))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("analysis: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if g.tokenSource != nil {
		token, err := g.tokenSource.Token()
		if err != nil {
			return "", fmt.Errorf("analysis: fetch oauth token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("analysis: perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var failure struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		return "", fmt.Errorf("analysis: status %d: %s", resp.StatusCode, failure.Error.Message)
	}

	var completion struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("analysis: decode response: %w", err)
	}

	if len(completion.Candidates) == 0 || len(completion.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("analysis: empty response")
	}

	return strings.TrimSpace(completion.Candidates[0].Content.Parts[0].Text), nil
}

// parseJSONBlock decodes text that may wrap its JSON payload in prose or
// markdown fences.
func parseJSONBlock(text string, v any) error {
	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), v); err == nil {
			return nil
		}
	}
	return fmt.Errorf("could not parse JSON response")
}

func detectMime(data []byte, provided string) string {
	mime := strings.TrimSpace(provided)
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	if !strings.Contains(mime, "image/") {
		return "image/jpeg"
	}
	return mime
}

func normalizeModel(model string) string {
	clean := strings.TrimSpace(model)
	clean = strings.TrimPrefix(clean, "models/")
	return clean
}
