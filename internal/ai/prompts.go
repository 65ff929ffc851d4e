package ai

import (
	"fmt"
	"strings"

	"xelda/internal/storage"
)

// stylePrompts maps catalog style ids to the aesthetic brief injected into
// generation prompts. Unknown ids fall back to the modern brief.
var stylePrompts = map[string]string{
	"Minimalist":   "Clean lines, neutral colors (white, beige, gray), minimal furniture, plenty of white space, simple geometric shapes, natural materials like wood and stone, hidden storage solutions.",
	"Scandinavian": "Light wood furniture (pine, birch, oak), cozy textiles (wool, linen), muted colors (white, cream, soft grays), hygge atmosphere, natural light emphasis, functional design.",
	"Cozy":         "Warm colors (earth tones, warm grays, soft browns), soft textures (knitted throws, plush pillows), layered lighting (table lamps, string lights), comfortable seating, personal touches.",
	"Modern":       "Bold geometric shapes, contrasting colors, sleek materials (metal, glass, concrete), statement pieces, clean lines, minimal ornamentation, high-tech elements.",
	"Bohemian":     "Rich colors (deep purples, oranges, reds), mixed patterns, lots of plants, vintage rugs, tapestries, eclectic furniture mix, natural materials, artistic elements.",
	"Industrial":   "Raw materials (exposed brick, metal, concrete), dark colors, Edison bulb lighting, vintage leather furniture, metal fixtures, urban loft aesthetic.",
	"Luxury":       "High-end materials (marble, velvet, gold accents), rich colors, statement chandeliers, premium furniture, elegant details, sophisticated color palette.",
	"Vintage":      "Retro furniture, warm nostalgic colors, antique pieces, classic patterns, aged textures, traditional craftsmanship elements.",
	"Gamer":        "RGB lighting, modern tech aesthetic, gaming chairs, multiple monitors setup, LED strips, sleek black/neon color scheme, high-tech atmosphere.",
	"Futuristic":   "Metallic surfaces, LED lighting, geometric shapes, white/chrome/blue color scheme, minimal furniture with tech integration, holographic elements.",
}

// StylePrompt returns the aesthetic brief for a style id. Fusion ids
// ("A+B") produce a combined brief.
func StylePrompt(styleID string) string {
	if prompt, ok := stylePrompts[styleID]; ok {
		return prompt
	}
	if strings.Contains(styleID, "+") {
		var briefs []string
		for _, token := range strings.Split(styleID, "+") {
			if prompt, ok := stylePrompts[strings.TrimSpace(token)]; ok {
				briefs = append(briefs, prompt)
			}
		}
		if len(briefs) > 0 {
			return strings.Join(briefs, " Blended with: ")
		}
	}
	return stylePrompts["Modern"]
}

const generateTemplate = `Transform this room into a stunning %s interior design.

STYLE SPECIFICATION: %s

TRANSFORMATION RULES:
1. Preserve Architecture: keep original walls, windows, doors, and room structure intact
2. Style Consistency: every element must follow %s aesthetic principles
3. Furniture Placement: ensure proper scale and proportion for the room size
4. Color Harmony: use a %s-appropriate color palette
5. Photorealism: generate high-quality, realistic textures and materials

Generate a photorealistic, high-resolution interior design transformation.`

const generateWithInspirationTemplate = `Transform the room (first image) using the color palette and mood from the inspiration image (second image).

IMPORTANT: use ONLY the room's structure and layout. Extract colors, mood, and atmosphere from the second image.

STYLE: %s - %s

Apply the inspiration's color scheme while maintaining %s aesthetic principles.
Generate a photorealistic, high-resolution result.`

const refineTemplate = `Modify this %s room design based on this request: "%s"

%sREFINEMENT RULES:
1. Targeted Changes: apply ONLY the requested modification
2. Preserve Style: maintain the %s aesthetic throughout
3. Keep Structure: do not alter walls, windows, or room architecture
4. Consistency: ensure changes blend naturally with the existing design
5. Quality: maintain photorealistic quality and lighting
6. Proportions: keep all furniture and elements properly scaled

Generate the refined design with the requested changes applied.`

// BuildGeneratePrompt composes the text part of a generation request.
func BuildGeneratePrompt(params GenerateParams) string {
	if strings.TrimSpace(params.PromptOverride) != "" {
		return fmt.Sprintf(generateTemplate,
			params.PromptOverride, StylePrompt(params.StyleID), params.PromptOverride, params.PromptOverride)
	}
	brief := params.StylePrompt
	if brief == "" {
		brief = StylePrompt(params.StyleID)
	}
	if len(params.InspirationImage) > 0 {
		return fmt.Sprintf(generateWithInspirationTemplate, params.StyleID, brief, params.StyleID)
	}
	prompt := fmt.Sprintf(generateTemplate, params.StyleID, brief, params.StyleID, params.StyleID)
	if ambiance := strings.TrimSpace(params.Ambiance); ambiance != "" {
		prompt += fmt.Sprintf("\nLighting ambiance: %s.", ambiance)
	}
	return prompt
}

// BuildRefinePrompt composes the text part of a refinement request,
// carrying the last few conversation turns as context.
func BuildRefinePrompt(params RefineParams) string {
	context := ""
	if recent := lastTurns(params.ChatHistory, 3); len(recent) > 0 {
		parts := make([]string, 0, len(recent))
		for _, msg := range recent {
			parts = append(parts, fmt.Sprintf("%s: %s", msg.Sender, msg.Text))
		}
		context = fmt.Sprintf("Context: previous modifications: %s\n\n", strings.Join(parts, "; "))
	}
	return fmt.Sprintf(refineTemplate, params.StyleID, params.Instruction, context, params.StyleID)
}

const furnitureAnalysisPrompt = `Analyze this room image and provide detailed furniture and decor analysis.

Return a JSON object with this exact structure:
{
  "items": [
    {"name": "item name", "description": "detailed description"}
  ],
  "recommendations": ["improvement suggestions"],
  "roomAnalysis": {
    "size": "small|medium|large",
    "lightingType": "natural|artificial|mixed",
    "dominantColors": ["color1", "color2", "color3"],
    "style": "detected style"
  }
}

Identify 5-8 key items.`

const palettePrompt = `Extract the 5-7 most prominent colors from this image.

Return JSON:
{
  "colors": [
    {"hex": "#HEXCODE", "name": "Color Name", "usage": "primary|secondary|accent", "percentage": 25}
  ]
}

Focus on colors that would work well in interior design.`

func lastTurns(history []storage.ChatMessage, n int) []storage.ChatMessage {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
