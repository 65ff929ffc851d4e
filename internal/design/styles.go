package design

import "strings"

// fusionDelimiter joins two base style IDs into a fused style ID.
const fusionDelimiter = "+"

// Style is a decorating style users can apply to a room.
type Style struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AmbiancePreset re-renders a finished design under a different lighting mood.
type AmbiancePreset struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Prompt string `json:"-"`
}

var styleCatalog = []Style{
	{ID: "Minimalist", Name: "Minimaliste", Description: "Lignes épurées, couleurs neutres, esthétique zen."},
	{ID: "Scandinavian", Name: "Scandinave", Description: "Bois clairs, textures douillettes, design fonctionnel."},
	{ID: "Cozy", Name: "Cozy", Description: "Couleurs chaudes, textures douces, atmosphère intime."},
	{ID: "Modern", Name: "Moderne", Description: "Contemporain, couleurs vives, formes géométriques."},
	{ID: "Bohemian", Name: "Bohème", Description: "Éclectique, coloré, artistique, rempli de plantes."},
	{ID: "Industrial", Name: "Industriel", Description: "Matériaux bruts, accents métalliques, ambiance urbaine."},
	{ID: "Luxury", Name: "Luxe", Description: "Haut de gamme, accents or/argent, mobilier élégant."},
	{ID: "Vintage", Name: "Vintage", Description: "Éléments rétro, nostalgique, éclairage chaleureux."},
	{ID: "Gamer", Name: "Gamer", Description: "Éclairage RGB, high-tech, esthétique de jeu moderne."},
	{ID: "Futuristic", Name: "Futuriste", Description: "Ultra-moderne, épuré, métallique, inspiration sci-fi."},
}

var ambiancePresets = []AmbiancePreset{
	{ID: "morning", Name: "Lumière du matin", Prompt: "Re-render this image with a bright and airy morning light, with sunlight streaming through the windows."},
	{ID: "evening", Name: "Soirée cosy", Prompt: "Re-render this image with a warm and cozy evening ambiance, using soft, warm artificial light from lamps."},
	{ID: "neon", Name: "Néon futuriste", Prompt: "Re-render this image with a futuristic neon vibe, using colored LED and neon lights to create a vibrant, modern mood."},
}

// Catalog returns the available base styles.
func Catalog() []Style {
	out := make([]Style, len(styleCatalog))
	copy(out, styleCatalog)
	return out
}

// StyleByID looks up a base or fused style. Fused IDs resolve as long as
// every component resolves.
func StyleByID(id string) (Style, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Style{}, false
	}
	if strings.Contains(id, fusionDelimiter) {
		parts := SplitStyleID(id)
		if len(parts) < 2 {
			return Style{}, false
		}
		resolved := make([]Style, 0, len(parts))
		for _, part := range parts {
			style, ok := StyleByID(part)
			if !ok {
				return Style{}, false
			}
			resolved = append(resolved, style)
		}
		return FuseStyles(resolved[0], resolved[1]), true
	}
	for _, style := range styleCatalog {
		if style.ID == id {
			return style, true
		}
	}
	return Style{}, false
}

// FuseStyles combines two base styles into a derived one.
func FuseStyles(a, b Style) Style {
	return Style{
		ID:          a.ID + fusionDelimiter + b.ID,
		Name:        a.Name + " + " + b.Name,
		Description: a.Description + " " + b.Description,
	}
}

// SplitStyleID breaks a style ID into its component base IDs. Plain IDs
// come back as a single element.
func SplitStyleID(id string) []string {
	parts := strings.Split(id, fusionDelimiter)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Ambiances returns the lighting presets.
func Ambiances() []AmbiancePreset {
	out := make([]AmbiancePreset, len(ambiancePresets))
	copy(out, ambiancePresets)
	return out
}

// AmbianceByID resolves a lighting preset.
func AmbianceByID(id string) (AmbiancePreset, bool) {
	for _, preset := range ambiancePresets {
		if preset.ID == id {
			return preset, true
		}
	}
	return AmbiancePreset{}, false
}
