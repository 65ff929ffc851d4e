package design

import (
	"reflect"
	"testing"
)

func TestCatalogHasTenStyles(t *testing.T) {
	catalog := Catalog()
	if len(catalog) != 10 {
		t.Fatalf("catalog size = %d", len(catalog))
	}
	seen := make(map[string]bool)
	for _, style := range catalog {
		if style.ID == "" || style.Name == "" || style.Description == "" {
			t.Fatalf("incomplete style %+v", style)
		}
		if seen[style.ID] {
			t.Fatalf("duplicate style id %q", style.ID)
		}
		seen[style.ID] = true
	}
}

func TestStyleByIDResolvesFusions(t *testing.T) {
	style, ok := StyleByID("Modern+Cozy")
	if !ok {
		t.Fatal("fused id did not resolve")
	}
	if style.ID != "Modern+Cozy" {
		t.Fatalf("id = %q", style.ID)
	}
	if style.Name != "Moderne + Cozy" {
		t.Fatalf("name = %q", style.Name)
	}

	if _, ok := StyleByID("Modern+Nope"); ok {
		t.Fatal("fusion with unknown component resolved")
	}
	if _, ok := StyleByID(""); ok {
		t.Fatal("empty id resolved")
	}
}

func TestSplitStyleID(t *testing.T) {
	if got := SplitStyleID("Modern+Cozy"); !reflect.DeepEqual(got, []string{"Modern", "Cozy"}) {
		t.Fatalf("split = %v", got)
	}
	if got := SplitStyleID("Modern"); !reflect.DeepEqual(got, []string{"Modern"}) {
		t.Fatalf("split plain = %v", got)
	}
}

func TestAmbiancePresets(t *testing.T) {
	presets := Ambiances()
	if len(presets) != 3 {
		t.Fatalf("presets = %d", len(presets))
	}
	for _, id := range []string{"morning", "evening", "neon"} {
		preset, ok := AmbianceByID(id)
		if !ok {
			t.Fatalf("preset %q missing", id)
		}
		if preset.Prompt == "" {
			t.Fatalf("preset %q has no prompt", id)
		}
	}
	if _, ok := AmbianceByID("midnight"); ok {
		t.Fatal("unknown preset resolved")
	}
}
