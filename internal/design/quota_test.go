package design

import (
	"testing"

	"xelda/internal/storage"
)

func TestCanGenerate(t *testing.T) {
	cases := []struct {
		name  string
		quota storage.UsageQuota
		want  bool
	}{
		{"unlimited ignores usage", storage.UsageQuota{Plan: "pro", Used: 999, Limit: storage.UnlimitedGenerations}, true},
		{"at limit", storage.UsageQuota{Plan: "free", Used: 10, Limit: 10}, false},
		{"under limit", storage.UsageQuota{Plan: "free", Used: 9, Limit: 10}, true},
		{"over limit", storage.UsageQuota{Plan: "free", Used: 11, Limit: 10}, false},
		{"zero limit", storage.UsageQuota{Plan: "free", Used: 0, Limit: 0}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanGenerate(tc.quota); got != tc.want {
				t.Fatalf("CanGenerate(%+v) = %v, want %v", tc.quota, got, tc.want)
			}
		})
	}
}
