package util

import (
	"strings"
	"sync"
	"testing"
)

func TestGenerateRandomHex(t *testing.T) {
	tests := []struct {
		name   string
		length int
		want   int
	}{
		{"zero length", 0, 0},
		{"negative length", -1, 0},
		{"odd length", 7, 7},
		{"small length", 8, 8},
		{"large length", 64, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateRandomHex(tt.length)

			if len(got) != tt.want {
				t.Errorf("GenerateRandomHex() length = %v, want %v", len(got), tt.want)
			}

			if tt.want > 0 && !isValidHex(got) {
				t.Errorf("GenerateRandomHex() = %v is not valid hex", got)
			}
		})
	}
}

func TestGenerateSessionID(t *testing.T) {
	got := GenerateSessionID()

	if !strings.HasPrefix(got, "s_") {
		t.Errorf("GenerateSessionID() = %v, want prefix s_", got)
	}
	if len(got) != 34 { // "s_" + 32 hex chars
		t.Errorf("GenerateSessionID() length = %v, want 34", len(got))
	}
	if !isValidHex(got[2:]) {
		t.Errorf("GenerateSessionID() hex part = %v is not valid hex", got[2:])
	}
}

func TestRandomIDUniqueness(t *testing.T) {
	const iterations = 1000
	seen := make(map[string]bool)

	for i := 0; i < iterations; i++ {
		id := GenerateRandomID("test_", 16)
		if seen[id] {
			t.Errorf("GenerateRandomID() generated duplicate: %v", id)
		}
		seen[id] = true
	}
}

func TestSeededPickerIsReproducible(t *testing.T) {
	pool := []string{"a", "b", "c", "d", "e"}
	p1 := NewSeededPicker(7, 11)
	p2 := NewSeededPicker(7, 11)

	for i := 0; i < 50; i++ {
		if a, b := p1.Choice(pool), p2.Choice(pool); a != b {
			t.Fatalf("draw %d differs: %q vs %q", i, a, b)
		}
	}
}

func TestPickerChoiceEdgeCases(t *testing.T) {
	p := NewSeededPicker(1, 2)
	if got := p.Choice(nil); got != "" {
		t.Errorf("Choice(nil) = %q, want empty", got)
	}
	if got := p.Choice([]string{"only"}); got != "only" {
		t.Errorf("Choice(single) = %q, want only", got)
	}
	if got := p.IntN(0); got != 0 {
		t.Errorf("IntN(0) = %d, want 0", got)
	}
}

func TestPickerConcurrentUse(t *testing.T) {
	p := NewPicker()
	pool := []string{"x", "y", "z"}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if got := p.Choice(pool); got == "" {
					t.Errorf("Choice returned empty string")
					return
				}
			}
		}()
	}
	wg.Wait()
}

// Helper function to validate hex strings
func isValidHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}
