package playbook

import "testing"

func TestIsCasual(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"hey", true},
		{"  Hi  ", true},
		{"ok", true},
		{"...", true},
		{"?!?!", true},
		{"hello there, how are you?", true},
		{"Thank you so much", true},
		{"lol ok cool", true},
		{"okay okay", true},
		{"history exam tomorrow", false},
		{"I'm overwhelmed with exams", false},
		{"this week is really heavy", false},
		{"1234 5678", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := IsCasual(tt.text); got != tt.want {
				t.Errorf("IsCasual(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}
