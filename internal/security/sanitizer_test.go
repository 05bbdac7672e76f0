package security

import (
	"strings"
	"testing"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Plain", "Red Rooster", "Red Rooster"},
		{"Trim", "  Lemon Grass  ", "Lemon Grass"},
		{"Tags stripped", "<b>Bantay</b><script>alert(1)</script>", "Bantay"},
		{"Ampersand kept", "Tom & Jerry", "Tom & Jerry"},
		{"Null bytes", "ab\x00c", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeString_Length(t *testing.T) {
	got := SanitizeString(strings.Repeat("x", MaxTextLength+50))
	if len(got) != MaxTextLength {
		t.Errorf("len = %d, want %d", len(got), MaxTextLength)
	}
}

func TestDeviceID(t *testing.T) {
	if got := DeviceID(" gate-2 "); got != "gate-2" {
		t.Errorf("DeviceID() = %q, want configured value", got)
	}
	a, b := DeviceID(""), DeviceID("")
	if a == "" || a != b {
		t.Errorf("generated device ids should be non-empty and stable: %q %q", a, b)
	}
}

func TestDeriveDeviceID(t *testing.T) {
	id := deriveDeviceID("gate", "00:1a:2b:3c:4d:5e")
	if !strings.HasPrefix(id, "gate-") || len(id) != len("gate-")+8 {
		t.Errorf("deriveDeviceID() = %q, want gate- plus 8 chars", id)
	}
	if again := deriveDeviceID("gate", "00:1a:2b:3c:4d:5e"); again != id {
		t.Errorf("deriveDeviceID() not stable: %q vs %q", id, again)
	}
	if other := deriveDeviceID("gate", "00:1a:2b:3c:4d:5f"); other == id {
		t.Errorf("different hardware addresses gave the same id %q", id)
	}
}
