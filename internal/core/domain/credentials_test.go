package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "(empty)"},
		{"abc", "***"},
		{"abcd", "****"},
		{"0123456789abcdef", "************cdef"},
	}

	for _, tt := range tests {
		if got := MaskSecret(tt.in); got != tt.want {
			t.Errorf("MaskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCredentials_NeverLeakKey(t *testing.T) {
	c := Credentials{AppID: "APP123", APIKey: "super-secret-key"}

	if strings.Contains(c.String(), "super-secret") {
		t.Errorf("String() leaked the key: %s", c.String())
	}

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(string(data), "super-secret") {
		t.Errorf("JSON leaked the key: %s", data)
	}
}
