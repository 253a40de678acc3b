package config

import (
	"strings"
	"testing"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"short fully masked", "secret", maskedValue},
		{"exactly eight fully masked", "12345678", maskedValue},
		{"long keeps edges", "super-secret-password", "su<" + maskedValue + ">rd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskSecret(tt.in); got != tt.want {
				t.Errorf("maskSecret(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestConfigStringMasksPassword(t *testing.T) {
	c := Config{PostgresPassword: "super-secret-password"}
	out := c.String()
	if strings.Contains(out, "super-secret-password") {
		t.Fatalf("password leaked into String(): %s", out)
	}
	if !strings.Contains(out, maskedValue) {
		t.Errorf("masked placeholder missing from %s", out)
	}
}

func TestFullModelName(t *testing.T) {
	tests := []struct {
		provider string
		model    string
		want     string
	}{
		{ProviderOpenAI, "gpt-4o", "openai/gpt-4o"},
		{ProviderGemini, "gemini-2.5-flash", "googleai/gemini-2.5-flash"},
		{ProviderGoogleAI, "gemini-2.5-flash", "googleai/gemini-2.5-flash"},
		{ProviderOllama, "llama3.3", "ollama/llama3.3"},
		{"", "gpt-4o", "openai/gpt-4o"},
		{ProviderOpenAI, "custom/already-qualified", "custom/already-qualified"},
	}
	for _, tt := range tests {
		c := &Config{Provider: tt.provider, ModelName: tt.model}
		if got := c.FullModelName(); got != tt.want {
			t.Errorf("FullModelName(%s, %s) = %q, want %q", tt.provider, tt.model, got, tt.want)
		}
	}
}
