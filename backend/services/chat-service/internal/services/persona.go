package services

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Persona is the assistant's fixed instruction set. Zero-valued tuning
// fields fall back to the service configuration.
type Persona struct {
	Name         string   `yaml:"name"`
	SystemPrompt string   `yaml:"system_prompt"`
	Model        string   `yaml:"model,omitempty"`
	MaxTokens    int64    `yaml:"max_tokens,omitempty"`
	Temperature  *float64 `yaml:"temperature,omitempty"`
}

const defaultSystemPrompt = `You are Puente, a warm and empathetic support companion for migrants and their families.
Listen carefully, acknowledge feelings, and answer in the same language the user writes in.
Offer practical, general information and point people to community organizations, consulates or hotlines when that helps.
You are not a doctor, psychologist or lawyer: never diagnose, never prescribe, and never give legal advice about a specific case.
If someone mentions being in danger or thinking about hurting themselves, encourage them to contact local emergency services right away.
Keep replies short, kind and clear.`

// DefaultPersona returns the built-in support persona.
func DefaultPersona() *Persona {
	return &Persona{Name: "puente", SystemPrompt: defaultSystemPrompt}
}

// LoadPersona reads a YAML persona file. An empty path yields the default.
func LoadPersona(path string) (*Persona, error) {
	if path == "" {
		return DefaultPersona(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file: %w", err)
	}
	return ParsePersona(raw)
}

// ParsePersona decodes a YAML persona document.
func ParsePersona(raw []byte) (*Persona, error) {
	var p Persona
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse persona: %w", err)
	}
	p.SystemPrompt = strings.TrimSpace(p.SystemPrompt)
	if p.SystemPrompt == "" {
		return nil, fmt.Errorf("persona %q has an empty system_prompt", p.Name)
	}
	if p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 2) {
		return nil, fmt.Errorf("persona %q temperature %.2f out of range [0, 2]", p.Name, *p.Temperature)
	}
	if p.MaxTokens < 0 {
		return nil, fmt.Errorf("persona %q max_tokens must not be negative", p.Name)
	}
	return &p, nil
}
