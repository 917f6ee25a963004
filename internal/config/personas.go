package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Persona is a named assistant preset: the system message a new chat starts
// with and, optionally, the service it is bound to.
type Persona struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	SystemMessage string `json:"system_message"`
	ServiceID     string `json:"service_id,omitempty"`
}

// PersonaSet is the content of personas.json.
type PersonaSet struct {
	Personas       []Persona `json:"personas"`
	DefaultPersona string    `json:"default_persona,omitempty"`
}

const (
	maxPersonaName   = 50
	maxSystemMessage = 32 * 1024
)

// DefaultPersonas returns the built-in presets
func DefaultPersonas() []Persona {
	return []Persona{
		{
			Name:        "default",
			Description: "General assistant",
		},
		{
			Name:          "coder",
			Description:   "Programming help",
			SystemMessage: "You are an experienced software engineer. Answer with working code and short explanations. Prefer idiomatic solutions and point out pitfalls.",
		},
		{
			Name:          "editor",
			Description:   "Proofreading and rewriting",
			SystemMessage: "You are a careful editor. Fix grammar and clarity while keeping the author's voice. Return the revised text first, then a short list of notable changes.",
		},
		{
			Name:          "tutor",
			Description:   "Step by step explanations",
			SystemMessage: "You are a patient tutor. Explain concepts step by step with small examples and check understanding before moving on.",
		},
	}
}

// LoadPersonas reads the persona file at path. Built-in presets are always
// present; entries in the file override them by name.
func LoadPersonas(path string) (*PersonaSet, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &PersonaSet{Personas: DefaultPersonas(), DefaultPersona: "default"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read personas: %w", err)
	}

	var set PersonaSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("failed to parse personas: %w", err)
	}
	set.Personas = mergePersonas(DefaultPersonas(), set.Personas)
	if set.DefaultPersona == "" {
		set.DefaultPersona = "default"
	}
	return &set, nil
}

// SavePersonas writes set to path.
func SavePersonas(path string, set *PersonaSet) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal personas: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Find returns the persona with the given name.
func (s *PersonaSet) Find(name string) (Persona, bool) {
	for _, p := range s.Personas {
		if p.Name == name {
			return p, true
		}
	}
	return Persona{}, false
}

// Default returns the default persona.
func (s *PersonaSet) Default() Persona {
	if p, ok := s.Find(s.DefaultPersona); ok {
		return p
	}
	return DefaultPersonas()[0]
}

// Add inserts or replaces a persona after validating it.
func (s *PersonaSet) Add(p Persona) error {
	if err := ValidatePersona(p); err != nil {
		return err
	}
	for i := range s.Personas {
		if s.Personas[i].Name == p.Name {
			s.Personas[i] = p
			return nil
		}
	}
	s.Personas = append(s.Personas, p)
	return nil
}

// Remove deletes a persona. The "default" preset cannot be removed.
func (s *PersonaSet) Remove(name string) error {
	if name == "default" {
		return fmt.Errorf("cannot delete the default persona")
	}
	for i, p := range s.Personas {
		if p.Name == name {
			s.Personas = append(s.Personas[:i], s.Personas[i+1:]...)
			if s.DefaultPersona == name {
				s.DefaultPersona = "default"
			}
			return nil
		}
	}
	return fmt.Errorf("persona '%s' not found", name)
}

func mergePersonas(defaults, custom []Persona) []Persona {
	out := make([]Persona, len(defaults))
	copy(out, defaults)
	for _, cp := range custom {
		replaced := false
		for i := range out {
			if out[i].Name == cp.Name {
				out[i] = cp
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, cp)
		}
	}
	return out
}

// ValidatePersona checks name characters and field lengths.
func ValidatePersona(p Persona) error {
	if p.Name == "" {
		return fmt.Errorf("persona name is required")
	}
	if len(p.Name) > maxPersonaName {
		return fmt.Errorf("persona name too long (max %d characters)", maxPersonaName)
	}
	for _, c := range p.Name {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-') {
			return fmt.Errorf("persona name must contain only letters, digits, '_' and '-'")
		}
	}
	if len(p.SystemMessage) > maxSystemMessage {
		return fmt.Errorf("system message too long (max %d bytes)", maxSystemMessage)
	}
	return nil
}
