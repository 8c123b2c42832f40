// Package tutor holds the tutor persona catalog and per-user persona
// preferences.
package tutor

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DefaultPersonaID is used when a user has no stored preference.
const DefaultPersonaID = "friendly_alice"

// ErrPersonaNotFound indicates an unknown persona id.
var ErrPersonaNotFound = errors.New("persona not found")

// Persona describes a tutor's teaching character. Its fields drive prompt
// construction in the content generator.
type Persona struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	CharacterStyle string `json:"character_style"`
	HumorLevel     string `json:"humor_level"`
	Tone           string `json:"tone"`
	Complexity     string `json:"complexity"`
	Description    string `json:"description"`
}

// Catalog is a thread-safe persona registry with per-user preferences.
type Catalog struct {
	mu          sync.RWMutex
	personas    map[string]Persona
	preferences map[string]string
}

// NewCatalog creates a catalog seeded with the built-in personas.
func NewCatalog() *Catalog {
	c := &Catalog{
		personas:    make(map[string]Persona),
		preferences: make(map[string]string),
	}
	for _, p := range builtinPersonas() {
		c.personas[p.ID] = p
	}
	return c
}

func builtinPersonas() []Persona {
	return []Persona{
		{
			ID:             "friendly_alice",
			Name:           "Alice",
			CharacterStyle: "friendly",
			HumorLevel:     "light",
			Tone:           "encouraging",
			Complexity:     "simple",
			Description:    "A warm, patient tutor who breaks everything into small steps.",
		},
		{
			ID:             "professor_bob",
			Name:           "Professor Bob",
			CharacterStyle: "professional",
			HumorLevel:     "none",
			Tone:           "formal",
			Complexity:     "detailed",
			Description:    "A rigorous academic who favors precise, thorough explanations.",
		},
		{
			ID:             "funny_charlie",
			Name:           "Charlie",
			CharacterStyle: "funny",
			HumorLevel:     "high",
			Tone:           "playful",
			Complexity:     "simple",
			Description:    "A comedian at heart who teaches through jokes and absurd examples.",
		},
		{
			ID:             "coach_dana",
			Name:           "Coach Dana",
			CharacterStyle: "motivational",
			HumorLevel:     "light",
			Tone:           "energetic",
			Complexity:     "moderate",
			Description:    "A high-energy coach who turns every lesson into a training session.",
		},
	}
}

// ByID returns the persona with the given id.
func (c *Catalog) ByID(id string) (Persona, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.personas[id]
	if !ok {
		return Persona{}, fmt.Errorf("%w: %s", ErrPersonaNotFound, id)
	}
	return p, nil
}

// All returns every persona, ordered by id.
func (c *Catalog) All() []Persona {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Persona, 0, len(c.personas))
	for _, p := range c.personas {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetPreference stores a user's preferred persona.
func (c *Catalog) SetPreference(userID, personaID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.personas[personaID]; !ok {
		return fmt.Errorf("%w: %s", ErrPersonaNotFound, personaID)
	}
	c.preferences[userID] = personaID
	return nil
}

// PreferenceFor returns the user's preferred persona, falling back to the
// default persona when no preference is stored.
func (c *Catalog) PreferenceFor(userID string) Persona {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.preferences[userID]
	if !ok {
		id = DefaultPersonaID
	}
	return c.personas[id]
}

// Get resolves a persona id, falling back to the user's preference (or the
// default) when id is empty or unknown.
func (c *Catalog) Get(userID, personaID string) Persona {
	if personaID != "" {
		if p, err := c.ByID(personaID); err == nil {
			return p
		}
	}
	return c.PreferenceFor(userID)
}
