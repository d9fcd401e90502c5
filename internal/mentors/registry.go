// Package mentors loads the mentor personas used to voice feedback.
package mentors

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"scriptmentor/internal/domain"
	"scriptmentor/internal/domain/models"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Registry is an immutable, ordered mentor table.
type Registry struct {
	mentors []models.Mentor
	byID    map[string]int
}

// NewRegistry loads the embedded mentor catalog
func NewRegistry() (*Registry, error) {
	data, err := configFiles.ReadFile("config/mentors.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read mentors.yaml: %w", err)
	}
	return Parse(data)
}

// Parse builds a registry from catalog YAML. Advice fields a mentor leaves
// empty are taken from the defaults block.
func Parse(data []byte) (*Registry, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mentor catalog: %w", err)
	}
	if len(catalog.Mentors) == 0 {
		return nil, fmt.Errorf("mentor catalog is empty")
	}

	r := &Registry{byID: make(map[string]int, len(catalog.Mentors))}
	for _, m := range catalog.Mentors {
		if m.ID == models.BlendedMentorID {
			return nil, fmt.Errorf("mentor id %q is reserved", m.ID)
		}
		if m.Name == "" {
			m.Name = m.ID
		}
		fill(&m.Advice, catalog.Defaults)
		r.byID[m.ID] = len(r.mentors)
		r.mentors = append(r.mentors, m)
	}
	return r, nil
}

// Get returns a mentor by ID
func (r *Registry) Get(id string) (models.Mentor, error) {
	i, ok := r.byID[id]
	if !ok {
		return models.Mentor{}, &domain.ValidationError{Message: fmt.Sprintf("unknown mentor %q", id)}
	}
	return r.mentors[i], nil
}

// List returns all mentors in catalog order
func (r *Registry) List() []models.Mentor {
	return append([]models.Mentor(nil), r.mentors...)
}
