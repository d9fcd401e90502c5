package mentors

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"scriptmentor/internal/domain/models"
)

// Catalog is the decoded mentors file. Mentors keep the order they are
// written in, which is the order they are listed to clients.
type Catalog struct {
	Defaults models.MentorAdvice `yaml:"defaults"`
	Mentors  []models.Mentor     `yaml:"-"`
}

// UnmarshalYAML implements custom YAML unmarshaling to preserve mentor order from YAML file
func (c *Catalog) UnmarshalYAML(node *yaml.Node) error {
	type plain struct {
		Defaults models.MentorAdvice      `yaml:"defaults"`
		Mentors  map[string]models.Mentor `yaml:"mentors"`
	}
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	c.Defaults = p.Defaults

	// node.Content alternates key, value, key, value...
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != "mentors" {
			continue
		}
		mentorsNode := node.Content[i+1]
		for j := 0; j+1 < len(mentorsNode.Content); j += 2 {
			id := mentorsNode.Content[j].Value
			m, ok := p.Mentors[id]
			if !ok {
				continue
			}
			if m.ID != "" && m.ID != id {
				return fmt.Errorf("mentor %q declares mismatched id %q", id, m.ID)
			}
			m.ID = id
			c.Mentors = append(c.Mentors, m)
		}
		break
	}

	return nil
}

// fill copies any empty advice field from defaults
func fill(a *models.MentorAdvice, defaults models.MentorAdvice) {
	set := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	set(&a.Structure, defaults.Structure)
	set(&a.MissingHeading, defaults.MissingHeading)
	set(&a.LongScene, defaults.LongScene)
	set(&a.HeavyDialogue, defaults.HeavyDialogue)
	set(&a.LightDialogue, defaults.LightDialogue)
	set(&a.Dialogue, defaults.Dialogue)
	set(&a.CrowdedScene, defaults.CrowdedScene)
	set(&a.Pacing, defaults.Pacing)
	set(&a.ShortScene, defaults.ShortScene)
	set(&a.Theme, defaults.Theme)
	if len(a.Scratchpad) == 0 {
		a.Scratchpad = append([]string(nil), defaults.Scratchpad...)
	}
}
