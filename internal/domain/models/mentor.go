package models

// Mentor is a persona used to voice feedback. The advice fields are canned
// text for local synthesis, keyed by what the scene analysis observes.
type Mentor struct {
	ID         string       `json:"id" yaml:"id"`
	Name       string       `json:"name" yaml:"name"`
	Tone       string       `json:"tone" yaml:"tone"`
	Priorities []string     `json:"priorities" yaml:"priorities"`
	Voice      string       `json:"-" yaml:"voice"`
	Advice     MentorAdvice `json:"-" yaml:"advice"`
}

// MentorAdvice is the canned text a mentor contributes when no remote
// generator is available.
type MentorAdvice struct {
	Structure      string   `yaml:"structure"`
	MissingHeading string   `yaml:"missing_heading"`
	LongScene      string   `yaml:"long_scene"`
	HeavyDialogue  string   `yaml:"heavy_dialogue"`
	LightDialogue  string   `yaml:"light_dialogue"`
	Dialogue       string   `yaml:"dialogue"`
	CrowdedScene   string   `yaml:"crowded_scene"`
	Pacing         string   `yaml:"pacing"`
	ShortScene     string   `yaml:"short_scene"`
	Theme          string   `yaml:"theme"`
	Scratchpad     []string `yaml:"scratchpad"`
}
