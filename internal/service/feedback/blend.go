package feedback

import (
	"fmt"
	"math"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"scriptmentor/internal/config"
	"scriptmentor/internal/domain"
	"scriptmentor/internal/domain/models"
)

// SecondaryInfluenceThreshold is the share a non-dominant mentor must
// exceed to contribute to local blended feedback.
const SecondaryInfluenceThreshold = 0.2

type blendEntry struct {
	mentor models.Mentor
	share  float64
}

// blend is a validated, normalized mentor mix.
type blend struct {
	entries  []blendEntry
	dominant int
}

// newBlend normalizes weights to shares of their sum. The dominant mentor
// is the first one holding the largest weight, so equal weights resolve to
// input order.
func newBlend(weights []models.MentorWeight, lookup func(string) (models.Mentor, error)) (*blend, error) {
	if err := validateWeights(weights); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var largest float64
	seen := make(map[string]bool, len(weights))
	for _, w := range weights {
		if seen[w.MentorID] {
			return nil, fmt.Errorf("%w: mentor %q appears more than once in the blend", domain.ErrValidation, w.MentorID)
		}
		seen[w.MentorID] = true
		largest = max(largest, w.Weight)
	}
	// scaled to the largest weight so the sum stays finite
	var sum float64
	for _, w := range weights {
		sum += w.Weight / largest
	}

	b := &blend{entries: make([]blendEntry, 0, len(weights))}
	for i, w := range weights {
		m, err := lookup(w.MentorID)
		if err != nil {
			return nil, err
		}
		b.entries = append(b.entries, blendEntry{mentor: m, share: w.Weight / largest / sum})
		if w.Weight > weights[b.dominant].Weight {
			b.dominant = i
		}
	}
	return b, nil
}

func validateWeights(weights []models.MentorWeight) error {
	if err := validation.Validate(weights,
		validation.Required.Error("at least one mentor is required"),
		validation.Length(1, config.MaxBlendMentors),
	); err != nil {
		return err
	}
	for i := range weights {
		w := &weights[i]
		if math.IsInf(w.Weight, 0) || math.IsNaN(w.Weight) {
			return fmt.Errorf("mentors[%d].weight: must be a finite number", i)
		}
		if err := validation.ValidateStruct(w,
			validation.Field(&w.MentorID, validation.Required),
			validation.Field(&w.Weight, validation.Required, validation.Min(0.0).Exclusive()),
		); err != nil {
			return fmt.Errorf("mentors[%d]: %w", i, err)
		}
	}
	return nil
}

func (b *blend) dominantEntry() blendEntry {
	return b.entries[b.dominant]
}

// secondaries returns non-dominant entries whose share exceeds the
// threshold, in input order.
func (b *blend) secondaries() []blendEntry {
	var out []blendEntry
	for i, e := range b.entries {
		if i != b.dominant && e.share > SecondaryInfluenceThreshold {
			out = append(out, e)
		}
	}
	return out
}

// influences reports every mentor's share in percent, rounded to one
// decimal place.
func (b *blend) influences() []models.MentorInfluence {
	out := make([]models.MentorInfluence, len(b.entries))
	for i, e := range b.entries {
		out[i] = models.MentorInfluence{
			MentorID:  e.mentor.ID,
			Name:      e.mentor.Name,
			Influence: math.Round(e.share*1000) / 10,
			Dominant:  i == b.dominant,
		}
	}
	return out
}

func percent(share float64) string {
	return strconv.FormatFloat(math.Round(share*100), 'f', 0, 64) + "%"
}
