// Package tokens implements the per-user token ledger: affordability checks,
// tier policy and atomic deductions.
package tokens

import (
	"fmt"
	"time"

	"scriptmentor/internal/domain"
	"scriptmentor/internal/domain/models"
)

// ResetCycle is the period after which a balance is restored to the allowance
const ResetCycle = 30 * 24 * time.Hour

const (
	criticalFloor    = 10
	criticalFraction = 0.05
)

// ActionPolicy is the cost and minimum tier of an action
type ActionPolicy struct {
	Cost        int         `json:"cost"`
	MinimumTier models.Tier `json:"minimum_tier"`
}

var actionPolicies = map[models.ActionType]ActionPolicy{
	models.ActionSingleFeedback:     {Cost: 10, MinimumTier: models.TierFree},
	models.ActionRewriteSuggestions: {Cost: 15, MinimumTier: models.TierFree},
	models.ActionBlendedFeedback:    {Cost: 25, MinimumTier: models.TierCreator},
	models.ActionWriterAgent:        {Cost: 30, MinimumTier: models.TierPro},
	models.ActionChunkedFeedback:    {Cost: 50, MinimumTier: models.TierCreator},
}

var monthlyAllowances = map[models.Tier]int{
	models.TierFree:    100,
	models.TierCreator: 500,
	models.TierPro:     1500,
}

// Policy returns the policy for an action
func Policy(action models.ActionType) (ActionPolicy, error) {
	p, ok := actionPolicies[action]
	if !ok {
		return ActionPolicy{}, &domain.ValidationError{Message: fmt.Sprintf("unknown action type %q", action)}
	}
	return p, nil
}

// Policies returns a copy of the full action table
func Policies() map[models.ActionType]ActionPolicy {
	out := make(map[models.ActionType]ActionPolicy, len(actionPolicies))
	for k, v := range actionPolicies {
		out[k] = v
	}
	return out
}

// Allowance returns the monthly allowance of a tier. Unknown tiers get the
// free allowance.
func Allowance(tier models.Tier) int {
	if a, ok := monthlyAllowances[tier]; ok {
		return a
	}
	return monthlyAllowances[models.TierFree]
}

// ValidTier reports whether tier is one of the known tiers
func ValidTier(tier models.Tier) bool {
	_, ok := monthlyAllowances[tier]
	return ok
}

// CriticalThreshold is max(10, 5% of the allowance)
func CriticalThreshold(allowance int) int {
	return max(criticalFloor, int(float64(allowance)*criticalFraction))
}

// CheckTierPermission looks up the static tier policy. Unknown actions are
// denied.
func CheckTierPermission(tier models.Tier, action models.ActionType) models.TierPermission {
	p, ok := actionPolicies[action]
	if !ok {
		return models.TierPermission{Allowed: false, Reason: fmt.Sprintf("unknown action type %q", action)}
	}
	if tier.Rank() >= p.MinimumTier.Rank() {
		return models.TierPermission{Allowed: true}
	}
	return models.TierPermission{
		Allowed:             false,
		MinimumTierRequired: p.MinimumTier,
		Reason:              fmt.Sprintf("%s requires the %s tier or higher", action, p.MinimumTier),
	}
}
