package service

import (
	"math"

	"github.com/schoolpulse/insights-api/internal/dto"
	"github.com/schoolpulse/insights-api/internal/models"
)

// Risk bucket labels used across summaries and histories. HIGH and CRITICAL
// collapse into "high"; so does any unknown stored value.
const (
	riskLabelLow    = "low"
	riskLabelMedium = "medium"
	riskLabelHigh   = "high"
)

// roundRate rounds to one decimal place, half away from zero.
func roundRate(v float64) float64 {
	return math.Round(v*10) / 10
}

// completionRate converts done/total into a percentage rounded to one
// decimal. A non-positive total yields 0, never a division error, and the
// result is clamped to [0, 100].
func completionRate(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	rate := roundRate(float64(done) / float64(total) * 100)
	if rate < 0 {
		return 0
	}
	if rate > 100 {
		return 100
	}
	return rate
}

// clampCount floors done at its denominator. This is the secondary guard for
// purely count-based denominators; identity-carrying sets are reconciled by
// union instead.
func clampCount(done, total int) int {
	if done > total {
		return total
	}
	return done
}

// familyCompletion assembles the done/total/rate triple with the count guard
// applied.
func familyCompletion(done, total int) dto.FamilyCompletion {
	done = clampCount(done, total)
	return dto.FamilyCompletion{Done: done, Total: total, Rate: completionRate(done, total)}
}

// zeroGuardRate applies the policy for absent denominators: nothing assigned
// and nothing done is 0%, nothing assigned but recorded work is 100%. The
// latter covers historical rows whose assignments were since removed.
func zeroGuardRate(done, total int) float64 {
	if total <= 0 {
		if done > 0 {
			return 100
		}
		return 0
	}
	return completionRate(clampCount(done, total), total)
}

// foldRisk maps a stored risk level onto the three reporting buckets.
// An absent level reads as low.
func foldRisk(level *models.RiskLevel) string {
	if level == nil {
		return riskLabelLow
	}
	switch *level {
	case models.RiskLow:
		return riskLabelLow
	case models.RiskMedium:
		return riskLabelMedium
	default:
		return riskLabelHigh
	}
}

// scoreRiskLabel buckets a score/max ratio. Wellbeing instruments score
// distress, so a higher ratio means higher risk.
func scoreRiskLabel(score, maxScore float64) string {
	if maxScore <= 0 {
		return riskLabelLow
	}
	ratio := score / maxScore
	switch {
	case ratio < 0.33:
		return riskLabelLow
	case ratio < 0.66:
		return riskLabelMedium
	default:
		return riskLabelHigh
	}
}

// scorePercent converts a score/max pair into a clamped percentage with one
// decimal.
func scorePercent(score, maxScore float64) float64 {
	if maxScore <= 0 {
		return 0
	}
	pct := roundRate(score / maxScore * 100)
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// engagementScore folds completed assessments and attended webinars into a
// single 0..100 index.
func engagementScore(completedAssessments, attendedWebinars int) float64 {
	score := float64(completedAssessments*10 + attendedWebinars*5)
	if score > 100 {
		return 100
	}
	return score
}

// meanFloat returns the mean of the non-nil samples, or nil when every sample
// is absent.
func meanFloat(values []*float64) *float64 {
	var sum float64
	var n int
	for _, v := range values {
		if v == nil {
			continue
		}
		sum += *v
		n++
	}
	if n == 0 {
		return nil
	}
	mean := roundRate(sum / float64(n))
	return &mean
}
