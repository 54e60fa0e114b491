package compliance

import "math"

// Classify places amount against [min, max]:
//
//	amount < min        deficient
//	amount <= max       optimal
//	amount <= max*1.5   excessive
//	otherwise           dangerous
//
// Amounts below min*0.5 are also deficient; there is no separate severe
// tier.
func Classify(amount, min, max float64) Status {
	switch {
	case amount < min*0.5:
		return StatusDeficient
	case amount < min:
		return StatusDeficient
	case amount <= max:
		return StatusOptimal
	case amount <= max*1.5:
		return StatusExcessive
	default:
		return StatusDangerous
	}
}

// CompliancePercentage is amount as a percentage of the range midpoint,
// capped at 100. The status, not the percentage, tells excess from
// shortfall. A zero midpoint yields 0.
func CompliancePercentage(amount, min, max float64) float64 {
	mid := (min + max) / 2
	if mid <= 0 {
		return 0
	}
	return math.Min(100, amount/mid*100)
}

// Rate reduces findings and issues to an overall rating. Rules are checked
// top-down and the first match wins:
//
//  1. any dangerous finding or critical issue: dangerous
//  2. average >= 90 and no issues: excellent
//  3. average >= 75 and at most two warnings: good
//  4. average >= 60: acceptable
//  5. otherwise: poor
func Rate(findings []Finding, issues []Issue, average float64) Rating {
	for _, f := range findings {
		if f.Status == StatusDangerous {
			return RatingDangerous
		}
	}
	warnings := 0
	for _, is := range issues {
		switch is.Severity {
		case SeverityCritical:
			return RatingDangerous
		case SeverityWarning:
			warnings++
		}
	}
	switch {
	case average >= 90 && len(issues) == 0:
		return RatingExcellent
	case average >= 75 && warnings <= 2:
		return RatingGood
	case average >= 60:
		return RatingAcceptable
	default:
		return RatingPoor
	}
}

// AverageCompliance is the unweighted mean compliance percentage; 0 when
// there are no findings.
func AverageCompliance(findings []Finding) float64 {
	if len(findings) == 0 {
		return 0
	}
	var sum float64
	for _, f := range findings {
		sum += f.CompliancePercentage
	}
	return sum / float64(len(findings))
}
