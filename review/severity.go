package review

// Severity classifies how important a finding is. It is the canonical
// representation across the whole system: analyzers and the decision engine
// use the string form, while the feedback loop adjusts severities on the
// equivalent 1-4 integer rank (low=1 ... critical=4).
type Severity string

// Severity levels, ordered from least to most important.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityRanks maps each severity to its integer rank.
var severityRanks = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the 1-4 integer rank for s. Unknown severities rank as 0 so
// they sort below low.
func (s Severity) Rank() int {
	return severityRanks[s]
}

// Valid reports whether s is one of the four known severity levels.
func (s Severity) Valid() bool {
	_, ok := severityRanks[s]
	return ok
}

// SeverityFromRank converts a 1-4 rank back to a Severity. Ranks are clamped
// into range, so 0 maps to low and 5 maps to critical.
func SeverityFromRank(rank int) Severity {
	switch {
	case rank <= 1:
		return SeverityLow
	case rank == 2:
		return SeverityMedium
	case rank == 3:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}
