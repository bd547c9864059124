package risk

import "sort"

// Focus is the outcome of focus selection: the term to investigate and
// how far ahead of the runner-up it was.
type Focus struct {
	Assessment         Assessment
	MarginOverRunnerUp float64
	Ranked             []Assessment
}

// SelectFocus picks exactly one term to investigate: the maximum risk
// score, ties broken by higher trailing-window breach count, then lower
// term ID. Selection happens every day, even when no term carries a
// positive risk, so the agent is always actively monitoring.
func SelectFocus(assessments []Assessment) *Focus {
	if len(assessments) == 0 {
		return nil
	}

	ranked := append([]Assessment(nil), assessments...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].RiskScore != ranked[j].RiskScore {
			return ranked[i].RiskScore > ranked[j].RiskScore
		}
		if ranked[i].WindowBreachDays != ranked[j].WindowBreachDays {
			return ranked[i].WindowBreachDays > ranked[j].WindowBreachDays
		}
		return ranked[i].Term.ID < ranked[j].Term.ID
	})

	margin := 0.0
	if len(ranked) > 1 {
		margin = round4(ranked[0].RiskScore - ranked[1].RiskScore)
	}
	return &Focus{
		Assessment:         ranked[0],
		MarginOverRunnerUp: margin,
		Ranked:             ranked,
	}
}
