package domain

type Verdict string

const (
	VerdictCompliant        Verdict = "COMPLIANT"
	VerdictNonCompliant     Verdict = "NON_COMPLIANT"
	VerdictNotApplicable    Verdict = "NOT_APPLICABLE"
	VerdictInsufficientData Verdict = "INSUFFICIENT_DATA"
)

// Decisive reports whether the verdict counts towards the compliance score.
func (v Verdict) Decisive() bool {
	return v == VerdictCompliant || v == VerdictNonCompliant
}
