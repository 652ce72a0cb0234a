package recognition

// Decider applies the threshold policy to ranked query candidates.
// Threshold is a cosine similarity in [0,1]; higher is stricter. This is the
// inverse sense of a Euclidean-distance threshold — do not mix the two.
type Decider struct {
	// Threshold is the minimum similarity required to accept a match
	// (strict >= semantics).
	Threshold float64

	// AmbiguityMargin is how close the runner-up may score before the match
	// is reported as ambiguous rather than recognized. Zero disables the
	// ambiguity check and the top candidate always wins.
	AmbiguityMargin float64
}

// Decide turns a ranked candidate list into a verdict. Pure function: no side
// effects, deterministic given its inputs.
func (d Decider) Decide(candidates []Candidate) Verdict {
	if len(candidates) == 0 {
		return Verdict{Kind: VerdictUnknown}
	}

	top := candidates[0]
	if top.Score < d.Threshold {
		return Verdict{Kind: VerdictUnknown, BestScore: top.Score}
	}

	if d.AmbiguityMargin > 0 && len(candidates) > 1 {
		second := candidates[1]
		if second.Score >= d.Threshold && top.Score-second.Score < d.AmbiguityMargin {
			return Verdict{
				Kind:       VerdictAmbiguous,
				BestScore:  top.Score,
				RunnerUpID: second.IdentityID,
			}
		}
	}

	return Verdict{
		Kind:       VerdictRecognized,
		IdentityID: top.IdentityID,
		Confidence: top.Score,
		BestScore:  top.Score,
	}
}
