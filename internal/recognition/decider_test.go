package recognition

import "testing"

func TestDecideEmpty(t *testing.T) {
	d := Decider{Threshold: 0.5}
	v := d.Decide(nil)
	if v.Kind != VerdictUnknown {
		t.Errorf("expected unknown verdict, got %v", v.Kind)
	}
}

func TestDecideThresholdBoundary(t *testing.T) {
	d := Decider{Threshold: 0.5}

	tests := []struct {
		name  string
		score float64
		want  VerdictKind
	}{
		{"exactly at threshold", 0.5, VerdictRecognized},
		{"just below threshold", 0.499999, VerdictUnknown},
		{"well above threshold", 0.9, VerdictRecognized},
		{"zero", 0.0, VerdictUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := d.Decide([]Candidate{{IdentityID: "EMP001", Score: tt.score}})
			if v.Kind != tt.want {
				t.Errorf("score %f: expected %v, got %v", tt.score, tt.want, v.Kind)
			}
			if v.BestScore != tt.score {
				t.Errorf("best score must be reported for tuning, got %f", v.BestScore)
			}
		})
	}
}

func TestDecideRecognizedCarriesIdentity(t *testing.T) {
	d := Decider{Threshold: 0.5}
	v := d.Decide([]Candidate{
		{IdentityID: "EMP001", Score: 0.91},
		{IdentityID: "EMP002", Score: 0.40},
	})
	if v.Kind != VerdictRecognized {
		t.Fatalf("expected recognized, got %v", v.Kind)
	}
	if v.IdentityID != "EMP001" {
		t.Errorf("expected EMP001, got %s", v.IdentityID)
	}
	if v.Confidence != 0.91 {
		t.Errorf("expected confidence 0.91, got %f", v.Confidence)
	}
}

func TestDecideAmbiguous(t *testing.T) {
	d := Decider{Threshold: 0.5, AmbiguityMargin: 0.05}
	v := d.Decide([]Candidate{
		{IdentityID: "EMP001", Score: 0.80},
		{IdentityID: "EMP002", Score: 0.78},
	})
	if v.Kind != VerdictAmbiguous {
		t.Fatalf("two above-threshold identities within the margin must be ambiguous, got %v", v.Kind)
	}
	if v.RunnerUpID != "EMP002" {
		t.Errorf("expected runner-up EMP002, got %s", v.RunnerUpID)
	}
}

func TestDecideClearWinnerNotAmbiguous(t *testing.T) {
	d := Decider{Threshold: 0.5, AmbiguityMargin: 0.05}
	v := d.Decide([]Candidate{
		{IdentityID: "EMP001", Score: 0.90},
		{IdentityID: "EMP002", Score: 0.60},
	})
	if v.Kind != VerdictRecognized {
		t.Errorf("clear winner must be recognized, got %v", v.Kind)
	}
}

func TestDecideRunnerUpBelowThresholdNotAmbiguous(t *testing.T) {
	d := Decider{Threshold: 0.8, AmbiguityMargin: 0.05}
	v := d.Decide([]Candidate{
		{IdentityID: "EMP001", Score: 0.81},
		{IdentityID: "EMP002", Score: 0.79},
	})
	if v.Kind != VerdictRecognized {
		t.Errorf("runner-up below threshold must not trigger ambiguity, got %v", v.Kind)
	}
}

func TestDecideZeroMarginDisablesAmbiguity(t *testing.T) {
	d := Decider{Threshold: 0.5}
	v := d.Decide([]Candidate{
		{IdentityID: "EMP001", Score: 0.800001},
		{IdentityID: "EMP002", Score: 0.800000},
	})
	if v.Kind != VerdictRecognized || v.IdentityID != "EMP001" {
		t.Errorf("zero margin must always take the strict top score, got %+v", v)
	}
}
