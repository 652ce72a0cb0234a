package recognition

import (
	"time"
)

// EmbeddingDim is the fixed dimension for face embeddings (512 for ArcFace/buffalo_l).
const EmbeddingDim = 512

// Source tags where an embedding record came from.
type Source string

const (
	// SourceOriginal marks an embedding extracted from a capture image.
	SourceOriginal Source = "original"
	// SourceAugmented marks an embedding derived from an augmented image.
	SourceAugmented Source = "augmented"
)

// EmbeddingRecord is a single unit-normalized face embedding owned by one identity.
// Records are immutable after creation and live until their identity is deleted.
type EmbeddingRecord struct {
	ID        string
	Vector    []float32
	Source    Source
	CreatedAt time.Time
}

// Metadata holds the display attributes of an identity.
type Metadata struct {
	Name       string
	Department string
}

// Identity is a registered subject with at least one embedding record.
type Identity struct {
	ID        string
	Metadata  Metadata
	Records   []EmbeddingRecord
	CreatedAt time.Time
}

// NewEmbedding is an input vector with its provenance, as accepted by Register.
type NewEmbedding struct {
	Vector []float32
	Source Source
}

// Candidate is one ranked identity from a similarity query.
type Candidate struct {
	IdentityID string
	Score      float64 // cosine similarity, 1.0 = identical direction
}

// VerdictKind enumerates recognition outcomes.
type VerdictKind int

const (
	// VerdictUnknown means no candidate scored at or above the threshold.
	VerdictUnknown VerdictKind = iota
	// VerdictRecognized means exactly one identity matched with sufficient margin.
	VerdictRecognized
	// VerdictAmbiguous means two distinct identities scored above the threshold
	// within the ambiguity margin of each other.
	VerdictAmbiguous
)

func (k VerdictKind) String() string {
	switch k {
	case VerdictRecognized:
		return "recognized"
	case VerdictAmbiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// Verdict is the result of applying the threshold policy to query candidates.
// BestScore is always populated when at least one candidate was seen, so
// operators can tune the threshold from logs.
type Verdict struct {
	Kind       VerdictKind
	IdentityID string  // set when Kind == VerdictRecognized
	Confidence float64 // top score for Recognized, zero otherwise
	BestScore  float64 // top score seen regardless of outcome
	RunnerUpID string  // set when Kind == VerdictAmbiguous
}

// DayStatus is the attendance state of an identity for one calendar date.
type DayStatus string

const (
	StatusIn  DayStatus = "IN"
	StatusOut DayStatus = "OUT"
)

// DayRecord is the per-identity, per-date attendance state. One record per
// (identity, date); a completed IN/OUT pair carries the derived duration in
// hours. OutTime and Duration are nil until the first OUT transition.
type DayRecord struct {
	IdentityID string
	Date       string // YYYY-MM-DD
	Status     DayStatus
	InTime     time.Time
	OutTime    *time.Time
	Duration   *float64 // hours, rounded to 2 decimals
}

// Result is what Recognize returns to the caller.
type Result struct {
	Recognized bool
	IdentityID string
	Confidence float64
	Verdict    Verdict
	Status     DayStatus // attendance status after the event, empty if not recognized
	Timestamp  time.Time
}

// DateKey formats a timestamp as the calendar-date key used for attendance.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
