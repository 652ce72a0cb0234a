package recognition

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// Journal receives every attendance transition so a persistence layer can
// snapshot it into durable storage. Called under the identity's lock;
// implementations should be quick. A nil journal is valid.
type Journal interface {
	RecordDay(ctx context.Context, rec DayRecord) error
}

// Sequencer is the per-identity, per-date IN/OUT state machine.
//
// Mutations are serialized per identity: two near-simultaneous recognitions
// of the same person cannot double-toggle or double-count a duration, while
// different identities never block each other. Events must arrive in
// timestamp order per identity; an earlier timestamp is rejected with
// ErrOutOfOrderEvent.
type Sequencer struct {
	mu      sync.RWMutex
	locks   map[string]*sync.Mutex
	days    map[string]DayRecord // keyed identityID + "\x00" + date
	last    map[string]time.Time // last applied event per identity
	journal Journal
}

// NewSequencer creates a sequencer. journal may be nil.
func NewSequencer(journal Journal) *Sequencer {
	return &Sequencer{
		locks:   make(map[string]*sync.Mutex),
		days:    make(map[string]DayRecord),
		last:    make(map[string]time.Time),
		journal: journal,
	}
}

func dayKey(identityID, date string) string {
	return identityID + "\x00" + date
}

// identityLock returns the mutex serializing one identity's transitions.
func (s *Sequencer) identityLock(identityID string) *sync.Mutex {
	s.mu.RLock()
	l, ok := s.locks[identityID]
	s.mu.RUnlock()
	if ok {
		return l
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok = s.locks[identityID]; ok {
		return l
	}
	l = &sync.Mutex{}
	s.locks[identityID] = l
	return l
}

// Apply advances the state machine for one recognized event at timestamp t.
//
//	no record for (identity, date) -> create, status IN
//	status IN                      -> OUT, duration = t - inTime
//	status OUT                     -> back to IN (overwrite-in-place: the day
//	                                  keeps one IN/OUT pair; the next OUT
//	                                  overwrites outTime and duration)
//
// Returns the record after the transition.
func (s *Sequencer) Apply(ctx context.Context, identityID string, t time.Time) (DayRecord, error) {
	l := s.identityLock(identityID)
	l.Lock()
	defer l.Unlock()

	s.mu.RLock()
	lastSeen, hasLast := s.last[identityID]
	s.mu.RUnlock()
	if hasLast && t.Before(lastSeen) {
		return DayRecord{}, fmt.Errorf("event at %s precedes last event at %s for %q: %w",
			t.Format(time.RFC3339), lastSeen.Format(time.RFC3339), identityID, ErrOutOfOrderEvent)
	}

	date := DateKey(t)
	key := dayKey(identityID, date)

	s.mu.RLock()
	rec, ok := s.days[key]
	s.mu.RUnlock()

	// Concurrent recognitions of the same person collapse to one transition:
	// an event carrying the exact timestamp already applied is a duplicate of
	// the winning event, not a new toggle.
	if hasLast && t.Equal(lastSeen) && ok {
		return rec, nil
	}

	if !ok {
		rec = DayRecord{
			IdentityID: identityID,
			Date:       date,
			Status:     StatusIn,
			InTime:     t,
		}
	} else {
		switch rec.Status {
		case StatusIn:
			out := t
			dur := roundHours(t.Sub(rec.InTime).Hours())
			rec.OutTime = &out
			rec.Duration = &dur
			rec.Status = StatusOut
		case StatusOut:
			// Came back: re-toggle to IN. The original inTime stands and the
			// previous pair is overwritten by the next OUT.
			rec.Status = StatusIn
		}
	}

	// Records are stored by value and replaced wholesale, so readers holding
	// only the RLock can never observe a half-applied transition.
	s.mu.Lock()
	s.days[key] = rec
	s.last[identityID] = t
	s.mu.Unlock()

	if s.journal != nil {
		if err := s.journal.RecordDay(ctx, rec); err != nil {
			return rec, fmt.Errorf("journal attendance for %q: %w", identityID, err)
		}
	}
	return rec, nil
}

// Day returns the attendance record for (identity, date), if any.
func (s *Sequencer) Day(identityID, date string) (DayRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.days[dayKey(identityID, date)]
	return rec, ok
}

// ForDate returns all attendance records for one calendar date.
func (s *Sequencer) ForDate(date string) []DayRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []DayRecord
	for _, rec := range s.days {
		if rec.Date == date {
			out = append(out, rec)
		}
	}
	return out
}

// Warm seeds the in-memory state from persisted records, typically at
// startup. Later timestamps win the per-identity ordering watermark.
func (s *Sequencer) Warm(records []DayRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		s.days[dayKey(rec.IdentityID, rec.Date)] = rec

		latest := rec.InTime
		if rec.OutTime != nil && rec.OutTime.After(latest) {
			latest = *rec.OutTime
		}
		if cur, ok := s.last[rec.IdentityID]; !ok || latest.After(cur) {
			s.last[rec.IdentityID] = latest
		}
	}
}

func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}
