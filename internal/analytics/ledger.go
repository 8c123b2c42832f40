package analytics

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"
)

// Focus thresholds over per-concept average scores.
const (
	strengthThreshold = 80.0
	weaknessThreshold = 65.0
)

// SubjectProgress is an aggregate view of a user's progress in one subject.
type SubjectProgress struct {
	UserID           string    `json:"user_id"`
	Subject          string    `json:"subject"`
	LessonsCompleted int       `json:"lessons_completed"`
	OverallScore     float64   `json:"overall_score"`
	Strengths        []string  `json:"strengths"`
	Weaknesses       []string  `json:"weaknesses"`
	LastUpdated      time.Time `json:"last_updated"`
}

type ledgerEntry struct {
	lessonsCompleted int
	scores           []float64
	conceptScores    map[string][]float64
	lastUpdated      time.Time
}

// ProgressLedger keeps per-(user, subject) aggregates in memory. It
// implements ProgressReporter so it can sit in a MultiReporter alongside an
// external sink.
type ProgressLedger struct {
	mu      sync.RWMutex
	entries map[string]*ledgerEntry
}

// NewProgressLedger creates an empty ledger.
func NewProgressLedger() *ProgressLedger {
	return &ProgressLedger{entries: make(map[string]*ledgerEntry)}
}

// Report folds a progress update into the ledger. Repeated mistakes count as
// zero-score samples for their concepts.
func (l *ProgressLedger) Report(ctx context.Context, update ProgressUpdate) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.entry(update.UserID, update.Subject)
	if update.Completed {
		e.lessonsCompleted++
	}
	e.scores = append(e.scores, update.Score)
	if update.Concept != "" {
		e.conceptScores[update.Concept] = append(e.conceptScores[update.Concept], update.Score)
	}
	for _, concept := range update.RepeatedMistakes {
		e.conceptScores[concept] = append(e.conceptScores[concept], 0)
	}
	e.lastUpdated = time.Now().UTC()
	return nil
}

// RecordConceptScore adds a graded sample for a concept.
func (l *ProgressLedger) RecordConceptScore(userID, subject, concept string, score float64) {
	if concept == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.entry(userID, subject)
	e.conceptScores[concept] = append(e.conceptScores[concept], score)
	e.lastUpdated = time.Now().UTC()
}

// Snapshot returns the aggregate view for a user and subject. An unknown pair
// yields a zero-valued snapshot.
func (l *ProgressLedger) Snapshot(userID, subject string) SubjectProgress {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := SubjectProgress{
		UserID:     userID,
		Subject:    subject,
		Strengths:  []string{},
		Weaknesses: []string{},
	}

	e, ok := l.entries[userID+"\x00"+subject]
	if !ok {
		return out
	}

	out.LessonsCompleted = e.lessonsCompleted
	out.LastUpdated = e.lastUpdated
	if len(e.scores) > 0 {
		var sum float64
		for _, s := range e.scores {
			sum += s
		}
		out.OverallScore = round2(sum / float64(len(e.scores)))
	}

	concepts := make([]string, 0, len(e.conceptScores))
	for c := range e.conceptScores {
		concepts = append(concepts, c)
	}
	sort.Strings(concepts)
	for _, c := range concepts {
		avg := average(e.conceptScores[c])
		switch {
		case avg >= strengthThreshold:
			out.Strengths = append(out.Strengths, c)
		case avg < weaknessThreshold:
			out.Weaknesses = append(out.Weaknesses, c)
		}
	}
	return out
}

func (l *ProgressLedger) entry(userID, subject string) *ledgerEntry {
	key := userID + "\x00" + subject
	e, ok := l.entries[key]
	if !ok {
		e = &ledgerEntry{conceptScores: make(map[string][]float64)}
		l.entries[key] = e
	}
	return e
}

func average(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
