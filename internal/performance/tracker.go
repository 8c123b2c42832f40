// Package performance records answer outcomes and scores learner answers.
package performance

import (
	"math"
	"sync"
	"time"
)

const (
	// DefaultMaxRecordsPerUser caps per-user history; oldest records are
	// evicted.
	DefaultMaxRecordsPerUser = 50

	// recentWindow is the number of records in Summary.Recent.
	recentWindow = 10
)

// Record is one graded interaction.
type Record struct {
	Subject   string    `json:"subject"`
	Topic     string    `json:"topic"`
	Concept   string    `json:"concept,omitempty"`
	IsCorrect bool      `json:"is_correct"`
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// GroupStats aggregates accuracy within one subject or topic.
type GroupStats struct {
	Total              int     `json:"total"`
	Correct            int     `json:"correct"`
	AccuracyPercentage float64 `json:"accuracy_percentage"`
}

// Summary is an aggregate view of a user's recorded performance.
type Summary struct {
	Total              int                   `json:"total"`
	Correct            int                   `json:"correct"`
	AccuracyPercentage float64               `json:"accuracy_percentage"`
	Recent             []Record              `json:"recent"`
	PerSubject         map[string]GroupStats `json:"per_subject"`
	PerTopic           map[string]GroupStats `json:"per_topic"`
}

// Tracker keeps bounded per-user performance history in memory.
type Tracker struct {
	mu         sync.RWMutex
	records    map[string][]Record
	maxRecords int
}

// NewTracker creates an empty tracker with the default history cap.
func NewTracker() *Tracker {
	return NewTrackerWithLimit(DefaultMaxRecordsPerUser)
}

// NewTrackerWithLimit creates a tracker with a custom per-user history cap.
func NewTrackerWithLimit(maxRecords int) *Tracker {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecordsPerUser
	}
	return &Tracker{records: make(map[string][]Record), maxRecords: maxRecords}
}

// Record appends a graded interaction, evicting the oldest once the per-user
// cap is reached.
func (t *Tracker) Record(userID, subject, topic, concept string, isCorrect bool, score float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	history := append(t.records[userID], Record{
		Subject:   subject,
		Topic:     topic,
		Concept:   concept,
		IsCorrect: isCorrect,
		Score:     score,
		Timestamp: time.Now().UTC(),
	})
	if len(history) > t.maxRecords {
		history = history[len(history)-t.maxRecords:]
	}
	t.records[userID] = history
}

// Summary aggregates a user's history. An unknown user yields a zero-valued
// summary with accuracy 0.
func (t *Tracker) Summary(userID string) Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	history := t.records[userID]
	summary := Summary{
		Total:      len(history),
		Recent:     []Record{},
		PerSubject: make(map[string]GroupStats),
		PerTopic:   make(map[string]GroupStats),
	}

	for _, rec := range history {
		if rec.IsCorrect {
			summary.Correct++
		}
		addStat(summary.PerSubject, rec.Subject, rec.IsCorrect)
		addStat(summary.PerTopic, rec.Topic, rec.IsCorrect)
	}
	summary.AccuracyPercentage = accuracy(summary.Correct, summary.Total)
	for key, stats := range summary.PerSubject {
		stats.AccuracyPercentage = accuracy(stats.Correct, stats.Total)
		summary.PerSubject[key] = stats
	}
	for key, stats := range summary.PerTopic {
		stats.AccuracyPercentage = accuracy(stats.Correct, stats.Total)
		summary.PerTopic[key] = stats
	}

	start := len(history) - recentWindow
	if start < 0 {
		start = 0
	}
	summary.Recent = append(summary.Recent, history[start:]...)
	return summary
}

// MostRecentScore returns the latest score the user earned on the topic, and
// whether one exists.
func (t *Tracker) MostRecentScore(userID, topic string) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	history := t.records[userID]
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Topic == topic {
			return history[i].Score, true
		}
	}
	return 0, false
}

func addStat(m map[string]GroupStats, key string, isCorrect bool) {
	if key == "" {
		return
	}
	stats := m[key]
	stats.Total++
	if isCorrect {
		stats.Correct++
	}
	m[key] = stats
}

func accuracy(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(correct) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
