// Package curriculum reorders and augments learning plans around a learner's
// measured strengths and weaknesses.
package curriculum

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/embeddings"
	"github.com/fyrsmithlabs/tutord/internal/vectorindex"
)

// Focus thresholds over per-concept average scores.
const (
	strengthThreshold = 80.0
	weaknessThreshold = 65.0
)

// Limits on semantic augmentation hits.
const (
	maxHitsPerWeakness = 2
	maxHitsPerStrength = 1
)

// Module is one unit of a learning plan.
type Module struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	EstimatedTimeMin int      `json:"estimated_time_min"`
	Resources        []string `json:"resources,omitempty"`
	Description      string   `json:"description,omitempty"`
}

// Plan is a personalized ordering of modules.
type Plan struct {
	UserID  string   `json:"user_id"`
	Subject string   `json:"subject"`
	Modules []Module `json:"modules"`
}

// PersonalizeRequest carries the base plan and the learner's profile.
type PersonalizeRequest struct {
	UserID       string
	Subject      string
	Base         []Module
	Weaknesses   []string
	Strengths    []string
	OverallScore float64
	Pace         string
}

// Pipeline builds personalized plans. The index and embedder are optional;
// without them semantic augmentation is skipped.
type Pipeline struct {
	index    *vectorindex.Index
	embedder embeddings.Provider
	logger   *zap.Logger
}

// NewPipeline creates a curriculum pipeline.
func NewPipeline(index *vectorindex.Index, embedder embeddings.Provider, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{index: index, embedder: embedder, logger: logger}
}

// Personalize reorders the base modules so weakness-related material comes
// first and strength-related material last, prepends a remedial module per
// weakness, appends a challenge module for fast or high-scoring learners, and
// augments the plan with semantically matched content.
func (p *Pipeline) Personalize(ctx context.Context, req PersonalizeRequest) Plan {
	weak, neutral, strong := partition(req.Base, req.Weaknesses, req.Strengths)

	modules := make([]Module, 0, len(req.Base)+len(req.Weaknesses)+4)
	for _, weakness := range req.Weaknesses {
		modules = append(modules, remedialModule(req.Subject, weakness))
	}
	modules = append(modules, weak...)
	modules = append(modules, neutral...)
	modules = append(modules, strong...)

	if req.OverallScore > 85 || req.Pace == "fast" {
		modules = append(modules, challengeModule(req.Subject))
	}

	modules = append(modules, p.semanticModules(ctx, req, modules)...)

	return Plan{UserID: req.UserID, Subject: req.Subject, Modules: modules}
}

// partition splits modules into weakness-matched, neutral, and
// strength-matched groups, preserving relative order within each group. A
// module matches a term when its title contains it, case-insensitively.
func partition(base []Module, weaknesses, strengths []string) (weak, neutral, strong []Module) {
	for _, m := range base {
		switch {
		case titleMatches(m, weaknesses):
			weak = append(weak, m)
		case titleMatches(m, strengths):
			strong = append(strong, m)
		default:
			neutral = append(neutral, m)
		}
	}
	return weak, neutral, strong
}

func titleMatches(m Module, terms []string) bool {
	title := strings.ToLower(m.Title)
	for _, term := range terms {
		if term != "" && strings.Contains(title, strings.ToLower(term)) {
			return true
		}
	}
	return false
}

func remedialModule(subject, weakness string) Module {
	return Module{
		ID:               fmt.Sprintf("remedial_%s", weakness),
		Title:            fmt.Sprintf("Review: %s", weakness),
		Type:             "remedial",
		Difficulty:       "easy",
		EstimatedTimeMin: 30,
		Description:      fmt.Sprintf("Targeted review of %s in %s.", weakness, subject),
	}
}

func challengeModule(subject string) Module {
	return Module{
		ID:               "challenge_advanced",
		Title:            fmt.Sprintf("Challenge: advanced %s", subject),
		Type:             "challenge",
		Difficulty:       "hard",
		EstimatedTimeMin: 45,
		Description:      fmt.Sprintf("Stretch material for strong performance in %s.", subject),
	}
}

// semanticModules retrieves content related to the learner's focus areas.
// Search or embedding failures are logged and skipped.
func (p *Pipeline) semanticModules(ctx context.Context, req PersonalizeRequest, existing []Module) []Module {
	if p.index == nil || p.embedder == nil {
		return nil
	}

	seen := make(map[string]bool, len(existing))
	for _, m := range existing {
		seen[m.ID] = true
	}

	var out []Module
	for _, weakness := range req.Weaknesses {
		query := fmt.Sprintf("content to improve understanding of %s", weakness)
		out = append(out, p.search(ctx, query, req.Subject, maxHitsPerWeakness, seen)...)
	}
	for _, strength := range req.Strengths {
		query := fmt.Sprintf("advanced content about %s", strength)
		out = append(out, p.search(ctx, query, req.Subject, maxHitsPerStrength, seen)...)
	}
	return out
}

func (p *Pipeline) search(ctx context.Context, query, subject string, topK int, seen map[string]bool) []Module {
	vec, err := p.embedder.EmbedQuery(ctx, query)
	if err != nil {
		p.logger.Warn("semantic query embedding failed", zap.String("query", query), zap.Error(err))
		return nil
	}

	var out []Module
	for _, hit := range p.index.FindRelevantContent(ctx, vec, subject, topK, "") {
		if seen[hit.ID] {
			continue
		}
		seen[hit.ID] = true
		out = append(out, moduleFromHit(hit))
	}
	return out
}

func moduleFromHit(hit vectorindex.Result) Module {
	title := hit.Metadata["title"]
	if title == "" {
		title = hit.Metadata["content_id"]
	}
	difficulty := hit.Metadata["difficulty"]
	if difficulty == "" {
		difficulty = "medium"
	}
	return Module{
		ID:               hit.ID,
		Title:            title,
		Type:             "semantic",
		Difficulty:       difficulty,
		EstimatedTimeMin: 20,
		Description:      hit.Metadata["description"],
	}
}

// ConceptScore is a graded concept sample.
type ConceptScore struct {
	Concept string  `json:"concept"`
	Score   float64 `json:"score"`
}

// DeriveFocus buckets concepts by average score into strengths and
// weaknesses, each sorted alphabetically.
func DeriveFocus(completed []ConceptScore) (strengths, weaknesses []string) {
	totals := make(map[string]float64)
	counts := make(map[string]int)
	for _, cs := range completed {
		if cs.Concept == "" {
			continue
		}
		totals[cs.Concept] += cs.Score
		counts[cs.Concept]++
	}

	for concept, total := range totals {
		avg := total / float64(counts[concept])
		switch {
		case avg >= strengthThreshold:
			strengths = append(strengths, concept)
		case avg < weaknessThreshold:
			weaknesses = append(weaknesses, concept)
		}
	}
	sort.Strings(strengths)
	sort.Strings(weaknesses)
	return strengths, weaknesses
}
