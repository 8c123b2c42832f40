package vectorindex

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/tutord/internal/analytics"
	"github.com/fyrsmithlabs/tutord/internal/embeddings"
)

// KnowledgeStateReporter refreshes a user's knowledge-state vector whenever a
// progress update arrives. Each (user, subject) pair keeps a single current
// vector; every update overwrites the previous one.
//
// It satisfies analytics.ProgressReporter and never returns an error: a
// failed refresh leaves the prior vector in place, which is only a staleness
// concern, never a correctness one.
type KnowledgeStateReporter struct {
	index    *Index
	embedder embeddings.Provider
	logger   *zap.Logger
}

// NewKnowledgeStateReporter creates a reporter writing into the users
// namespace of the given index.
func NewKnowledgeStateReporter(index *Index, embedder embeddings.Provider, logger *zap.Logger) *KnowledgeStateReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeStateReporter{index: index, embedder: embedder, logger: logger}
}

// Report embeds a textual summary of the update and upserts it as the user's
// knowledge state for the subject.
func (r *KnowledgeStateReporter) Report(ctx context.Context, update analytics.ProgressUpdate) error {
	if update.UserID == "" || update.Subject == "" {
		return nil
	}

	vec, err := r.embedder.EmbedQuery(ctx, knowledgeStateText(update))
	if err != nil {
		r.logger.Warn("knowledge state embedding failed",
			zap.String("user_id", update.UserID),
			zap.String("subject", update.Subject),
			zap.Error(err))
		return nil
	}

	if _, err := r.index.UpsertUserKnowledgeState(ctx, update.UserID, vec, update.Subject); err != nil {
		r.logger.Warn("knowledge state upsert failed",
			zap.String("user_id", update.UserID),
			zap.String("subject", update.Subject),
			zap.Error(err))
	}
	return nil
}

func knowledgeStateText(update analytics.ProgressUpdate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "user %s studying %s", update.UserID, update.Subject)
	if update.Concept != "" {
		fmt.Fprintf(&b, ", concept %s", update.Concept)
	}
	if update.LessonID != "" {
		fmt.Fprintf(&b, ", lesson %s", update.LessonID)
	}
	fmt.Fprintf(&b, ", score %.2f", update.Score)
	if update.Completed {
		b.WriteString(", completed")
	}
	if len(update.RepeatedMistakes) > 0 {
		fmt.Fprintf(&b, ", struggling with %s", strings.Join(update.RepeatedMistakes, ", "))
	}
	return b.String()
}
