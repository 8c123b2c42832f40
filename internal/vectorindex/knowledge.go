package vectorindex

import (
	"context"
	"fmt"
	"time"
)

// Namespaces used by the tutoring engine.
const (
	NamespaceUsers   = "users"
	NamespaceContent = "content"
)

// UpsertUserKnowledgeState stores a user's knowledge-state embedding for a
// subject. The record id is deterministic, so re-learning the same subject
// overwrites the previous state.
func (idx *Index) UpsertUserKnowledgeState(ctx context.Context, userID string, embedding []float32, subject string) (string, error) {
	if userID == "" || subject == "" {
		return "", fmt.Errorf("%w: user id and subject required", ErrInvalidInput)
	}

	id := fmt.Sprintf("user_knowledge_%s_%s", userID, subject)
	metadata := map[string]string{
		"user_id":   userID,
		"subject":   subject,
		"type":      "user_knowledge_state",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := idx.Upsert(ctx, id, embedding, metadata, NamespaceUsers); err != nil {
		return "", err
	}
	return id, nil
}

// UpsertContent stores a content embedding. Extra metadata keys are merged in
// but cannot override the reserved keys.
func (idx *Index) UpsertContent(ctx context.Context, contentID string, embedding []float32, contentType, subject string, extra map[string]string) (string, error) {
	if contentID == "" {
		return "", fmt.Errorf("%w: content id required", ErrInvalidInput)
	}

	metadata := make(map[string]string, len(extra)+4)
	for k, v := range extra {
		metadata[k] = v
	}
	metadata["content_id"] = contentID
	metadata["content_type"] = contentType
	metadata["subject"] = subject
	metadata["type"] = "content"

	id := "content_" + contentID
	if err := idx.Upsert(ctx, id, embedding, metadata, NamespaceContent); err != nil {
		return "", err
	}
	return id, nil
}

// FindRelevantContent searches the content namespace for a subject, optionally
// restricted to a content type.
func (idx *Index) FindRelevantContent(ctx context.Context, query []float32, subject string, topK int, contentType string) []Result {
	filters := map[string]string{"subject": subject}
	if contentType != "" {
		filters["content_type"] = contentType
	}
	return idx.Search(ctx, query, topK, NamespaceContent, filters)
}

// FindSimilarUsers searches for users with similar knowledge states in a
// subject.
func (idx *Index) FindSimilarUsers(ctx context.Context, query []float32, subject string, topK int) []Result {
	filters := map[string]string{
		"subject": subject,
		"type":    "user_knowledge_state",
	}
	return idx.Search(ctx, query, topK, NamespaceUsers, filters)
}
