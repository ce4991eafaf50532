package service

import (
	"context"
	"fmt"
	"strings"

	"sahayak-backend/llm"
	"sahayak-backend/models"
)

const rewritePromptFmt = `Given a chat history and the latest user question which might reference context in the chat history, formulate a standalone question which can be understood without the chat history. Do NOT answer the question, just reformulate it if needed and otherwise return it as is. Return only the question.

Chat history:
%s

Latest question: %s

Standalone question:`

// Rewriter resolves references in a follow-up question using the session
// history, producing a question answerable on its own.
type Rewriter struct {
	completer llm.Completer
}

// NewRewriter creates a rewriter over the generative capability
func NewRewriter(completer llm.Completer) *Rewriter {
	return &Rewriter{completer: completer}
}

// Rewrite returns a standalone form of the query. With an empty history the
// canonical text is returned as-is and no model call is made.
func (r *Rewriter) Rewrite(ctx context.Context, query models.Query, history []models.Turn) (string, error) {
	if len(history) == 0 {
		return query.CanonicalText, nil
	}

	prompt := fmt.Sprintf(rewritePromptFmt, formatHistory(history), query.CanonicalText)
	rewritten, err := r.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("history-aware rewrite failed: %w", err)
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return query.CanonicalText, nil
	}
	return rewritten, nil
}

func formatHistory(history []models.Turn) string {
	var b strings.Builder
	for _, turn := range history {
		b.WriteString(string(turn.Role))
		b.WriteString(": ")
		b.WriteString(turn.Text)
		b.WriteString("\n")
	}
	return b.String()
}
