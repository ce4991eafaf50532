package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"sahayak-backend/index"
	"sahayak-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestChatService(completer *fakeCompleter, embedder *fakeEmbedder, idx *index.VectorIndex, store *SessionStore, transcriber *fakeTranscriber) *ChatService {
	return NewChatService(
		ChatWithNormalizer(NewNormalizer(completer, transcriber)),
		ChatWithRewriter(NewRewriter(completer)),
		ChatWithRetriever(NewRetriever(embedder, idx, RetrieverConfig{})),
		ChatWithSessionStore(store),
		ChatWithCompleter(completer),
	)
}

func relevantIndex(t *testing.T) *index.VectorIndex {
	t.Helper()
	return builtIndex(t, indexedChunk("pmkisan", "PM-KISAN provides income support of 6000 rupees per year to farmer families.", 1, 0))
}

func TestAsk(t *testing.T) {
	queryVec := []float64{1, 0}

	t.Run("English question answers without translation", func(t *testing.T) {
		completer := &fakeCompleter{
			jsonResponses:     []string{detectionJSON("English", "en", "What is PM-KISAN?")},
			completeResponses: []string{"PM-KISAN is an income support scheme."},
		}
		store := NewSessionStore()
		svc := newTestChatService(completer, &fakeEmbedder{fallback: queryVec}, relevantIndex(t), store, &fakeTranscriber{})

		answer, err := svc.Ask(context.Background(), AskRequest{SessionID: "s1", Text: "What is PM-KISAN?"})

		require.NoError(t, err)
		assert.Equal(t, "PM-KISAN is an income support scheme.", answer.Text)
		assert.Equal(t, "en", answer.LanguageCode)
		assert.Equal(t, 1, completer.completeCalls(), "no rewrite on empty history, no translation for English")

		history := store.History("s1")
		require.Len(t, history, 2)
		assert.Equal(t, models.RoleUser, history[0].Role)
		assert.Equal(t, "What is PM-KISAN?", history[0].Text)
		assert.Equal(t, models.RoleAssistant, history[1].Role)
		assert.Equal(t, "PM-KISAN is an income support scheme.", history[1].Text)
	})

	t.Run("Non-English question gets a translated answer and English history", func(t *testing.T) {
		completer := &fakeCompleter{
			jsonResponses: []string{detectionJSON("Hindi", "hi", "What is PM-KISAN?")},
			completeResponses: []string{
				"PM-KISAN is an income support scheme.",
				"पीएम-किसान एक आय सहायता योजना है।",
			},
		}
		store := NewSessionStore()
		svc := newTestChatService(completer, &fakeEmbedder{fallback: queryVec}, relevantIndex(t), store, &fakeTranscriber{})

		answer, err := svc.Ask(context.Background(), AskRequest{SessionID: "s1", Text: "पीएम-किसान क्या है?"})

		require.NoError(t, err)
		assert.Equal(t, "पीएम-किसान एक आय सहायता योजना है।", answer.Text)
		assert.Equal(t, "hi", answer.LanguageCode)
		assert.Equal(t, 2, completer.completeCalls(), "generation plus translation")

		history := store.History("s1")
		require.Len(t, history, 2)
		assert.Equal(t, "What is PM-KISAN?", history[0].Text, "history stores the English canonical question")
		assert.Equal(t, "PM-KISAN is an income support scheme.", history[1].Text, "history stores the English answer")
	})

	t.Run("Empty retrieval short-circuits to the fixed reply", func(t *testing.T) {
		completer := &fakeCompleter{
			jsonResponses: []string{detectionJSON("Hindi", "hi", "What is the weather today?")},
		}
		idx := builtIndex(t, indexedChunk("pmkisan", "scheme text", 0, 1))
		store := NewSessionStore()
		svc := newTestChatService(completer, &fakeEmbedder{fallback: queryVec}, idx, store, &fakeTranscriber{})

		answer, err := svc.Ask(context.Background(), AskRequest{SessionID: "s1", Text: "आज मौसम कैसा है?"})

		require.NoError(t, err)
		assert.Equal(t, NoAnswerMessage, answer.Text)
		assert.Equal(t, "en", answer.LanguageCode, "the fixed reply is never translated")
		assert.Equal(t, 0, completer.completeCalls(), "no generation without grounding context")
		assert.Equal(t, 0, store.Len("s1"), "dead ends stay out of the history")
	})

	t.Run("Follow-up question is rewritten against the history", func(t *testing.T) {
		completer := &fakeCompleter{
			jsonResponses: []string{detectionJSON("English", "en", "What are its eligibility criteria?")},
			completeResponses: []string{
				"What are the eligibility criteria of PM-KISAN?",
				"Landholding farmer families are eligible.",
			},
		}
		store := NewSessionStore()
		store.Append("s1",
			models.Turn{Role: models.RoleUser, Text: "What is PM-KISAN?", Timestamp: time.Now()},
			models.Turn{Role: models.RoleAssistant, Text: "PM-KISAN is an income support scheme.", Timestamp: time.Now()},
		)
		svc := newTestChatService(completer, &fakeEmbedder{fallback: queryVec}, relevantIndex(t), store, &fakeTranscriber{})

		answer, err := svc.Ask(context.Background(), AskRequest{SessionID: "s1", Text: "What are its eligibility criteria?"})

		require.NoError(t, err)
		assert.Equal(t, "Landholding farmer families are eligible.", answer.Text)

		require.Len(t, completer.completePrompts, 2)
		assert.Contains(t, completer.completePrompts[0], "What is PM-KISAN?", "rewrite prompt carries the history")
		assert.Contains(t, completer.completePrompts[1], "What are the eligibility criteria of PM-KISAN?", "generation uses the standalone form")

		history := store.History("s1")
		require.Len(t, history, 4)
		assert.Equal(t, "What are its eligibility criteria?", history[2].Text, "history stores what the user asked, not the rewrite")
	})

	t.Run("Audio input runs the same pipeline", func(t *testing.T) {
		completer := &fakeCompleter{
			completeResponses: []string{
				"PM-KISAN is an income support scheme.",
				"பிஎம்-கிசான் ஒரு வருமான ஆதரவுத் திட்டம்.",
			},
		}
		transcriber := &fakeTranscriber{
			response: detectionJSON("Tamil", "ta", "What is PM-KISAN?"),
		}
		store := NewSessionStore()
		svc := newTestChatService(completer, &fakeEmbedder{fallback: queryVec}, relevantIndex(t), store, transcriber)

		answer, err := svc.Ask(context.Background(), AskRequest{
			SessionID:     "s1",
			Audio:         []byte{1, 2, 3},
			AudioMimeType: "audio/wav",
		})

		require.NoError(t, err)
		assert.Equal(t, "ta", answer.LanguageCode)
		assert.Equal(t, 2, store.Len("s1"))
	})

	t.Run("Generation failure leaves the history untouched", func(t *testing.T) {
		completer := &fakeCompleter{
			jsonResponses: []string{detectionJSON("English", "en", "What is PM-KISAN?")},
			completeErr:   errors.New("provider down"),
		}
		store := NewSessionStore()
		svc := newTestChatService(completer, &fakeEmbedder{fallback: queryVec}, relevantIndex(t), store, &fakeTranscriber{})

		_, err := svc.Ask(context.Background(), AskRequest{SessionID: "s1", Text: "What is PM-KISAN?"})

		assert.ErrorIs(t, err, ErrGeneration)
		assert.Equal(t, 0, store.Len("s1"))
	})

	t.Run("Normalization failure surfaces before any retrieval", func(t *testing.T) {
		completer := &fakeCompleter{jsonResponses: []string{"not a record"}}
		store := NewSessionStore()
		svc := newTestChatService(completer, &fakeEmbedder{fallback: queryVec}, relevantIndex(t), store, &fakeTranscriber{})

		_, err := svc.Ask(context.Background(), AskRequest{SessionID: "s1", Text: "anything"})

		assert.ErrorIs(t, err, ErrNormalizationParse)
		assert.Equal(t, 0, store.Len("s1"))
	})

	t.Run("Unready index rejects the request", func(t *testing.T) {
		completer := &fakeCompleter{
			jsonResponses: []string{detectionJSON("English", "en", "What is PM-KISAN?")},
		}
		store := NewSessionStore()
		svc := newTestChatService(completer, &fakeEmbedder{fallback: queryVec}, index.New(), store, &fakeTranscriber{})

		_, err := svc.Ask(context.Background(), AskRequest{SessionID: "s1", Text: "What is PM-KISAN?"})

		assert.ErrorIs(t, err, index.ErrNotReady)
		assert.Equal(t, 0, store.Len("s1"))
	})

	t.Run("Cancelled request is not recorded", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		completer := &fakeCompleter{
			jsonResponses:     []string{detectionJSON("English", "en", "What is PM-KISAN?")},
			completeResponses: []string{"PM-KISAN is an income support scheme."},
		}
		store := NewSessionStore()
		svc := newTestChatService(completer, &fakeEmbedder{fallback: queryVec}, relevantIndex(t), store, &fakeTranscriber{})

		// Cancel after the pipeline has everything it needs; the fakes
		// ignore the context, so only the final check can notice.
		cancel()
		_, err := svc.Ask(ctx, AskRequest{SessionID: "s1", Text: "What is PM-KISAN?"})

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, store.Len("s1"))
	})
}

func TestSuggestQuestions(t *testing.T) {
	queryVec := []float64{1, 0}

	t.Run("Returns the parsed suggestions", func(t *testing.T) {
		completer := &fakeCompleter{
			jsonResponses: []string{`["How do I apply?", "Who is eligible?", "What are the benefits?"]`},
		}
		svc := newTestChatService(completer, &fakeEmbedder{fallback: queryVec}, relevantIndex(t), NewSessionStore(), &fakeTranscriber{})

		questions, err := svc.SuggestQuestions(context.Background(), "farmer schemes")

		require.NoError(t, err)
		assert.Equal(t, []string{"How do I apply?", "Who is eligible?", "What are the benefits?"}, questions)
	})

	t.Run("No relevant context yields no suggestions", func(t *testing.T) {
		completer := &fakeCompleter{}
		idx := builtIndex(t, indexedChunk("a", "scheme text", 0, 1))
		svc := newTestChatService(completer, &fakeEmbedder{fallback: queryVec}, idx, NewSessionStore(), &fakeTranscriber{})

		questions, err := svc.SuggestQuestions(context.Background(), "unrelated topic")

		require.NoError(t, err)
		assert.Nil(t, questions)
		assert.Empty(t, completer.jsonPrompts)
	})

	t.Run("Malformed suggestions are a generation error", func(t *testing.T) {
		completer := &fakeCompleter{jsonResponses: []string{"not an array"}}
		svc := newTestChatService(completer, &fakeEmbedder{fallback: queryVec}, relevantIndex(t), NewSessionStore(), &fakeTranscriber{})

		_, err := svc.SuggestQuestions(context.Background(), "farmer schemes")

		assert.ErrorIs(t, err, ErrGeneration)
	})
}
