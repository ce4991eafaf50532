package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"sahayak-backend/llm"
	"sahayak-backend/models"

	"github.com/pkoukk/tiktoken-go"
)

// ErrGeneration indicates a provider failure while generating or translating
// the answer
var ErrGeneration = errors.New("answer generation failed")

// NoAnswerMessage is the fixed reply returned when retrieval finds nothing
// relevant. It deliberately skips the generation call: with no context there
// is nothing to ground an answer on, and paying for a model call anyway would
// only produce hallucinations.
const NoAnswerMessage = "No information is available for this question."

const answerPromptFmt = `You are an expert chatbot trained to provide detailed and accurate information about Indian government schemes. Your task is to assist users by answering questions related to various government schemes such as those for education, healthcare, agriculture, and insurance. When responding, ensure that your answers are clear, informative, and based on the most recent and relevant information. If the user asks about eligibility, application processes, or benefits, provide specific details and guide them through the necessary steps if applicable. Always aim to offer helpful and precise responses tailored to their needs.

Use this Context:
%s

Answer this query in a simple manner: %s`

const translatePromptFmt = `Translate the given text to %s. Return only the translation, nothing else.

%s`

const suggestPromptFmt = `Based on the context below, suggest three short follow-up questions a user could ask about these government schemes. Return a single JSON array of exactly three strings and nothing else.

Context:
%s

Topic: %s`

// ChatService coordinates the request pipeline: normalize, rewrite, retrieve,
// generate, localize, and record the exchange in the session history.
type ChatService struct {
	normalizer *Normalizer
	rewriter   *Rewriter
	retriever  *Retriever
	sessions   *SessionStore
	completer  llm.Completer
}

// ChatServiceOption is a functional option for ChatService
type ChatServiceOption func(*ChatService)

// ChatWithNormalizer sets the query normalizer
func ChatWithNormalizer(n *Normalizer) ChatServiceOption {
	return func(s *ChatService) {
		s.normalizer = n
	}
}

// ChatWithRewriter sets the history-aware rewriter
func ChatWithRewriter(r *Rewriter) ChatServiceOption {
	return func(s *ChatService) {
		s.rewriter = r
	}
}

// ChatWithRetriever sets the retriever
func ChatWithRetriever(r *Retriever) ChatServiceOption {
	return func(s *ChatService) {
		s.retriever = r
	}
}

// ChatWithSessionStore sets the session store
func ChatWithSessionStore(store *SessionStore) ChatServiceOption {
	return func(s *ChatService) {
		s.sessions = store
	}
}

// ChatWithCompleter sets the generative capability
func ChatWithCompleter(c llm.Completer) ChatServiceOption {
	return func(s *ChatService) {
		s.completer = c
	}
}

// NewChatService creates a new chat service
func NewChatService(opts ...ChatServiceOption) *ChatService {
	s := &ChatService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AskRequest carries one user question, either typed text or recorded audio
type AskRequest struct {
	SessionID     string
	Text          string
	Audio         []byte
	AudioMimeType string
}

// Ask runs the full pipeline for one request and returns the localized
// answer. The session history gains exactly one user turn and one assistant
// turn on success, and nothing on failure, cancellation, or the no-answer
// short circuit.
func (s *ChatService) Ask(ctx context.Context, req AskRequest) (models.AnswerLocalized, error) {
	var query models.Query
	var err error
	if len(req.Audio) > 0 {
		query, err = s.normalizer.NormalizeAudio(ctx, req.Audio, req.AudioMimeType)
	} else {
		query, err = s.normalizer.NormalizeText(ctx, req.Text)
	}
	if err != nil {
		return models.AnswerLocalized{}, err
	}

	history := s.sessions.History(req.SessionID)

	standalone, err := s.rewriter.Rewrite(ctx, query, history)
	if err != nil {
		return models.AnswerLocalized{}, err
	}

	contextStr, err := s.retriever.Retrieve(ctx, standalone)
	if err != nil {
		return models.AnswerLocalized{}, err
	}

	if contextStr == "" {
		// Expected branch, not an error: nothing relevant in the corpus.
		// History is untouched so the dead end does not pollute rewrites.
		return models.AnswerLocalized{Text: NoAnswerMessage, LanguageCode: "en"}, nil
	}

	answer, err := s.generate(ctx, standalone, contextStr)
	if err != nil {
		return models.AnswerLocalized{}, err
	}

	localized := answer
	if !query.IsEnglish() {
		localized, err = s.translate(ctx, answer, query.Language)
		if err != nil {
			return models.AnswerLocalized{}, err
		}
	}

	if ctx.Err() != nil {
		// Abandoned request: the answer is complete but nobody is waiting
		// for it, so leave the session history unchanged.
		return models.AnswerLocalized{}, ctx.Err()
	}

	// History records what the user actually asked, not the rewritten form,
	// and the English answer, since history only feeds the rewrite prompt.
	now := time.Now()
	s.sessions.Append(req.SessionID,
		models.Turn{Role: models.RoleUser, Text: query.CanonicalText, Timestamp: now},
		models.Turn{Role: models.RoleAssistant, Text: answer, Timestamp: now},
	)

	return models.AnswerLocalized{Text: localized, LanguageCode: query.LanguageCode}, nil
}

func (s *ChatService) generate(ctx context.Context, standaloneQuery, contextStr string) (string, error) {
	prompt := fmt.Sprintf(answerPromptFmt, contextStr, standaloneQuery)
	logPromptSize(prompt)

	answer, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	return strings.TrimSpace(answer), nil
}

func (s *ChatService) translate(ctx context.Context, answer, language string) (string, error) {
	translated, err := s.completer.Complete(ctx, fmt.Sprintf(translatePromptFmt, language, answer))
	if err != nil {
		return "", fmt.Errorf("%w: translation: %v", ErrGeneration, err)
	}
	return strings.TrimSpace(translated), nil
}

// SuggestQuestions proposes follow-up questions grounded in the corpus for a
// topic. An empty result means the corpus has nothing relevant.
func (s *ChatService) SuggestQuestions(ctx context.Context, topic string) ([]string, error) {
	contextStr, err := s.retriever.Retrieve(ctx, topic)
	if err != nil {
		return nil, err
	}
	if contextStr == "" {
		return nil, nil
	}

	raw, err := s.completer.CompleteJSON(ctx, fmt.Sprintf(suggestPromptFmt, contextStr, topic))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	var questions []string
	if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return nil, fmt.Errorf("%w: malformed suggestions: %v", ErrGeneration, err)
	}
	return questions, nil
}

// logPromptSize logs the token count of a prompt before sending it.
// Best effort; a missing encoding never blocks the request.
func logPromptSize(prompt string) {
	enc, err := tiktoken.EncodingForModel("gpt-3.5-turbo")
	if err != nil {
		return
	}
	tokens := enc.Encode(prompt, nil, nil)
	log.Printf("generation prompt: %d tokens, %d bytes", len(tokens), len(prompt))
}
