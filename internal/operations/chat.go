package operations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Epistemic-Technology/paper-assistant/internal/chat"
	"github.com/Epistemic-Technology/paper-assistant/internal/llm"
	"github.com/Epistemic-Technology/paper-assistant/internal/logger"
	"github.com/Epistemic-Technology/paper-assistant/internal/processing"
	"github.com/Epistemic-Technology/paper-assistant/internal/prompt"
	"github.com/Epistemic-Technology/paper-assistant/models"
)

const (
	// DefaultChatTemperature is used for conversational replies.
	DefaultChatTemperature = 0.7

	// FallbackReply is appended in place of a reply when the model call fails.
	FallbackReply = "Sorry, I couldn't process your question right now. Please try again."
)

// WelcomeMessage is the first assistant message of every chat session.
func WelcomeMessage(title string) string {
	return fmt.Sprintf("Hello! I'm your AI research assistant. I've analyzed \"%s\" and I'm ready to answer any questions you have about this paper. What would you like to know?", title)
}

// ChatConfig configures a ChatService
type ChatConfig struct {
	Temperature  float64
	ContextLimit int
}

// ChatService answers questions about a paper, keeping the conversation in a
// chat.Store.
type ChatService struct {
	store        *chat.Store
	papers       *processing.Papers
	completer    llm.Completer
	temperature  float64
	contextLimit int
	log          logger.Logger

	// locks serializes session writes per paper.
	locks paperLocks
}

func NewChatService(store *chat.Store, papers *processing.Papers, completer llm.Completer, cfg ChatConfig, log logger.Logger) *ChatService {
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultChatTemperature
	}
	if cfg.ContextLimit <= 0 {
		cfg.ContextLimit = chat.DefaultContextLimit
	}
	return &ChatService{
		store:        store,
		papers:       papers,
		completer:    completer,
		temperature:  cfg.Temperature,
		contextLimit: cfg.ContextLimit,
		log:          log,
	}
}

// Store returns the underlying message store.
func (s *ChatService) Store() *chat.Store {
	return s.store
}

// Send appends the user's message, asks the model for a reply with the paper
// as context and appends the reply.
//
// The first interaction with a paper opens its session with the welcome
// message. If the model call fails, the fallback reply is appended and
// returned together with a *models.ModelCallError; the session stays usable.
// If the paper is deleted while the model call is in flight, the reply is
// dropped and processing.ErrPaperNotFound is returned.
func (s *ChatService) Send(ctx context.Context, paperID, content string) (models.Message, error) {
	paper, history, err := s.openTurn(ctx, paperID, content)
	if err != nil {
		return models.Message{}, err
	}

	s.store.SetLoading(true)
	defer s.store.SetLoading(false)

	messages := prompt.BuildChatMessages(prompt.PaperContextFromPaper(paper), history, content)
	reply, err := s.completer.Complete(ctx, messages, s.temperature)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errors.New("model returned an empty reply")
	}

	unlock := s.locks.Lock(paperID)
	defer unlock()

	if _, ok := s.papers.Get(paperID); !ok {
		s.log.Debug("Paper %s was deleted during chat, discarding reply", paperID)
		return models.Message{}, processing.ErrPaperNotFound
	}

	if err != nil {
		err = asModelCallError(err)
		s.log.Error("Chat for paper %s failed: %v", paperID, err)
		fallback, addErr := s.store.AddMessage(ctx, paperID, models.RoleAssistant, FallbackReply)
		if addErr != nil {
			return models.Message{}, errors.Join(err, addErr)
		}
		s.store.SetError(models.UserMessage(err))
		return fallback, err
	}

	return s.store.AddMessage(ctx, paperID, models.RoleAssistant, reply)
}

// openTurn records the user's message, opening the session with the welcome
// message first if needed, and returns the history that precedes it.
func (s *ChatService) openTurn(ctx context.Context, paperID, content string) (models.Paper, []models.Message, error) {
	unlock := s.locks.Lock(paperID)
	defer unlock()

	paper, ok := s.papers.Get(paperID)
	if !ok {
		return models.Paper{}, nil, processing.ErrPaperNotFound
	}

	if strings.TrimSpace(content) != "" && !s.store.HasSession(paperID) {
		if _, err := s.store.AddMessage(ctx, paperID, models.RoleAssistant, WelcomeMessage(paper.Title)); err != nil {
			return models.Paper{}, nil, err
		}
	}

	history := s.store.ContextWindow(paperID, s.contextLimit)
	if _, err := s.store.AddMessage(ctx, paperID, models.RoleUser, content); err != nil {
		return models.Paper{}, nil, err
	}
	return paper, history, nil
}

// Clear removes the paper's conversation.
func (s *ChatService) Clear(ctx context.Context, paperID string) {
	unlock := s.locks.Lock(paperID)
	defer unlock()
	s.store.ClearChat(ctx, paperID)
}

// DropOrphanSessions clears every session whose paper is unknown and returns
// how many were cleared. Papers still processing at shutdown are not saved,
// so their sessions have no owner after a restart.
func (s *ChatService) DropOrphanSessions(ctx context.Context) int {
	dropped := 0
	for _, paperID := range s.store.Sessions() {
		unlock := s.locks.Lock(paperID)
		if _, ok := s.papers.Get(paperID); !ok {
			s.store.ClearChat(ctx, paperID)
			dropped++
		}
		unlock()
	}
	return dropped
}
