// Package chat relays questions to the assistant service.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/fathima-sithara/quickads/internal/apperr"
)

const (
	Greeting = "Hello! How can I help you today?"
	Fallback = "Sorry, I encountered an error. Please try again."

	maxQuestion = 2000
)

var ErrNotConfigured = errors.New("chat assistant is not configured")

type Poster interface {
	PostJSON(ctx context.Context, path string, in, out any) error
}

type Message struct {
	Text  string `json:"text"`
	IsBot bool   `json:"isBot"`
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer struct {
		Content string `json:"content"`
	} `json:"answer"`
}

type Service struct {
	api Poster
	url string
	log *zap.Logger
}

// NewService posts questions to askURL, the assistant's full /ask URL.
func NewService(api Poster, askURL string, log *zap.Logger) *Service {
	return &Service{api: api, url: askURL, log: log}
}

// Ask sends one question and returns the answer text.
func (s *Service) Ask(ctx context.Context, question string) (string, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return "", apperr.ValidationErrors{{Field: "question", Tag: "required", Message: "question is required"}}
	}
	if utf8.RuneCountInString(q) > maxQuestion {
		return "", apperr.ValidationErrors{{Field: "question", Tag: "max", Message: fmt.Sprintf("question must be at most %d characters", maxQuestion)}}
	}
	if s.url == "" {
		return "", ErrNotConfigured
	}
	var out askResponse
	if err := s.api.PostJSON(ctx, s.url, askRequest{Question: q}, &out); err != nil {
		s.log.Warn("chat ask failed", zap.Error(err))
		return "", fmt.Errorf("ask: %w", err)
	}
	if out.Answer.Content == "" {
		return "", fmt.Errorf("%w: answer has no content", apperr.ErrProtocolMismatch)
	}
	return out.Answer.Content, nil
}

// Reply is Ask rendered as a bot message; failures become the fallback text.
func (s *Service) Reply(ctx context.Context, question string) (Message, error) {
	answer, err := s.Ask(ctx, question)
	if err != nil {
		return Message{Text: Fallback, IsBot: true}, err
	}
	return Message{Text: answer, IsBot: true}, nil
}
