package chat

import (
	"context"

	"go.uber.org/zap"

	"github.com/feedback-insight/backend/internal/feedback"
	"github.com/feedback-insight/backend/internal/metrics"
	"github.com/feedback-insight/backend/internal/storage/sqlite"
	"github.com/feedback-insight/backend/pkg/logger"
)

const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// Service answers chat questions about an analysis summary: the LLM
// path when a client is configured and healthy, canned summary-derived
// replies otherwise. The fallback never fails.
type Service struct {
	llm *Client
	db  *sqlite.Client
}

// NewService accepts a nil llm client (no API key configured); the
// service then always answers from the fallback.
func NewService(llm *Client, db *sqlite.Client) *Service {
	return &Service{llm: llm, db: db}
}

func (s *Service) Reply(ctx context.Context, message string, summary feedback.Summary, history []Message) (string, string) {
	reply, source := s.answer(ctx, message, summary, history)

	metrics.ChatRepliesTotal.WithLabelValues(source).Inc()

	if s.db != nil {
		if err := s.db.InsertChatExchange(message, reply, source); err != nil {
			logger.Warn("Failed to record chat exchange", zap.Error(err))
		}
	}

	return reply, source
}

func (s *Service) answer(ctx context.Context, message string, summary feedback.Summary, history []Message) (string, string) {
	if s.llm != nil {
		reply, err := s.llm.Reply(ctx, summary, history, message)
		if err == nil {
			return reply, SourceLLM
		}
		logger.Warn("LLM chat failed, using fallback", zap.Error(err))
	}

	return FallbackReply(message, summary), SourceFallback
}
