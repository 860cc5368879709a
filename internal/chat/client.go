package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/feedback-insight/backend/internal/feedback"
	"github.com/feedback-insight/backend/internal/metrics"
	"github.com/feedback-insight/backend/pkg/circuitbreaker"
	"github.com/feedback-insight/backend/pkg/logger"
	"github.com/feedback-insight/backend/pkg/retry"
)

// maxHistory bounds the rolling conversation window sent to the model.
const maxHistory = 6

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client wraps the OpenAI chat API with retry and a circuit breaker,
// answering questions grounded in one instructor's analysis summary.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewClient(apiKey, model string, temperature float32, maxTokens int) *Client {
	cb := circuitbreaker.New("chat-llm", circuitbreaker.Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Cooldown:         30 * time.Second,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    2,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       3 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("Chat LLM client initialized", zap.String("model", model))

	return &Client{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

func (c *Client) Reply(ctx context.Context, summary feedback.Summary, history []Message, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: buildSystemPrompt(summary),
		},
	}

	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	for _, h := range history {
		role := openai.ChatMessageRoleUser
		if h.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: h.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: message,
	})

	var reply string

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateChatCompletion(
				ctx,
				openai.ChatCompletionRequest{
					Model:       c.model,
					Messages:    messages,
					Temperature: c.temperature,
					MaxTokens:   c.maxTokens,
				},
			)
			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}
			if len(resp.Choices) == 0 {
				return errors.New("completion returned no choices")
			}

			metrics.LLMTokensUsed.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
			metrics.LLMTokensUsed.WithLabelValues(c.model, "completion").Add(float64(resp.Usage.CompletionTokens))

			logger.Debug("Chat completion generated",
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			reply = strings.TrimSpace(resp.Choices[0].Message.Content)
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	if reply == "" {
		return "", errors.New("completion returned empty content")
	}

	return reply, nil
}

func buildSystemPrompt(s feedback.Summary) string {
	var b strings.Builder

	b.WriteString("You are an assistant answering questions about a student feedback analysis for one instructor. ")
	b.WriteString("Answer concisely from the data below; say so when the data does not cover the question.\n\n")
	fmt.Fprintf(&b, "Total responses: %d\n", s.TotalResponses)
	fmt.Fprintf(&b, "Average rating: %.1f/5\n", s.AverageRating)
	fmt.Fprintf(&b, "Positive sentiment: %d%%\n", s.AvgSentimentPercentage)
	fmt.Fprintf(&b, "Key themes: %d\n", s.KeyThemesCount)

	if len(s.SentimentDistribution) > 0 {
		b.WriteString("Sentiment distribution:")
		for label, pct := range s.SentimentDistribution {
			fmt.Fprintf(&b, " %s %.1f%%;", label, pct)
		}
		b.WriteString("\n")
	}
	if len(s.TopPraiseAreas) > 0 {
		fmt.Fprintf(&b, "Top praise areas: %s\n", strings.Join(s.TopPraiseAreas, "; "))
	}
	if len(s.ImprovementAreas) > 0 {
		fmt.Fprintf(&b, "Improvement areas: %s\n", strings.Join(s.ImprovementAreas, "; "))
	}
	if len(s.Recommendations) > 0 {
		fmt.Fprintf(&b, "Recommendations: %s\n", strings.Join(s.Recommendations, "; "))
	}

	return b.String()
}
