package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lueurxax/news-radar/internal/core/domain"
	coreerrors "github.com/lueurxax/news-radar/internal/core/errors"
	"github.com/lueurxax/news-radar/internal/platform/config"
)

const (
	circuitFailureThreshold = 5
	circuitCooldown         = time.Minute
	rateBurst               = 5
)

type openAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *zerolog.Logger

	mu           sync.Mutex
	failures     int
	circuitUntil time.Time
}

func newOpenAI(cfg *config.Config, logger *zerolog.Logger) *openAIClient {
	clientCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		clientCfg.BaseURL = cfg.LLMBaseURL
	}

	return &openAIClient{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.LLMModel,
		timeout: cfg.LLMTimeout,
		limiter: rate.NewLimiter(rate.Limit(cfg.LLMRateRPS), rateBurst),
		logger:  logger,
	}
}

func (c *openAIClient) Analyze(ctx context.Context, text string) (domain.Analysis, error) {
	raw, err := c.complete(ctx, analyzeSystemPrompt, text)
	if err != nil {
		return DefaultAnalysis(), fmt.Errorf("analyze request: %w", err)
	}

	analysis, err := parseAnalysis(raw)
	if err != nil {
		c.logger.Warn().Err(err).Str("response", truncate(raw, 200)).Msg("unparseable analysis response")

		return DefaultAnalysis(), fmt.Errorf("analyze parse: %w", err)
	}

	return analysis, nil
}

func (c *openAIClient) ConfirmSimilarity(ctx context.Context, summaryA, summaryB string) (bool, error) {
	user := fmt.Sprintf("Story A:\n%s\n\nStory B:\n%s", summaryA, summaryB)

	raw, err := c.complete(ctx, similaritySystemPrompt, user)
	if err != nil {
		return false, fmt.Errorf("similarity request: %w", err)
	}

	return parseSameEvent(raw), nil
}

func (c *openAIClient) ScoreRelevance(ctx context.Context, summary, prompt string) (float32, error) {
	user := fmt.Sprintf("Interest filter:\n%s\n\nStory:\n%s", prompt, summary)

	raw, err := c.complete(ctx, relevanceSystemPrompt, user)
	if err != nil {
		return NeutralRelevance, fmt.Errorf("relevance request: %w", err)
	}

	score, err := parseScore(raw)
	if err != nil {
		return NeutralRelevance, fmt.Errorf("relevance parse: %w", err)
	}

	return score, nil
}

func (c *openAIClient) AssessImpact(ctx context.Context, summary string, contexts []ImpactContext) (ImpactAssessment, error) {
	var sb strings.Builder
	sb.WriteString("Story:\n")
	sb.WriteString(summary)
	sb.WriteString("\n\nExternal precedents:\n")

	for i, cx := range contexts {
		fmt.Fprintf(&sb, "%d. %s\n%s\n", i+1, cx.Title, cx.Snippet)
	}

	raw, err := c.complete(ctx, impactSystemPrompt, sb.String())
	if err != nil {
		return ImpactAssessment{}, fmt.Errorf("impact request: %w", err)
	}

	assessment, err := parseImpact(raw)
	if err != nil {
		return ImpactAssessment{}, fmt.Errorf("impact parse: %w", err)
	}

	return assessment, nil
}

func (c *openAIClient) complete(ctx context.Context, system, user string) (string, error) {
	if err := c.checkCircuit(); err != nil {
		return "", err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	})
	if err != nil {
		c.recordFailure()

		return "", err
	}

	c.recordSuccess()

	if len(resp.Choices) == 0 {
		return "", coreerrors.ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}

func (c *openAIClient) checkCircuit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Now().Before(c.circuitUntil) {
		return coreerrors.ErrClientDisabled
	}

	return nil
}

func (c *openAIClient) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures = 0
}

func (c *openAIClient) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures++
	if c.failures >= circuitFailureThreshold {
		c.circuitUntil = time.Now().Add(circuitCooldown)
		c.failures = 0
		c.logger.Warn().Dur("cooldown", circuitCooldown).Msg("analyzer circuit opened after repeated failures")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n]
}
