// Package extract превращает свободный текст пользователя в дельту слотов.
// Две стратегии: LLM и rule-based. LLM идёт первой, при любом сбое
// откатываемся на правила; правила также добирают поля, которые LLM
// оставила пустыми.
package extract

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/okravets/tour-bot/internal/domain"
	"github.com/okravets/tour-bot/internal/metrics"
)

// Strategy извлекает из текста только явно упомянутые поля.
// Слияние с состоянием - работа оркестратора, не стратегии.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, text string, prior *domain.PartialState) (*domain.Delta, error)
}

type ChainConfig struct {
	LLMEnabled bool
	LLMTimeout time.Duration
}

// Chain - LLM-first с откатом на правила.
type Chain struct {
	llm     Strategy
	rules   Strategy
	cfg     ChainConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewChain(llm, rules Strategy, cfg ChainConfig, logger *zap.Logger, m *metrics.Metrics) *Chain {
	if cfg.LLMTimeout == 0 {
		cfg.LLMTimeout = 15 * time.Second
	}
	return &Chain{llm: llm, rules: rules, cfg: cfg, logger: logger, metrics: m}
}

// Extract возвращает дельты в порядке применения: сначала heuristic (LLM),
// затем exact (правила). Exact-поля при слиянии перекрывают heuristic.
// Ошибка означает, что LLM упала И правила ничего не нашли в непустом тексте.
func (c *Chain) Extract(ctx context.Context, text string, prior *domain.PartialState) ([]*domain.Delta, error) {
	var deltas []*domain.Delta
	var llmErr error

	if c.cfg.LLMEnabled && c.llm != nil {
		llmCtx, cancel := context.WithTimeout(ctx, c.cfg.LLMTimeout)
		start := time.Now()
		d, err := c.llm.Extract(llmCtx, text, prior)
		cancel()
		if c.metrics != nil {
			c.metrics.ObserveExtraction("llm", time.Since(start))
		}
		if err != nil {
			llmErr = err
			c.logger.Warn("llm extraction failed, falling back to rules", zap.Error(err))
			if c.metrics != nil {
				c.metrics.RecordExtraction("llm", "error")
			}
		} else {
			if c.metrics != nil {
				c.metrics.RecordExtraction("llm", "success")
			}
			if !d.Empty() {
				deltas = append(deltas, d)
			}
		}
	}

	rulesStart := time.Now()
	rd, err := c.rules.Extract(ctx, text, prior)
	if c.metrics != nil {
		c.metrics.ObserveExtraction("rules", time.Since(rulesStart))
	}
	if err == nil && !rd.Empty() {
		if c.metrics != nil {
			c.metrics.RecordExtraction("rules", "success")
		}
		deltas = append(deltas, rd)
	} else if c.metrics != nil {
		c.metrics.RecordExtraction("rules", "empty")
	}

	if len(deltas) == 0 && llmErr != nil {
		return nil, domain.ErrExtractionFailed
	}
	return deltas, nil
}
