package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/okravets/tour-bot/internal/domain"
	llmmock "github.com/okravets/tour-bot/internal/llm/mock"
	"github.com/okravets/tour-bot/internal/metrics"
)

func newChain(t *testing.T, mock *llmmock.Client, llmEnabled bool) *Chain {
	t.Helper()
	var llmStrat Strategy
	if mock != nil {
		llmStrat = newLLM(t, mock)
	}
	rules := newRules(t)
	return NewChain(llmStrat, rules, ChainConfig{LLMEnabled: llmEnabled}, zap.NewNop(), nil)
}

func TestChain_LLMFirstThenRules(t *testing.T) {
	mock := llmmock.New().WithResponse(`{"adults": 2}`)
	c := newChain(t, mock, true)

	deltas, err := c.Extract(context.Background(), "Туреччина на 2 дорослих", nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(deltas) != 2 {
		t.Fatalf("len(deltas) = %d, want 2", len(deltas))
	}
	// heuristic идёт первой, exact перекроет её при слиянии
	if deltas[0].Confidence != domain.ConfidenceHeuristic {
		t.Errorf("deltas[0].Confidence = %v, want heuristic", deltas[0].Confidence)
	}
	if deltas[1].Confidence != domain.ConfidenceExact {
		t.Errorf("deltas[1].Confidence = %v, want exact", deltas[1].Confidence)
	}
	if deltas[1].CountryID == nil || *deltas[1].CountryID != 318 {
		t.Errorf("rules delta CountryID = %v, want 318", deltas[1].CountryID)
	}
}

func TestChain_LLMFailureFallsBackToRules(t *testing.T) {
	mock := llmmock.New().WithError(errors.New("api down"))
	c := newChain(t, mock, true)

	deltas, err := c.Extract(context.Background(), "Єгипет з Києва", nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(deltas) != 1 {
		t.Fatalf("len(deltas) = %d, want 1", len(deltas))
	}
	if deltas[0].Confidence != domain.ConfidenceExact {
		t.Errorf("Confidence = %v, want exact", deltas[0].Confidence)
	}
	if deltas[0].CountryID == nil || *deltas[0].CountryID != 115 {
		t.Errorf("CountryID = %v, want 115", deltas[0].CountryID)
	}
}

func TestChain_LLMFailureAndNoRuleHits(t *testing.T) {
	mock := llmmock.New().WithError(errors.New("api down"))
	c := newChain(t, mock, true)

	if _, err := c.Extract(context.Background(), "просто текст без параметрів", nil); !errors.Is(err, domain.ErrExtractionFailed) {
		t.Errorf("Extract() error = %v, want ErrExtractionFailed", err)
	}
}

func TestChain_NoHitsWithoutLLMIsNotError(t *testing.T) {
	c := newChain(t, nil, false)

	deltas, err := c.Extract(context.Background(), "просто текст без параметрів", nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(deltas) != 0 {
		t.Errorf("len(deltas) = %d, want 0", len(deltas))
	}
}

func TestChain_LLMDisabled(t *testing.T) {
	mock := llmmock.New().WithResponse(`{"adults": 2}`)
	c := newChain(t, mock, false)

	deltas, err := c.Extract(context.Background(), "Туреччина", nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if mock.CallCount != 0 {
		t.Errorf("llm called %d times while disabled", mock.CallCount)
	}
	if len(deltas) != 1 || deltas[0].Confidence != domain.ConfidenceExact {
		t.Errorf("deltas = %+v, want single exact delta", deltas)
	}
}

func TestChain_EmptyLLMDeltaDropped(t *testing.T) {
	mock := llmmock.New().WithResponse(`{}`)
	c := newChain(t, mock, true)

	deltas, err := c.Extract(context.Background(), "Туреччина", nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(deltas) != 1 {
		t.Fatalf("len(deltas) = %d, want 1 (пустую LLM-дельту отбрасываем)", len(deltas))
	}
	if deltas[0].Confidence != domain.ConfidenceExact {
		t.Errorf("Confidence = %v, want exact", deltas[0].Confidence)
	}
}

func TestChain_ObservesStrategyDurations(t *testing.T) {
	m := metrics.New()
	mock := llmmock.New().WithResponse(`{"adults": 2}`)
	c := NewChain(newLLM(t, mock), newRules(t), ChainConfig{LLMEnabled: true}, zap.NewNop(), m)

	if _, err := c.Extract(context.Background(), "Туреччина на 2 дорослих", nil); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	// по одной серии тайминга на каждую стратегию
	if got := testutil.CollectAndCount(m.ExtractionDuration); got != 2 {
		t.Errorf("ExtractionDuration series = %d, want 2", got)
	}
}
