// Package currency - коды валют ITTour и конвертация сумм по таблице курсов.
package currency

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/okravets/tour-bot/internal/domain"
)

// Коды валют ITTour.
const (
	IDUSD = 1
	IDUAH = 2
	IDEUR = 10
)

// hintID - написания валют в пользовательском тексте.
var hintID = map[string]int{
	"uah":     IDUAH,
	"грн":     IDUAH,
	"гривня":  IDUAH,
	"гривні":  IDUAH,
	"usd":     IDUSD,
	"дол":     IDUSD,
	"долар":   IDUSD,
	"долари":  IDUSD,
	"доларів": IDUSD,
	"$":       IDUSD,
	"eur":     IDEUR,
	"євро":    IDEUR,
	"€":       IDEUR,
}

var codeByID = map[int]string{IDUSD: "usd", IDUAH: "uah", IDEUR: "eur"}
var signByID = map[int]string{IDUSD: "$", IDUAH: "₴", IDEUR: "€"}

// HintID мапит упоминание валюты на код ITTour.
func HintID(hint string) (int, bool) {
	id, ok := hintID[strings.ToLower(strings.TrimSpace(hint))]
	return id, ok
}

func Code(id int) string { return codeByID[id] }
func Sign(id int) string { return signByID[id] }

// RateSource отдаёт свежую таблицу курсов (код валюты -> курс к UAH).
type RateSource interface {
	Fetch(ctx context.Context) (map[string]float64, error)
}

// StaticSource - фиксированная таблица из конфига.
type StaticSource map[string]float64

func (s StaticSource) Fetch(ctx context.Context) (map[string]float64, error) {
	out := make(map[string]float64, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out, nil
}

type Config struct {
	Rates           map[string]float64
	StaleAfter      time.Duration
	RefreshInterval time.Duration
	Strict          bool // StaleRates как ошибка, а не предупреждение
}

// Converter - детерминированная конвертация по таблице курсов к UAH.
type Converter struct {
	mu          sync.RWMutex
	rates       map[string]float64
	refreshedAt time.Time

	staleAfter   time.Duration
	refreshEvery time.Duration
	strict       bool
	logger       *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Converter {
	if cfg.StaleAfter == 0 {
		cfg.StaleAfter = 24 * time.Hour
	}
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = time.Hour
	}
	c := &Converter{
		staleAfter:   cfg.StaleAfter,
		refreshEvery: cfg.RefreshInterval,
		strict:       cfg.Strict,
		logger:       logger,
	}
	c.SetRates(cfg.Rates, time.Now())
	return c
}

// SetRates заменяет таблицу курсов целиком.
func (c *Converter) SetRates(rates map[string]float64, at time.Time) {
	normalized := make(map[string]float64, len(rates)+1)
	for k, v := range rates {
		if v > 0 {
			normalized[strings.ToLower(k)] = v
		}
	}
	normalized["uah"] = 1

	c.mu.Lock()
	c.rates = normalized
	c.refreshedAt = at
	c.mu.Unlock()
}

// Result - результат конвертации. Stale поднят, если таблица устарела, но
// политика позволила продолжить.
type Result struct {
	Amount float64
	Stale  bool
}

// Convert переводит amount из from в to через кросс-курс к UAH.
// Округление: два знака, половина вверх.
func (c *Converter) Convert(amount float64, from, to string) (Result, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	from = strings.ToLower(strings.TrimSpace(from))
	to = strings.ToLower(strings.TrimSpace(to))

	rateFrom, ok := c.rates[from]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", domain.ErrUnknownCurrency, from)
	}
	rateTo, ok := c.rates[to]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", domain.ErrUnknownCurrency, to)
	}

	stale := time.Since(c.refreshedAt) > c.staleAfter
	if stale && c.strict {
		return Result{}, domain.ErrStaleRates
	}
	if stale && c.logger != nil {
		c.logger.Warn("converting with stale rates",
			zap.Time("refreshed_at", c.refreshedAt),
			zap.Duration("stale_after", c.staleAfter),
		)
	}

	converted := roundHalfUp(amount * rateFrom / rateTo)
	return Result{Amount: converted, Stale: stale}, nil
}

// Watch периодически обновляет курсы из источника с шагом
// Config.RefreshInterval. Блокирует до отмены ctx.
func (c *Converter) Watch(ctx context.Context, src RateSource) {
	ticker := time.NewTicker(c.refreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rates, err := src.Fetch(ctx)
			if err != nil {
				if c.logger != nil {
					c.logger.Warn("rate refresh failed", zap.Error(err))
				}
				continue
			}
			c.SetRates(rates, time.Now())
		}
	}
}

// два знака, половина вверх
func roundHalfUp(x float64) float64 {
	return math.Floor(x*100+0.5) / 100
}
