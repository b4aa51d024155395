package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/okravets/tour-bot/internal/config"
	"github.com/okravets/tour-bot/internal/currency"
	"github.com/okravets/tour-bot/internal/extract"
	"github.com/okravets/tour-bot/internal/ittour"
	"github.com/okravets/tour-bot/internal/lexicon"
	"github.com/okravets/tour-bot/internal/llm/openai"
	"github.com/okravets/tour-bot/internal/metrics"
	"github.com/okravets/tour-bot/internal/orchestrator"
	"github.com/okravets/tour-bot/internal/session"
	sessionmemory "github.com/okravets/tour-bot/internal/session/memory"
	sessionredis "github.com/okravets/tour-bot/internal/session/redis"
	"github.com/okravets/tour-bot/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lex, err := lexicon.LoadFiles(cfg.Lexicon.CountryPath, cfg.Lexicon.FromCityPath)
	if err != nil {
		logger.Fatal("load lexicon", zap.Error(err))
	}
	logger.Info("lexicon loaded",
		zap.Int("countries", len(lex.Countries())),
		zap.Int("cities", len(lex.Cities())),
	)

	m := metrics.New()

	var store session.Store
	var memStore *sessionmemory.Store
	switch cfg.Session.Backend {
	case "redis":
		store = sessionredis.New(sessionredis.Config{
			Addr: cfg.Session.RedisAddr,
			DB:   cfg.Session.RedisDB,
			TTL:  cfg.Session.TTL,
		})
		logger.Info("using redis session store", zap.String("addr", cfg.Session.RedisAddr))
	default:
		memStore = sessionmemory.New(sessionmemory.Config{TTL: cfg.Session.TTL})
		store = memStore
		logger.Info("using in-memory session store")
	}

	converter := currency.New(currency.Config{
		Rates:           cfg.Currency.Rates,
		StaleAfter:      cfg.Currency.StaleAfter,
		RefreshInterval: cfg.Currency.RefreshInterval,
		Strict:          cfg.Currency.Strict,
	}, logger)

	var llmStrategy extract.Strategy
	if cfg.LLM.Enabled && cfg.LLM.APIKey != "" {
		client := openai.New(openai.Config{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			BaseURL: cfg.LLM.BaseURL,
			Timeout: cfg.LLM.Timeout,
		}, logger)
		llmStrategy = extract.NewLLMStrategy(client, lex, logger, time.Now)
		logger.Info("llm extraction enabled", zap.String("model", cfg.LLM.Model))
	} else {
		logger.Info("llm extraction disabled, rule-based only")
	}

	chain := extract.NewChain(
		llmStrategy,
		extract.NewRuleStrategy(lex, time.Now),
		extract.ChainConfig{
			LLMEnabled: llmStrategy != nil,
			LLMTimeout: cfg.LLM.Timeout,
		},
		logger, m,
	)

	searchClient := ittour.New(ittour.Config{
		Token:          cfg.ITTour.Token,
		BaseURL:        cfg.ITTour.BaseURL,
		AcceptLanguage: cfg.ITTour.AcceptLanguage,
		Timeout:        cfg.ITTour.Timeout,
	}, logger)

	orch := orchestrator.New(orchestrator.Deps{
		Extractor:   chain,
		Sessions:    store,
		Locker:      session.NewLocker(),
		Lexicon:     lex,
		Converter:   converter,
		Search:      searchClient,
		Interpreter: ittour.NewInterpreter(),
		Logger:      logger,
		Metrics:     m,
	}, orchestrator.Config{
		TurnTimeout: cfg.Timeouts.Turn,
	})

	bot, err := telegram.New(telegram.BotConfig{
		Token:             cfg.Telegram.Token,
		Debug:             cfg.Telegram.Debug,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
	}, orch, logger, m)
	if err != nil {
		logger.Fatal("create bot", zap.Error(err))
	}

	metricsServer := &http.Server{
		Addr:    cfg.Metrics.Addr,
		Handler: metrics.Handler(),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	// рефреш статической таблицы сбрасывает её staleness: без него
	// долгоживущий процесс со временем начнёт жаловаться на старые курсы
	if cfg.Currency.RefreshInterval > 0 {
		g.Go(func() error {
			converter.Watch(ctx, currency.StaticSource(cfg.Currency.Rates))
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("metrics server listening", zap.String("addr", cfg.Metrics.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if memStore != nil {
			memStore.Stop()
		}
		return metricsServer.Shutdown(shutdownCtx)
	})

	// периодический замер живых сессий для гейджа
	if memStore != nil {
		g.Go(func() error {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					m.SetActiveSessions(float64(memStore.Len()))
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		logger.Fatal("bot stopped with error", zap.Error(err))
	}
	logger.Info("bot stopped")
}
