// Package orchestrator ведёт машину состояний одного диалога:
// Collecting -> Defaulting -> Validating -> (AwaitingUser | Submitting) ->
// (Interpreting -> Defaulting при autofix | Done).
// Один ход - один синхронный вызов Turn.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/okravets/tour-bot/internal/currency"
	"github.com/okravets/tour-bot/internal/domain"
	"github.com/okravets/tour-bot/internal/extract"
	"github.com/okravets/tour-bot/internal/ittour"
	"github.com/okravets/tour-bot/internal/lexicon"
	"github.com/okravets/tour-bot/internal/metrics"
	"github.com/okravets/tour-bot/internal/session"
)

type ReplyKind string

const (
	KindClarification ReplyKind = "clarification"
	KindOffers        ReplyKind = "offers"
	KindError         ReplyKind = "error"
)

// Reply - то, что транспорт покажет пользователю. Рендеринг карточек и
// нарезка длинных сообщений - забота транспорта, не оркестратора.
type Reply struct {
	Kind ReplyKind
	Text string

	// для KindOffers
	State      *domain.PartialState
	Offers     []ittour.Offer
	CurrencyID int
	Page       int
	HasMore    bool

	Warning string
}

type Config struct {
	TurnTimeout       time.Duration
	MaxAutofixRetries int
	Now               func() time.Time
}

type Deps struct {
	Extractor   *extract.Chain
	Sessions    session.Store
	Locker      *session.Locker
	Lexicon     *lexicon.Lexicon
	Converter   *currency.Converter
	Search      ittour.Client
	Interpreter *ittour.Interpreter
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
}

type Orchestrator struct {
	deps Deps
	cfg  Config
}

func New(deps Deps, cfg Config) *Orchestrator {
	if cfg.TurnTimeout == 0 {
		cfg.TurnTimeout = 60 * time.Second
	}
	if cfg.MaxAutofixRetries == 0 {
		cfg.MaxAutofixRetries = 2
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{deps: deps, cfg: cfg}
}

// Reset стирает черновик диалога: следующий ход начнётся с чистого листа.
func (o *Orchestrator) Reset(ctx context.Context, chatID int64) error {
	unlock := o.deps.Locker.Lock(chatID)
	defer unlock()
	return o.deps.Sessions.Clear(ctx, chatID)
}

// Turn обрабатывает одно сообщение пользователя. Ходы одного чата строго
// последовательны, разные чаты идут параллельно.
func (o *Orchestrator) Turn(ctx context.Context, chatID int64, text string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyMessage
	}
	if len(text) > domain.MaxMessageLength {
		return nil, domain.ErrMessageTooLong
	}

	unlock := o.deps.Locker.Lock(chatID)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, o.cfg.TurnTimeout)
	defer cancel()

	if o.deps.Metrics != nil {
		o.deps.Metrics.IncTurnsInFlight()
		defer o.deps.Metrics.DecTurnsInFlight()
	}

	start := time.Now()
	reply, err := o.turn(ctx, chatID, text)
	if o.deps.Metrics != nil {
		outcome := "error"
		if err == nil && reply != nil {
			outcome = string(reply.Kind)
		} else if errors.Is(err, domain.ErrSessionExpired) {
			outcome = "expired"
		}
		o.deps.Metrics.RecordTurn(outcome, time.Since(start))
	}
	return reply, err
}

func (o *Orchestrator) turn(ctx context.Context, chatID int64, text string) (*Reply, error) {
	now := o.cfg.Now()
	log := o.deps.Logger.With(zap.Int64("chat_id", chatID))

	// Collecting: достаём черновик и накатываем извлечённые поля
	st, found, err := o.deps.Sessions.Get(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}
	if o.deps.Metrics != nil {
		if found {
			o.deps.Metrics.RecordSessionHit()
		} else {
			o.deps.Metrics.RecordSessionMiss()
		}
	}
	if !found {
		st = domain.NewPartialState()
	}

	// "ще" после непустой выдачи листает её дальше, извлечение не нужно
	if found && st.Page > 0 && wantsNextPage(text) {
		st.Page++
		working := domain.ApplyDefaults(st, now)
		if v := domain.Validate(working, now, o.deps.Lexicon).First(); v != nil {
			return &Reply{Kind: KindClarification, Text: v.Message}, nil
		}
		log.Info("fetching next page", zap.Int("page", st.Page))
		return o.submit(ctx, chatID, st, working, now, "", log)
	}

	deltas, err := o.deps.Extractor.Extract(ctx, text, st)
	if err != nil {
		log.Warn("extraction failed", zap.Error(err))
		return &Reply{Kind: KindClarification,
			Text: "Не можу розпізнати запит 🤔 Напишіть, наприклад: <i>Тур до Єгипту на 2 дорослих з 10.12, бюджет 1500 дол</i>"}, nil
	}
	if len(deltas) == 0 {
		return &Reply{Kind: KindClarification,
			Text: "Не знайшов у повідомленні параметрів туру 🤔 Напишіть країну, місто вильоту, дати чи бюджет."}, nil
	}

	prevCurrency := ""
	if _, ok := st.SetBy(domain.FieldCurrency); ok {
		prevCurrency = st.Currency
	}
	deltaHasBudget := false
	for _, d := range deltas {
		if d.BudgetFrom != nil || d.BudgetTo != nil {
			deltaHasBudget = true
		}
	}

	for _, d := range deltas {
		st.Merge(d, domain.SourceUser)
	}

	// смена валюты без нового бюджета: пересчитываем старый бюджет,
	// чтобы "а в доларах?" не превращался в бюджет 500000 USD
	warning := ""
	if prevCurrency != "" && st.Currency != prevCurrency && !deltaHasBudget {
		w, convErr := o.convertBudgets(st, prevCurrency, st.Currency)
		if convErr != nil {
			if errors.Is(convErr, domain.ErrUnknownCurrency) {
				return &Reply{Kind: KindClarification,
					Text: "Не впізнаю таку валюту 💱 Підтримую грн, долари та євро."}, nil
			}
			if errors.Is(convErr, domain.ErrStaleRates) {
				return &Reply{Kind: KindError,
					Text: "Курси валют застаріли, не можу перерахувати бюджет. Вкажіть бюджет у новій валюті."}, nil
			}
			return nil, convErr
		}
		warning = w
	}

	// смена ключевых параметров - это новый поиск, пагинацию сбрасываем
	newHash := st.ComputeQueryHash()
	if st.QueryHash != "" && st.QueryHash != newHash {
		st.Page = 0
	}
	st.QueryHash = newHash

	// Defaulting -> Validating
	working := domain.ApplyDefaults(st, now)
	result := domain.Validate(working, now, o.deps.Lexicon)
	if fix := dateFix(result); fix != nil {
		st.Merge(fix, domain.SourceCarried)
		working = domain.ApplyDefaults(st, now)
		result = domain.Validate(working, now, o.deps.Lexicon)
	}

	if err := o.deps.Sessions.Put(ctx, chatID, st); err != nil {
		return nil, fmt.Errorf("session put: %w", err)
	}

	if v := result.First(); v != nil {
		// AwaitingUser
		return &Reply{Kind: KindClarification, Text: v.Message, Warning: warning}, nil
	}

	return o.submit(ctx, chatID, st, working, now, warning, log)
}

// submit гоняет цикл Submitting -> Interpreting с бюджетом автоповторов.
func (o *Orchestrator) submit(ctx context.Context, chatID int64, st, working *domain.PartialState, now time.Time, warning string, log *zap.Logger) (*Reply, error) {
	currencyID, ok := currency.HintID(working.Currency)
	if !ok {
		currencyID = currency.IDUAH
	}

	q, err := domain.BuildQuery(working, currencyID)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	retries := 0
	fixed := map[int]bool{} // коды, уже чинённые в этом цикле
	for {
		reqStart := time.Now()
		resp, err := o.deps.Search.SearchList(ctx, q)
		if o.deps.Metrics != nil {
			status := "success"
			if err != nil {
				status = "error"
			}
			o.deps.Metrics.RecordUpstreamRequest(status, time.Since(reqStart))
		}

		if err == nil {
			return o.finish(ctx, chatID, st, working, resp, currencyID, warning)
		}

		var upErr *ittour.UpstreamError
		if !errors.As(err, &upErr) {
			log.Error("search request failed", zap.Error(err))
			return &Reply{Kind: KindError,
				Text: "Сервіс пошуку тимчасово недоступний. Спробуйте пізніше 🙏"}, nil
		}

		interp, ierr := o.deps.Interpreter.Interpret(upErr.Code, upErr.Error())
		if ierr != nil {
			// неизвестный код: показываем как есть, без autofix
			log.Error("unrecognized upstream error",
				zap.Int("code", upErr.Code), zap.String("message", upErr.Message))
			return &Reply{Kind: KindError,
				Text: fmt.Sprintf("Сталася помилка сервісу (%d): %s", upErr.Code, upErr.Error())}, nil
		}

		if interp.Autofix == nil {
			log.Warn("upstream error without autofix", zap.Int("code", upErr.Code))
			return &Reply{Kind: KindError, Text: interp.Explanation}, nil
		}
		// повторный сбой с тем же кодом после его autofix означает, что
		// правка не помогла: ещё один идентичный запрос смысла не имеет
		if fixed[upErr.Code] || retries >= o.cfg.MaxAutofixRetries {
			log.Warn("autofix retry budget exhausted", zap.Int("code", upErr.Code))
			return &Reply{Kind: KindError,
				Text: "Автоматичне виправлення не допомогло 😔 " + interp.Explanation +
					" Спробуйте змінити дати чи інші параметри."}, nil
		}

		fix := interp.Autofix(working, now)
		if fix == nil {
			return &Reply{Kind: KindError, Text: interp.Explanation}, nil
		}
		retries++
		fixed[upErr.Code] = true
		if o.deps.Metrics != nil {
			o.deps.Metrics.RecordAutofixRetry(strconv.Itoa(upErr.Code))
		}
		log.Info("applying upstream autofix",
			zap.Int("code", upErr.Code), zap.Int("retry", retries))

		// Interpreting -> Defaulting: правка проходит полный круг
		st.Merge(fix, domain.SourceCarried)
		working = domain.ApplyDefaults(st, now)
		if v := domain.Validate(working, now, o.deps.Lexicon).First(); v != nil {
			if putErr := o.deps.Sessions.Put(ctx, chatID, st); putErr != nil {
				return nil, fmt.Errorf("session put: %w", putErr)
			}
			return &Reply{Kind: KindClarification, Text: v.Message}, nil
		}
		if putErr := o.deps.Sessions.Put(ctx, chatID, st); putErr != nil {
			return nil, fmt.Errorf("session put: %w", putErr)
		}
		q, err = domain.BuildQuery(working, currencyID)
		if err != nil {
			return nil, fmt.Errorf("build query after autofix: %w", err)
		}
	}
}

// finish закрывает успешный ход. Если сессия истекла, пока поиск был в
// полёте, результат отбрасывается.
func (o *Orchestrator) finish(ctx context.Context, chatID int64, st, working *domain.PartialState, resp *ittour.SearchResponse, currencyID int, warning string) (*Reply, error) {
	if _, alive, err := o.deps.Sessions.Get(ctx, chatID); err == nil && !alive {
		return nil, domain.ErrSessionExpired
	}

	// пустая выдача - сессию храним, пользователь подвинет параметры
	if len(resp.Offers) == 0 {
		return &Reply{Kind: KindOffers, State: working.Clone(), CurrencyID: currencyID,
			Text:    "За вашими умовами нічого не знайшлося 😔 Спробуємо змінити бюджет, дати чи кількість ночей?",
			Warning: warning}, nil
	}

	// ITTour не всегда возвращает номер страницы, берём запрошенный
	page := resp.Page
	if page == 0 {
		page = st.Page
	}
	if page == 0 {
		page = 1
	}

	// остались страницы - держим сессию, "ще" продолжит с показанной
	if resp.HasMorePages {
		st.Page = page
		if err := o.deps.Sessions.Put(ctx, chatID, st); err != nil {
			o.deps.Logger.Warn("session put failed", zap.Error(err), zap.Int64("chat_id", chatID))
		}
	} else if err := o.deps.Sessions.Clear(ctx, chatID); err != nil {
		o.deps.Logger.Warn("session clear failed", zap.Error(err), zap.Int64("chat_id", chatID))
	}

	return &Reply{
		Kind:       KindOffers,
		State:      working.Clone(),
		Offers:     resp.Offers,
		CurrencyID: currencyID,
		Page:       page,
		HasMore:    resp.HasMorePages,
		Warning:    warning,
	}, nil
}

// convertBudgets пересчитывает бюджет из from в to. Возвращает текст
// предупреждения, если курсы устарели, но политика разрешила продолжить.
func (o *Orchestrator) convertBudgets(st *domain.PartialState, from, to string) (string, error) {
	stale := false
	conv := func(p *int) (*int, error) {
		if p == nil {
			return nil, nil
		}
		res, err := o.deps.Converter.Convert(float64(*p), from, to)
		if err != nil {
			return nil, err
		}
		if res.Stale {
			stale = true
		}
		n := int(math.Round(res.Amount))
		return &n, nil
	}

	bf, err := conv(st.BudgetFrom)
	if err != nil {
		return "", err
	}
	bt, err := conv(st.BudgetTo)
	if err != nil {
		return "", err
	}
	st.BudgetFrom, st.BudgetTo = bf, bt

	if stale {
		return "⚠️ Курси валют могли застаріти, бюджет перераховано орієнтовно.", nil
	}
	return "", nil
}

// wantsNextPage распознаёт просьбу долистать прошлую выдачу.
func wantsNextPage(text string) bool {
	switch strings.ToLower(text) {
	case "ще", "іще", "далі", "більше", "ще варіанти", "покажи ще", "більше варіантів", "next":
		return true
	}
	return false
}

// dateFix выбирает автоисправление, которое можно применить молча:
// перепутанный порядок дат и слишком широкое окно не требуют уточнения.
func dateFix(result domain.ValidationResult) *domain.Delta {
	for _, v := range result {
		if v.Fix == nil {
			continue
		}
		if v.Code == domain.ReasonDateOrder || v.Code == domain.ReasonDateRangeWide {
			return v.Fix
		}
	}
	return nil
}
