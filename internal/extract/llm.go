package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/okravets/tour-bot/internal/domain"
	"github.com/okravets/tour-bot/internal/lexicon"
	"github.com/okravets/tour-bot/internal/llm"
)

const systemPrompt = `Ти — екстрактор параметрів для пошуку турів.
Відповідай ТІЛЬКИ валідним JSON без коментарів.
Схема:
{
  "country_name": string|null,
  "from_city_name": string|null,
  "country_id": int|null,
  "from_city_id": int|null,
  "adults": int|null,
  "children": int|null,
  "child_ages": "7:4:3"|null,
  "date_from": "dd.mm.yy"|null,
  "date_till": "dd.mm.yy"|null,
  "currency_hint": "usd"|"eur"|"uah"|null,
  "budget_from": int|null,
  "budget_to": int|null
}
Правила:
- Мапити назви країн/міст через надані мапи (country_map, from_city_map). Якщо немає збігу — поверни *name, але id = null.
- Валюта: usd/дол/$ → "usd"; eur/євро/€ → "eur"; інакше "uah" або null.
- Бюджет: підтримуй "до 2000", "від 500 до 1500", "близько 1000".
- Дати: приймай dd.mm або dd.mm.yy → нормалізуй у dd.mm.yy, якщо можливо; інакше null.
- Дорослі/діти: "на 2", "для двох дорослих і 1 дитини 7 років".
- Витягай лише те, що явно сказано в тексті. Якщо не впевнений — поверни null (не вигадуй).`

// llmDelta - распознаваемая схема ответа модели. Ответ вне схемы или вне
// диапазонов - это сбой экстрактора, а не данные.
type llmDelta struct {
	CountryName  *string `json:"country_name" validate:"omitempty,max=64"`
	FromCityName *string `json:"from_city_name" validate:"omitempty,max=64"`
	CountryID    *int    `json:"country_id" validate:"omitempty,gt=0"`
	FromCityID   *int    `json:"from_city_id" validate:"omitempty,gt=0"`
	Adults       *int    `json:"adults" validate:"omitempty,min=1,max=9"`
	Children     *int    `json:"children" validate:"omitempty,min=0,max=9"`
	ChildAges    *string `json:"child_ages" validate:"omitempty,max=32"`
	DateFrom     *string `json:"date_from" validate:"omitempty,max=16"`
	DateTill     *string `json:"date_till" validate:"omitempty,max=16"`
	CurrencyHint *string `json:"currency_hint" validate:"omitempty,oneof=usd eur uah"`
	BudgetFrom   *int    `json:"budget_from" validate:"omitempty,min=0"`
	BudgetTo     *int    `json:"budget_to" validate:"omitempty,min=0"`
}

// LLMStrategy шлёт текст, снапшот состояния и словари модели, декодирует
// JSON-дельту. Находки помечаются heuristic.
type LLMStrategy struct {
	client   llm.Client
	lex      *lexicon.Lexicon
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

func NewLLMStrategy(client llm.Client, lex *lexicon.Lexicon, logger *zap.Logger, now func() time.Time) *LLMStrategy {
	if now == nil {
		now = time.Now
	}
	return &LLMStrategy{
		client:   client,
		lex:      lex,
		validate: validator.New(),
		logger:   logger,
		now:      now,
	}
}

func (s *LLMStrategy) Name() string { return "llm" }

func (s *LLMStrategy) Extract(ctx context.Context, text string, prior *domain.PartialState) (*domain.Delta, error) {
	prompt, err := s.buildPrompt(text, prior)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	raw, err := s.client.CompleteJSON(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}

	parsed, err := s.decode(raw)
	if err != nil {
		s.logger.Warn("llm returned malformed delta", zap.Error(err), zap.String("raw", truncate(raw, 300)))
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionFailed, err)
	}

	return s.toDelta(parsed), nil
}

func (s *LLMStrategy) buildPrompt(text string, prior *domain.PartialState) (string, error) {
	maps := map[string]any{
		"country_map":   s.lex.Countries(),
		"from_city_map": s.lex.Cities(),
	}
	mapsJSON, err := json.Marshal(maps)
	if err != nil {
		return "", err
	}

	var sb bytes.Buffer
	fmt.Fprintf(&sb, "TEXT:\n%s\n\n", text)
	if prior != nil {
		snap, err := json.Marshal(prior)
		if err == nil {
			fmt.Fprintf(&sb, "STATE:\n%s\n\n", snap)
		}
	}
	fmt.Fprintf(&sb, "MAPS:\n%s", mapsJSON)
	return sb.String(), nil
}

// decode строго: неизвестные поля и нарушения диапазонов отвергаются.
func (s *LLMStrategy) decode(raw string) (*llmDelta, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()

	var d llmDelta
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := s.validate.Struct(&d); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	return &d, nil
}

func (s *LLMStrategy) toDelta(in *llmDelta) *domain.Delta {
	d := &domain.Delta{Confidence: domain.ConfidenceHeuristic}
	now := s.now()

	switch {
	case in.CountryID != nil && s.lex.CountryKnown(*in.CountryID):
		d.CountryID = in.CountryID
		name := s.lex.CountryName(*in.CountryID)
		d.CountryName = &name
	case in.CountryName != nil:
		if id, ok := s.lex.CountryID(*in.CountryName); ok {
			d.CountryID = &id
			name := s.lex.CountryName(id)
			d.CountryName = &name
		}
	}

	switch {
	case in.FromCityID != nil && s.lex.FromCityKnown(*in.FromCityID):
		d.FromCityID = in.FromCityID
		name := s.lex.FromCityName(*in.FromCityID)
		d.FromCityName = &name
	case in.FromCityName != nil:
		if id, ok := s.lex.FromCityID(*in.FromCityName); ok {
			d.FromCityID = &id
			name := s.lex.FromCityName(id)
			d.FromCityName = &name
		}
	}

	d.Adults = in.Adults
	d.Children = in.Children
	d.ChildAges = in.ChildAges
	d.Currency = in.CurrencyHint
	d.BudgetFrom = in.BudgetFrom
	d.BudgetTo = in.BudgetTo

	// нераспознаваемую дату пропускаем, модель попросили вернуть null
	if in.DateFrom != nil {
		if dt, err := NormalizeDate(*in.DateFrom, now); err == nil {
			d.DateFrom = &dt
		}
	}
	if in.DateTill != nil {
		if dt, err := NormalizeDate(*in.DateTill, now); err == nil {
			d.DateTill = &dt
		}
	}

	return d
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ Strategy = (*LLMStrategy)(nil)
