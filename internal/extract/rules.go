package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/okravets/tour-bot/internal/domain"
	"github.com/okravets/tour-bot/internal/lexicon"
)

var (
	// город вылета: "з Києва", "із Варшави"
	reFromCity = regexp.MustCompile(`(?:^|[^\p{L}])(?:з|із)\s+([\p{L}'’][\p{L}'’\- ]*)`)

	// дорослые только при ключевом слове, чтобы "на 25.06" не стало adults=25
	reAdults = regexp.MustCompile(`(\d{1,2})\s*(?:доросл|людин|осіб|чол|персон|people|adult)`)

	reChildren = regexp.MustCompile(`(\d{1,2})\s*(?:дит|діт)`)

	reBudgetRange  = regexp.MustCompile(`від\s*(\d+)\s*до\s*(\d+)`)
	reBudgetUpper  = regexp.MustCompile(`до\s*(\d{3,})`)
	reBudgetApprox = regexp.MustCompile(`близько\s*(\d+)`)

	// разделители как в подсказке бота: 10.12, 25,4, 10/12/26.
	// дефис не берём, иначе "6-8 ночей" превратится в дату
	reNumericDate = regexp.MustCompile(`(\d{1,2})[.,/](\d{1,2})(?:[.,/](\d{2,4}))?`)
	reNamedDate   = regexp.MustCompile(`(\d{1,2})\s+(січня|лютого|березня|квітня|травня|червня|липня|серпня|вересня|жовтня|листопада|грудня)(?:\s+(\d{2,4}))?`)

	reWord = regexp.MustCompile(`[\p{L}][\p{L}'’\-]*`)
)

var usdHints = []string{"usd", "дол", "долар", "$"}
var eurHints = []string{"eur", "євро", "€"}
var uahHints = []string{"uah", "грн", "гривн"}

// RuleStrategy - регулярки + лексикон. Находки помечаются exact.
type RuleStrategy struct {
	lex *lexicon.Lexicon
	now func() time.Time
}

func NewRuleStrategy(lex *lexicon.Lexicon, now func() time.Time) *RuleStrategy {
	if now == nil {
		now = time.Now
	}
	return &RuleStrategy{lex: lex, now: now}
}

func (r *RuleStrategy) Name() string { return "rules" }

func (r *RuleStrategy) Extract(_ context.Context, text string, _ *domain.PartialState) (*domain.Delta, error) {
	t := strings.ToLower(strings.TrimSpace(text))
	d := &domain.Delta{Confidence: domain.ConfidenceExact}
	if t == "" {
		return d, nil
	}

	r.extractFromCity(t, d)
	r.extractCountry(t, d)
	r.extractPeople(t, d)
	r.extractBudget(t, d)
	r.extractCurrency(t, d)
	r.extractDates(t, d)

	return d, nil
}

// "з варшави" может захватить хвост ("києва з"), поэтому пробуем
// префиксы захвата от длинного к короткому, максимум три слова.
func (r *RuleStrategy) extractFromCity(t string, d *domain.Delta) {
	m := reFromCity.FindStringSubmatch(t)
	if m == nil {
		return
	}
	words := strings.Fields(strings.TrimSpace(m[1]))
	if len(words) > 3 {
		words = words[:3]
	}
	for n := len(words); n >= 1; n-- {
		cand := strings.Join(words[:n], " ")
		if id, ok := r.lex.FromCityID(cand); ok {
			d.FromCityID = &id
			name := r.lex.FromCityName(id)
			d.FromCityName = &name
			return
		}
	}
}

// страна: скан слов и биграм по словарю стран
func (r *RuleStrategy) extractCountry(t string, d *domain.Delta) {
	words := reWord.FindAllString(t, -1)
	for i := 0; i < len(words); i++ {
		if i+1 < len(words) {
			if id, ok := r.lex.CountryID(words[i] + " " + words[i+1]); ok {
				r.setCountry(d, id)
				return
			}
		}
		if len([]rune(words[i])) < 3 {
			continue
		}
		if id, ok := r.lex.CountryID(words[i]); ok {
			r.setCountry(d, id)
			return
		}
	}
}

func (r *RuleStrategy) setCountry(d *domain.Delta, id int) {
	d.CountryID = &id
	name := r.lex.CountryName(id)
	d.CountryName = &name
}

func (r *RuleStrategy) extractPeople(t string, d *domain.Delta) {
	if m := reAdults.FindStringSubmatch(t); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			d.Adults = &n
		}
	}
	if m := reChildren.FindStringSubmatch(t); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			d.Children = &n
		}
	}
}

func (r *RuleStrategy) extractBudget(t string, d *domain.Delta) {
	if m := reBudgetRange.FindStringSubmatch(t); m != nil {
		from, _ := strconv.Atoi(m[1])
		to, _ := strconv.Atoi(m[2])
		d.BudgetFrom = &from
		d.BudgetTo = &to
		return
	}
	if m := reBudgetUpper.FindStringSubmatch(t); m != nil {
		to, _ := strconv.Atoi(m[1])
		d.BudgetTo = &to
	}
	if m := reBudgetApprox.FindStringSubmatch(t); m != nil && d.BudgetTo == nil {
		v, _ := strconv.Atoi(m[1])
		from := v - 200
		if from < 0 {
			from = 0
		}
		to := v + 200
		d.BudgetFrom = &from
		d.BudgetTo = &to
	}
}

func (r *RuleStrategy) extractCurrency(t string, d *domain.Delta) {
	switch {
	case containsAny(t, usdHints):
		cur := "usd"
		d.Currency = &cur
	case containsAny(t, eurHints):
		cur := "eur"
		d.Currency = &cur
	case containsAny(t, uahHints):
		cur := "uah"
		d.Currency = &cur
	}
}

// первая дата в тексте - date_from, вторая - date_till
func (r *RuleStrategy) extractDates(t string, d *domain.Delta) {
	type hit struct {
		pos int
		raw string
	}
	var hits []hit
	for _, loc := range reNamedDate.FindAllStringIndex(t, -1) {
		hits = append(hits, hit{loc[0], t[loc[0]:loc[1]]})
	}
	for _, loc := range reNumericDate.FindAllStringIndex(t, -1) {
		hits = append(hits, hit{loc[0], t[loc[0]:loc[1]]})
	}
	if len(hits) == 0 {
		return
	}
	// сортировка по позиции (вставкой - хитов единицы)
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	now := r.now()
	var parsed []time.Time
	for _, h := range hits {
		dt, err := NormalizeDate(h.raw, now)
		if err != nil {
			continue
		}
		parsed = append(parsed, dt)
		if len(parsed) == 2 {
			break
		}
	}
	if len(parsed) >= 1 {
		d.DateFrom = &parsed[0]
	}
	if len(parsed) >= 2 {
		d.DateTill = &parsed[1]
	}
}

func containsAny(t string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(t, h) {
			return true
		}
	}
	return false
}

var _ Strategy = (*RuleStrategy)(nil)
