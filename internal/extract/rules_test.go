package extract

import (
	"context"
	"testing"
	"time"

	"github.com/okravets/tour-bot/internal/domain"
	"github.com/okravets/tour-bot/internal/lexicon"
)

func testLex() *lexicon.Lexicon {
	return lexicon.New(
		map[string]int{
			"Туреччина": 318,
			"Єгипет":    115,
			"Шрі-Ланка": 344,
		},
		map[string]int{
			"Київ":    1544,
			"Києва":   1544,
			"Варшава": 2801,
			"Варшави": 2801,
		},
	)
}

func newRules(t *testing.T) *RuleStrategy {
	t.Helper()
	return NewRuleStrategy(testLex(), func() time.Time { return dateNow })
}

func TestRules_FullRequest(t *testing.T) {
	r := newRules(t)
	d, err := r.Extract(context.Background(), "Туреччина на 2 дорослих з Києва з 02.11", nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if d.Confidence != domain.ConfidenceExact {
		t.Errorf("Confidence = %v, want exact", d.Confidence)
	}
	if d.CountryID == nil || *d.CountryID != 318 {
		t.Errorf("CountryID = %v, want 318", d.CountryID)
	}
	if d.Adults == nil || *d.Adults != 2 {
		t.Errorf("Adults = %v, want 2", d.Adults)
	}
	if d.FromCityID == nil || *d.FromCityID != 1544 {
		t.Errorf("FromCityID = %v, want 1544", d.FromCityID)
	}
	if d.FromCityName == nil || *d.FromCityName != "Київ" {
		t.Errorf("FromCityName = %v, want Київ", d.FromCityName)
	}
	want := time.Date(2025, 11, 2, 0, 0, 0, 0, time.Local)
	if d.DateFrom == nil || !d.DateFrom.Equal(want) {
		t.Errorf("DateFrom = %v, want %v", d.DateFrom, want)
	}
}

func TestRules_TwoDates(t *testing.T) {
	r := newRules(t)
	d, err := r.Extract(context.Background(), "з 02.11 до 09.11 в Єгипет", nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	from := time.Date(2025, 11, 2, 0, 0, 0, 0, time.Local)
	till := time.Date(2025, 11, 9, 0, 0, 0, 0, time.Local)
	if d.DateFrom == nil || !d.DateFrom.Equal(from) {
		t.Errorf("DateFrom = %v, want %v", d.DateFrom, from)
	}
	if d.DateTill == nil || !d.DateTill.Equal(till) {
		t.Errorf("DateTill = %v, want %v", d.DateTill, till)
	}
	if d.CountryID == nil || *d.CountryID != 115 {
		t.Errorf("CountryID = %v, want 115", d.CountryID)
	}
}

func TestRules_NamedDate(t *testing.T) {
	r := newRules(t)
	d, err := r.Extract(context.Background(), "хочу в Туреччину 25 квітня", nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	want := time.Date(2026, 4, 25, 0, 0, 0, 0, time.Local)
	if d.DateFrom == nil || !d.DateFrom.Equal(want) {
		t.Errorf("DateFrom = %v, want %v", d.DateFrom, want)
	}
}

func TestRules_DateSeparators(t *testing.T) {
	// все форматы из подсказки бота должны распознаваться сканером
	tests := []struct {
		text string
		want time.Time
	}{
		{"25,4", time.Date(2026, 4, 25, 0, 0, 0, 0, time.Local)},
		{"виїзд 25,4", time.Date(2026, 4, 25, 0, 0, 0, 0, time.Local)},
		{"10/12/26", time.Date(2026, 12, 10, 0, 0, 0, 0, time.Local)},
	}
	r := newRules(t)
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			d, err := r.Extract(context.Background(), tt.text, nil)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if d.DateFrom == nil {
				t.Fatalf("DateFrom = nil, want %v", tt.want)
			}
			if !d.DateFrom.Equal(tt.want) {
				t.Errorf("DateFrom = %v, want %v", d.DateFrom, tt.want)
			}
		})
	}
}

func TestRules_NumberRangesAreNotDates(t *testing.T) {
	r := newRules(t)
	for _, text := range []string{"на 6-8 ночей", "бюджет 1,500 дол"} {
		d, err := r.Extract(context.Background(), text, nil)
		if err != nil {
			t.Fatalf("Extract(%q) error = %v", text, err)
		}
		if d.DateFrom != nil {
			t.Errorf("Extract(%q) DateFrom = %v, want nil", text, d.DateFrom)
		}
	}
}

func TestRules_DateIsNotAdults(t *testing.T) {
	r := newRules(t)
	d, err := r.Extract(context.Background(), "Єгипет на 25.06", nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if d.Adults != nil {
		t.Errorf("Adults = %v, want nil (число даты не люди)", *d.Adults)
	}
	if d.DateFrom == nil {
		t.Error("DateFrom = nil, want parsed")
	}
}

func TestRules_Children(t *testing.T) {
	r := newRules(t)
	d, err := r.Extract(context.Background(), "2 дорослих і 1 дитина", nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if d.Adults == nil || *d.Adults != 2 {
		t.Errorf("Adults = %v, want 2", d.Adults)
	}
	if d.Children == nil || *d.Children != 1 {
		t.Errorf("Children = %v, want 1", d.Children)
	}
}

func TestRules_Budget(t *testing.T) {
	tests := []struct {
		name string
		text string
		from *int
		to   *int
	}{
		{"range", "від 500 до 1500 usd", intp(500), intp(1500)},
		{"upper only", "до 20000 грн", nil, intp(20000)},
		{"approx", "близько 1000 доларів", intp(800), intp(1200)},
	}
	r := newRules(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := r.Extract(context.Background(), tt.text, nil)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if !eqIntPtr(d.BudgetFrom, tt.from) {
				t.Errorf("BudgetFrom = %v, want %v", fmtp(d.BudgetFrom), fmtp(tt.from))
			}
			if !eqIntPtr(d.BudgetTo, tt.to) {
				t.Errorf("BudgetTo = %v, want %v", fmtp(d.BudgetTo), fmtp(tt.to))
			}
		})
	}
}

func TestRules_Currency(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"бюджет 1000 доларів", "usd"},
		{"до 900 євро", "eur"},
		{"20000 грн", "uah"},
		{"$1000", "usd"},
	}
	r := newRules(t)
	for _, tt := range tests {
		d, err := r.Extract(context.Background(), tt.text, nil)
		if err != nil {
			t.Fatalf("Extract(%q) error = %v", tt.text, err)
		}
		if d.Currency == nil || *d.Currency != tt.want {
			t.Errorf("Currency(%q) = %v, want %s", tt.text, d.Currency, tt.want)
		}
	}
}

func TestRules_FromCityDeclension(t *testing.T) {
	r := newRules(t)
	d, err := r.Extract(context.Background(), "тур із Варшави", nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if d.FromCityID == nil || *d.FromCityID != 2801 {
		t.Errorf("FromCityID = %v, want 2801", d.FromCityID)
	}
}

func TestRules_EmptyText(t *testing.T) {
	r := newRules(t)
	d, err := r.Extract(context.Background(), "   ", nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !d.Empty() {
		t.Errorf("Extract(blank) = %+v, want empty delta", d)
	}
}

func intp(v int) *int { return &v }

func eqIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func fmtp(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
