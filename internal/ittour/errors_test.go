package ittour

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/okravets/tour-bot/internal/domain"
)

var interpNow = time.Date(2025, 10, 20, 15, 0, 0, 0, time.UTC)

func TestInterpret_ExactCodes(t *testing.T) {
	i := NewInterpreter()

	tests := []struct {
		code       int
		hasAutofix bool
	}{
		{100, false},
		{102, false},
		{110, false},
		{205, true},
		{210, true},
		{215, false},
		{220, false},
		{301, false},
		{305, false},
	}
	for _, tt := range tests {
		it, err := i.Interpret(tt.code, "raw")
		if err != nil {
			t.Errorf("Interpret(%d) error = %v", tt.code, err)
			continue
		}
		if it.Explanation == "" {
			t.Errorf("Interpret(%d) empty explanation", tt.code)
		}
		if (it.Autofix != nil) != tt.hasAutofix {
			t.Errorf("Interpret(%d) autofix = %v, want %v", tt.code, it.Autofix != nil, tt.hasAutofix)
		}
	}
}

func TestInterpret_RangeBuckets(t *testing.T) {
	i := NewInterpreter()

	tests := []struct {
		code int
		want string
	}{
		{150, "переформулювати"},
		{250, "некоректний"},
		{350, "пізніше"},
		{440, "недоступний"},
	}
	for _, tt := range tests {
		it, err := i.Interpret(tt.code, "raw")
		if err != nil {
			t.Errorf("Interpret(%d) error = %v", tt.code, err)
			continue
		}
		if it.Autofix != nil {
			t.Errorf("Interpret(%d) unexpected autofix", tt.code)
		}
		if !containsFold(it.Explanation, tt.want) {
			t.Errorf("Interpret(%d) = %q, want substring %q", tt.code, it.Explanation, tt.want)
		}
	}
}

func TestInterpret_UnknownCode(t *testing.T) {
	i := NewInterpreter()

	for _, code := range []int{-1, 0, 99, 446, 500, 9000} {
		it, err := i.Interpret(code, "щось пішло не так")
		if !errors.Is(err, domain.ErrUnrecognizedUpstream) {
			t.Errorf("Interpret(%d) error = %v, want ErrUnrecognizedUpstream", code, err)
		}
		// сырое сообщение апстрима отдаётся как есть
		if it.Explanation != "щось пішло не так" {
			t.Errorf("Interpret(%d) = %q, want raw message", code, it.Explanation)
		}
		if it.Autofix != nil {
			t.Errorf("Interpret(%d) unexpected autofix", code)
		}
	}
}

func TestFixDateTill(t *testing.T) {
	st := domain.NewPartialState()
	st.DateFrom = time.Date(2025, 11, 2, 0, 0, 0, 0, time.Local)
	st.DateTill = time.Date(2025, 12, 20, 0, 0, 0, 0, time.Local)

	d := fixDateTill(st, interpNow)
	if d == nil || d.DateTill == nil {
		t.Fatal("fixDateTill returned nil delta")
	}
	want := time.Date(2025, 11, 12, 0, 0, 0, 0, time.Local)
	if !d.DateTill.Equal(want) {
		t.Errorf("DateTill = %v, want %v", d.DateTill, want)
	}
	if d.Confidence != domain.ConfidenceExact {
		t.Errorf("Confidence = %v, want exact", d.Confidence)
	}
}

func TestFixDateTill_NoDateFrom(t *testing.T) {
	if d := fixDateTill(domain.NewPartialState(), interpNow); d != nil {
		t.Errorf("fixDateTill без date_from = %+v, want nil", d)
	}
}

func TestFixDateFrom_PreservesWindow(t *testing.T) {
	st := domain.NewPartialState()
	st.DateFrom = time.Date(2025, 9, 1, 0, 0, 0, 0, time.Local)
	st.DateTill = time.Date(2025, 9, 8, 0, 0, 0, 0, time.Local)

	d := fixDateFrom(st, interpNow)
	if d == nil || d.DateFrom == nil || d.DateTill == nil {
		t.Fatal("fixDateFrom returned incomplete delta")
	}
	wantFrom := domain.Midnight(interpNow).AddDate(0, 0, domain.DefaultDateFromOffsetDays)
	if !d.DateFrom.Equal(wantFrom) {
		t.Errorf("DateFrom = %v, want %v", d.DateFrom, wantFrom)
	}
	if got := int(d.DateTill.Sub(*d.DateFrom).Hours() / 24); got != 7 {
		t.Errorf("window = %d days, want 7", got)
	}
}

func TestFixDateFrom_ClampsWindow(t *testing.T) {
	st := domain.NewPartialState()
	st.DateFrom = time.Date(2025, 9, 1, 0, 0, 0, 0, time.Local)
	st.DateTill = time.Date(2025, 10, 15, 0, 0, 0, 0, time.Local)

	d := fixDateFrom(st, interpNow)
	if got := int(d.DateTill.Sub(*d.DateFrom).Hours() / 24); got != domain.MaxDateRangeDays {
		t.Errorf("window = %d days, want %d", got, domain.MaxDateRangeDays)
	}
}

func TestFixDateFrom_NoWindow(t *testing.T) {
	d := fixDateFrom(domain.NewPartialState(), interpNow)
	if d == nil || d.DateFrom == nil {
		t.Fatal("fixDateFrom returned nil delta")
	}
	if d.DateTill != nil {
		t.Errorf("DateTill = %v, want nil без исходного окна", d.DateTill)
	}
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
