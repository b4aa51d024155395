package domain

import "time"

// Лимиты ITTour на параметры поиска.
const (
	MinAdults = 1
	MaxAdults = 4
	MinNights = 1
	MaxNights = 30
)

// ReasonCode - машинный код нарушения, стабильный для тестов и промптов.
type ReasonCode string

const (
	ReasonMissing       ReasonCode = "missing"
	ReasonOutOfRange    ReasonCode = "out_of_range"
	ReasonDateInPast    ReasonCode = "date_in_past"
	ReasonDateOrder     ReasonCode = "date_order"
	ReasonDateRangeWide ReasonCode = "date_range_too_wide"
	ReasonUnknownCode   ReasonCode = "unknown_code"
)

type Violation struct {
	Field   Field
	Code    ReasonCode
	Message string // готовая подсказка пользователю
	Fix     *Delta // детерминированное исправление, если выводимо
}

// ValidationResult - упорядоченный список нарушений. Пустой - состояние
// готово к отправке. Не сохраняется, пересчитывается каждый ход.
type ValidationResult []Violation

func (r ValidationResult) OK() bool { return len(r) == 0 }

// First возвращает первое нарушение - именно его показываем пользователю.
func (r ValidationResult) First() *Violation {
	if len(r) == 0 {
		return nil
	}
	return &r[0]
}

// Resolver отвечает, известен ли код страны/города выбранному лексикону.
type Resolver interface {
	CountryKnown(id int) bool
	FromCityKnown(id int) bool
}

// группы полей: на ход показываем не больше одного нарушения на группу,
// чтобы не заваливать пользователя списком ошибок
var fieldGroup = map[Field]string{
	FieldCountry:   "destination",
	FieldFromCity:  "origin",
	FieldAdults:    "people",
	FieldChildren:  "people",
	FieldChildAges: "people",
	FieldNightFrom: "nights",
	FieldNightTill: "nights",
	FieldDateFrom:  "dates",
	FieldDateTill:  "dates",
}

const maxViolationsPerTurn = 3

// Validate прогоняет состояние по фиксированному списку проверок:
// обязательные поля -> числовые диапазоны -> даты -> принадлежность
// кодов лексикону. Порядок фиксирован, чтобы пользователь каждый ход
// получал стабильный следующий вопрос.
func Validate(s *PartialState, now time.Time, lex Resolver) ValidationResult {
	var out ValidationResult
	seen := map[string]bool{}

	add := func(v Violation) {
		g := fieldGroup[v.Field]
		if g != "" && seen[g] {
			return
		}
		if len(out) >= maxViolationsPerTurn {
			return
		}
		if g != "" {
			seen[g] = true
		}
		out = append(out, v)
	}

	// 1. обязательные поля. Дефолт не считается ответом: страну, город
	// вылета, число взрослых и дату выезда пользователь называет сам.
	userSet := func(f Field) bool {
		p, ok := s.Meta[f]
		return ok && p.Source != SourceDefault
	}

	if s.CountryID == 0 {
		add(Violation{Field: FieldCountry, Code: ReasonMissing,
			Message: "Куди летимо? 🌍 Напишіть країну (наприклад: Єгипет / Туреччина)."})
	}
	if s.FromCityID == 0 {
		add(Violation{Field: FieldFromCity, Code: ReasonMissing,
			Message: "Звідки виліт? ✈️ Напишіть місто вильоту (наприклад: Київ)."})
	}
	if s.Adults == nil || !userSet(FieldAdults) {
		add(Violation{Field: FieldAdults, Code: ReasonMissing,
			Message: "Скільки дорослих? 👤 (наприклад: 2)"})
	}
	if s.DateFrom.IsZero() || !userSet(FieldDateFrom) {
		add(Violation{Field: FieldDateFrom, Code: ReasonMissing,
			Message: "На яку дату виїзду? 🗓️ (10.12 / 25,4 / 25 квітня / 10.12.2026)"})
	}
	if s.Children != nil && *s.Children > 0 && s.ChildAges == "" {
		add(Violation{Field: FieldChildAges, Code: ReasonMissing,
			Message: "Вкажіть вік дітей через двокрапку (наприклад: 7:4)."})
	}

	// 2. числовые диапазоны
	if s.Adults != nil && (*s.Adults < MinAdults || *s.Adults > MaxAdults) {
		fix := DefaultAdults
		add(Violation{Field: FieldAdults, Code: ReasonOutOfRange,
			Message: "Кількість дорослих має бути 1..4 👤 Напишіть, будь ласка, скільки дорослих.",
			Fix:     &Delta{Adults: &fix, Confidence: ConfidenceExact}})
	}
	if s.Children != nil && *s.Children < 0 {
		fix := 0
		add(Violation{Field: FieldChildren, Code: ReasonOutOfRange,
			Message: "Кількість дітей не може бути від'ємною.",
			Fix:     &Delta{Children: &fix, Confidence: ConfidenceExact}})
	}
	if s.NightFrom != 0 || s.NightTill != 0 {
		if s.NightFrom < MinNights || s.NightTill > MaxNights || s.NightFrom > s.NightTill {
			nf, nt := DefaultNightFrom, DefaultNightTill
			add(Violation{Field: FieldNightFrom, Code: ReasonOutOfRange,
				Message: "Некоректна кількість ночей (1..30, від ≤ до).",
				Fix:     &Delta{NightFrom: &nf, NightTill: &nt, Confidence: ConfidenceExact}})
		}
	}

	// 3. даты
	today := Midnight(now)
	if !s.DateFrom.IsZero() && s.DateFrom.Before(today) {
		fix := today.AddDate(0, 0, DefaultDateFromOffsetDays)
		add(Violation{Field: FieldDateFrom, Code: ReasonDateInPast,
			Message: "Дата виїзду вже минула 🗓️ Вкажіть майбутню дату.",
			Fix:     &Delta{DateFrom: &fix, Confidence: ConfidenceExact}})
	}
	if !s.DateFrom.IsZero() && !s.DateTill.IsZero() {
		if !s.DateFrom.Before(s.DateTill) {
			fix := s.DateFrom.AddDate(0, 0, DefaultDateRangeDays)
			add(Violation{Field: FieldDateTill, Code: ReasonDateOrder,
				Message: "Дата 'до' має бути пізніше за дату виїзду.",
				Fix:     &Delta{DateTill: &fix, Confidence: ConfidenceExact}})
		} else if s.DateTill.Sub(s.DateFrom) > time.Duration(MaxDateRangeDays)*24*time.Hour {
			fix := s.DateFrom.AddDate(0, 0, MaxDateRangeDays)
			add(Violation{Field: FieldDateTill, Code: ReasonDateRangeWide,
				Message: "Занадто широке вікно дат, звужую до 12 днів.",
				Fix:     &Delta{DateTill: &fix, Confidence: ConfidenceExact}})
		}
	}

	// 4. принадлежность кодов лексикону
	if lex != nil {
		if s.CountryID != 0 && !lex.CountryKnown(s.CountryID) {
			add(Violation{Field: FieldCountry, Code: ReasonUnknownCode,
				Message: "Не впізнаю таку країну 😔 Перевірте написання та спробуйте ще раз."})
		}
		if s.FromCityID != 0 && !lex.FromCityKnown(s.FromCityID) {
			add(Violation{Field: FieldFromCity, Code: ReasonUnknownCode,
				Message: "Не впізнаю таке місто вильоту 😔 Спробуйте інше."})
		}
	}

	return out
}
