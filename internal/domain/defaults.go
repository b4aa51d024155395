package domain

import "time"

// Дефолты поиска ITTour. Значения из продакшен-конфига оригинального бота.
const (
	DefaultTourType    = 1
	DefaultKind        = 1
	DefaultHotelRating = 78
	DefaultAdults      = 2
	DefaultChildren    = 0
	DefaultNightFrom   = 6
	DefaultNightTill   = 8
	DefaultCurrency    = "uah"
	DefaultPriceFrom   = 100
	DefaultPriceTill   = 500000

	DefaultItemsPerPage = 10

	// date_from = сегодня + N, date_till = date_from + M
	DefaultDateFromOffsetDays = 2
	DefaultDateRangeDays      = 12

	// максимальная ширина окна дат, принимаемая ITTour
	MaxDateRangeDays = 12
)

// ApplyDefaults заполняет отсутствующие обязательные слоты дефолтами.
// Слоты, уже заданные пользователем или прошлым вызовом, не трогает,
// поэтому функция идемпотентна: ApplyDefaults(ApplyDefaults(s)) == ApplyDefaults(s).
func ApplyDefaults(s *PartialState, now time.Time) *PartialState {
	out := s.Clone()

	if !out.Has(FieldTourType) {
		out.TourType = DefaultTourType
		out.mark(FieldTourType, SourceDefault, ConfidenceExact)
	}
	if !out.Has(FieldKind) {
		out.Kind = DefaultKind
		out.mark(FieldKind, SourceDefault, ConfidenceExact)
	}
	if !out.Has(FieldHotelRating) {
		out.HotelRating = DefaultHotelRating
		out.mark(FieldHotelRating, SourceDefault, ConfidenceExact)
	}
	if !out.Has(FieldAdults) {
		n := DefaultAdults
		out.Adults = &n
		out.mark(FieldAdults, SourceDefault, ConfidenceExact)
	}
	if !out.Has(FieldChildren) {
		n := DefaultChildren
		out.Children = &n
		out.mark(FieldChildren, SourceDefault, ConfidenceExact)
	}
	if !out.Has(FieldNightFrom) {
		out.NightFrom = DefaultNightFrom
		out.mark(FieldNightFrom, SourceDefault, ConfidenceExact)
	}
	if !out.Has(FieldNightTill) {
		out.NightTill = DefaultNightTill
		out.mark(FieldNightTill, SourceDefault, ConfidenceExact)
	}
	if !out.Has(FieldDateFrom) {
		out.DateFrom = Midnight(now).AddDate(0, 0, DefaultDateFromOffsetDays)
		out.mark(FieldDateFrom, SourceDefault, ConfidenceExact)
	}
	if !out.Has(FieldDateTill) {
		out.DateTill = out.DateFrom.AddDate(0, 0, DefaultDateRangeDays)
		out.mark(FieldDateTill, SourceDefault, ConfidenceExact)
	}
	if !out.Has(FieldCurrency) {
		out.Currency = DefaultCurrency
		out.mark(FieldCurrency, SourceDefault, ConfidenceExact)
	}
	if !out.Has(FieldBudgetFrom) {
		n := DefaultPriceFrom
		out.BudgetFrom = &n
		out.mark(FieldBudgetFrom, SourceDefault, ConfidenceExact)
	}
	if !out.Has(FieldBudgetTo) {
		n := DefaultPriceTill
		out.BudgetTo = &n
		out.mark(FieldBudgetTo, SourceDefault, ConfidenceExact)
	}

	return out
}

// Midnight обрезает время до даты в локации t.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
