package domain

import (
	"crypto/md5"
	"fmt"
	"time"
)

// WireDateFormat - формат дат ITTour (dd.mm.yy).
const WireDateFormat = "02.01.06"

// SearchQuery - полностью заполненный набор параметров для ITTour.
// Неизменяем после сборки: BuildQuery возвращает значение, а не указатель
// на разделяемое состояние.
type SearchQuery struct {
	TourType    int
	Kind        int
	CountryID   int
	FromCityID  int
	Adults      int
	Children    int
	ChildAges   string // "7:4:3", обязателен при Children > 0
	NightFrom   int
	NightTill   int
	HotelRating int
	DateFrom    time.Time
	DateTill    time.Time
	CurrencyID  int // 1=USD, 2=UAH, 10=EUR
	BudgetFrom  *int
	BudgetTo    *int

	ItemsPerPage int
	Page         int
}

// BuildQuery собирает SearchQuery из состояния, прошедшего Validate.
// Окно дат шире 12 дней молча зауживается, как делает и сам ITTour.
func BuildQuery(s *PartialState, currencyID int) (SearchQuery, error) {
	if s.CountryID == 0 || s.FromCityID == 0 || s.Adults == nil || s.DateFrom.IsZero() || s.DateTill.IsZero() {
		return SearchQuery{}, ErrStateIncomplete
	}

	children := 0
	if s.Children != nil {
		children = *s.Children
	}
	if children > 0 && s.ChildAges == "" {
		return SearchQuery{}, fmt.Errorf("%w: child_ages required when children > 0", ErrStateIncomplete)
	}

	dateTill := s.DateTill
	if dateTill.Sub(s.DateFrom) > time.Duration(MaxDateRangeDays)*24*time.Hour {
		dateTill = s.DateFrom.AddDate(0, 0, MaxDateRangeDays)
	}

	q := SearchQuery{
		TourType:     s.TourType,
		Kind:         s.Kind,
		CountryID:    s.CountryID,
		FromCityID:   s.FromCityID,
		Adults:       *s.Adults,
		Children:     children,
		ChildAges:    s.ChildAges,
		NightFrom:    s.NightFrom,
		NightTill:    s.NightTill,
		HotelRating:  s.HotelRating,
		DateFrom:     s.DateFrom,
		DateTill:     dateTill,
		CurrencyID:   currencyID,
		BudgetFrom:   cloneInt(s.BudgetFrom),
		BudgetTo:     cloneInt(s.BudgetTo),
		ItemsPerPage: DefaultItemsPerPage,
		Page:         s.Page,
	}
	return q, nil
}

// QueryHash - хеш ключевых параметров. Меняется - значит это новый поиск
// и контекст пагинации надо сбросить.
func (s *PartialState) ComputeQueryHash() string {
	key := fmt.Sprintf("%d|%d|%v|%v|%s|%s|%v|%v|%s|%d|%d|%d",
		s.CountryID, s.FromCityID,
		intOrEmpty(s.Adults), intOrEmpty(s.Children),
		s.DateFrom.Format(WireDateFormat), s.DateTill.Format(WireDateFormat),
		intOrEmpty(s.BudgetFrom), intOrEmpty(s.BudgetTo),
		s.Currency,
		s.NightFrom, s.NightTill, s.HotelRating,
	)
	return fmt.Sprintf("%x", md5.Sum([]byte(key)))
}

func intOrEmpty(p *int) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%d", *p)
}
