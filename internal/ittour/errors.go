package ittour

import (
	"time"

	"github.com/okravets/tour-bot/internal/domain"
)

// Документированный диапазон кодов ITTour.
const (
	minKnownCode = 100
	maxKnownCode = 445

	CodeUnknown = 110 // подставляется, когда ответ без кода
)

// autofix чинит состояние по известному коду ошибки. now нужен кодам,
// которые пересчитывают даты от сегодняшнего дня.
type autofixFunc func(s *domain.PartialState, now time.Time) *domain.Delta

// Interpretation - результат разбора кода ошибки: объяснение для
// пользователя и, для известного подмножества кодов, детерминированная
// правка состояния.
type Interpretation struct {
	Explanation string
	Autofix     autofixFunc
}

type Interpreter struct {
	exact map[int]Interpretation
}

func NewInterpreter() *Interpreter {
	return &Interpreter{exact: map[int]Interpretation{
		100: {Explanation: "Запит сформовано некоректно. Спробуйте переформулювати."},
		102: {Explanation: "Бракує обов'язкового параметра запиту. Уточніть, будь ласка, країну та дати."},
		110: {Explanation: "Сервіс повернув нерозбірливу відповідь. Спробуйте ще раз за хвилину."},
		205: {
			Explanation: "Дата виїзду вже минула або занадто близько. Пересуваю на найближчу доступну.",
			Autofix:     fixDateFrom,
		},
		210: {
			Explanation: "Кінцева дата заїзду занадто далека. Звужую діапазон дат.",
			Autofix:     fixDateTill,
		},
		215: {Explanation: "Такого напрямку немає в каталозі. Спробуйте іншу країну."},
		220: {Explanation: "Некоректна кількість туристів. Дорослих має бути від 1 до 4."},
		301: {Explanation: "Доступ до пошуку обмежено. Спробуйте пізніше."},
		305: {Explanation: "Вичерпано ліміт запитів до сервісу. Зачекайте хвилину та повторіть."},
	}}
}

// Interpret возвращает трактовку кода ошибки апстрима. Коды вне
// диапазона 100..445 неизвестны - ErrUnrecognizedUpstream, без autofix.
func (i *Interpreter) Interpret(code int, rawMessage string) (Interpretation, error) {
	if it, ok := i.exact[code]; ok {
		return it, nil
	}
	if code < minKnownCode || code > maxKnownCode {
		return Interpretation{Explanation: rawMessage}, domain.ErrUnrecognizedUpstream
	}

	switch {
	case code < 200:
		return Interpretation{Explanation: "Сервіс не зміг обробити запит. Спробуйте переформулювати."}, nil
	case code < 300:
		return Interpretation{Explanation: "Один із параметрів пошуку некоректний. Перевірте дати, кількість туристів і бюджет."}, nil
	case code < 400:
		return Interpretation{Explanation: "Проблема з доступом до пошукового сервісу. Спробуйте пізніше."}, nil
	default:
		return Interpretation{Explanation: "Пошуковий сервіс тимчасово недоступний. Спробуйте за кілька хвилин."}, nil
	}
}

// 210: конечная дата слишком далеко - date_till = date_from + 10 дней.
func fixDateTill(s *domain.PartialState, _ time.Time) *domain.Delta {
	if s.DateFrom.IsZero() {
		return nil
	}
	till := s.DateFrom.AddDate(0, 0, 10)
	return &domain.Delta{DateTill: &till, Confidence: domain.ConfidenceExact}
}

// 205: дата выезда в прошлом - date_from = сегодня + 2 дня,
// date_till сдвигается так, чтобы сохранить длину окна.
func fixDateFrom(s *domain.PartialState, now time.Time) *domain.Delta {
	from := domain.Midnight(now).AddDate(0, 0, domain.DefaultDateFromOffsetDays)
	d := &domain.Delta{DateFrom: &from, Confidence: domain.ConfidenceExact}
	if !s.DateFrom.IsZero() && !s.DateTill.IsZero() {
		window := int(s.DateTill.Sub(s.DateFrom).Hours() / 24)
		if window < 1 {
			window = 1
		}
		if window > domain.MaxDateRangeDays {
			window = domain.MaxDateRangeDays
		}
		till := from.AddDate(0, 0, window)
		d.DateTill = &till
	}
	return d
}
