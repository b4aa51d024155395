package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/okravets/tour-bot/internal/domain"
)

// украинские месяцы, родительный и именительный падежи
var uaMonths = map[string]time.Month{
	"січня": 1, "лютого": 2, "березня": 3, "квітня": 4, "травня": 5, "червня": 6,
	"липня": 7, "серпня": 8, "вересня": 9, "жовтня": 10, "листопада": 11, "грудня": 12,
	"січень": 1, "лютий": 2, "березень": 3, "квітень": 4, "травень": 5, "червень": 6,
	"липень": 7, "серпень": 8, "вересень": 9, "жовтень": 10, "листопад": 11, "грудень": 12,
}

var (
	reMonthName = regexp.MustCompile(`^(\d{1,2})\s+([\p{L}]+)(?:\s+(\d{2,4}))?$`)
	reDayMonth  = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})$`)
	reFull      = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{2,4})$`)
	reWS        = regexp.MustCompile(`\s+`)
)

// NormalizeDate разбирает дату пользователя: "10.12", "25,4", "25 квітня",
// "10.12.2026", "10/12/26". Без года год выводится: если дата уже прошла -
// берём следующий.
func NormalizeDate(raw string, now time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	s = reWS.ReplaceAllString(s, " ")

	if m := reMonthName.FindStringSubmatch(s); m != nil {
		month, ok := uaMonths[m[2]]
		if !ok {
			return time.Time{}, fmt.Errorf("unknown month name: %s", m[2])
		}
		day, _ := strconv.Atoi(m[1])
		if m[3] != "" {
			year, _ := strconv.Atoi(m[3])
			if year < 100 {
				year += 2000
			}
			return makeDate(year, month, day)
		}
		return inferYear(day, month, now)
	}

	s = strings.NewReplacer(",", ".", "/", ".", "-", ".").Replace(s)
	s = strings.ReplaceAll(s, " ", "")

	if m := reDayMonth.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		return inferYear(day, time.Month(month), now)
	}

	if m := reFull.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
		return makeDate(year, time.Month(month), day)
	}

	return time.Time{}, fmt.Errorf("unsupported date format: %q", raw)
}

func inferYear(day int, month time.Month, now time.Time) (time.Time, error) {
	d, err := makeDate(now.Year(), month, day)
	if err != nil {
		return time.Time{}, err
	}
	if d.Before(domain.Midnight(now)) {
		return makeDate(now.Year()+1, month, day)
	}
	return d, nil
}

func makeDate(year int, month time.Month, day int) (time.Time, error) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("invalid date %02d.%02d.%d", day, month, year)
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.Local)
	// time.Date нормализует 31.02 в 02.03 - отлавливаем
	if d.Day() != day || d.Month() != month {
		return time.Time{}, fmt.Errorf("invalid date %02d.%02d.%d", day, month, year)
	}
	return d, nil
}
