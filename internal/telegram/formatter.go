package telegram

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/okravets/tour-bot/internal/currency"
	"github.com/okravets/tour-bot/internal/domain"
	"github.com/okravets/tour-bot/internal/ittour"
)

// OfferCard - готовое к отправке сообщение: подпись плюс опциональное фото.
type OfferCard struct {
	Caption  string
	ImageURL string
}

const maxCards = 10

// FormatOffers собирает карточки выдачи:
// группирует варианты по отелю, выбрасывает дубликаты, на каждую дату
// оставляет самый дешёвый вариант, главным показывает минимальную цену,
// сортирует отели по минимальной цене и берёт топ-10.
func FormatOffers(offers []ittour.Offer, currencyID int) []OfferCard {
	if len(offers) == 0 {
		return nil
	}

	grouped := map[string][]ittour.Offer{}
	var order []string
	for _, o := range offers {
		k := hotelGroupKey(o)
		if _, ok := grouped[k]; !ok {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], o)
	}

	type card struct {
		OfferCard
		minPrice float64
	}
	var cards []card

	for _, k := range order {
		group := grouped[k]

		// дедуп полных дубликатов варианта
		seen := map[string]bool{}
		var uniq []ittour.Offer
		for _, o := range group {
			vk := variantKey(o)
			if seen[vk] {
				continue
			}
			seen[vk] = true
			uniq = append(uniq, o)
		}

		// на каждую дату - самый дешёвый вариант
		bestByDate := map[string]ittour.Offer{}
		var dates []string
		for _, o := range uniq {
			d := o.DateFrom
			cur, ok := bestByDate[d]
			if !ok {
				bestByDate[d] = o
				dates = append(dates, d)
				continue
			}
			if priceNum(o, currencyID) < priceNum(cur, currencyID) {
				bestByDate[d] = o
			}
		}
		sort.Slice(dates, func(i, j int) bool { return dateLess(dates[i], dates[j]) })

		variants := make([]ittour.Offer, 0, len(dates))
		for _, d := range dates {
			variants = append(variants, bestByDate[d])
		}
		if len(variants) == 0 {
			continue
		}

		main := variants[0]
		for _, o := range variants[1:] {
			if priceNum(o, currencyID) < priceNum(main, currencyID) {
				main = o
			}
		}

		caption, image := buildOfferCaption(main, currencyID)
		if len(variants) > 1 {
			var sb strings.Builder
			sb.WriteString(caption)
			sb.WriteString("\n")
			for _, o := range variants {
				if variantKey(o) == variantKey(main) {
					continue
				}
				sb.WriteString(fmt.Sprintf("\n• 🗓️ %s • 🛌 %s ноч.\n💰 %s",
					fmtAPIDate(o.DateFrom), nightsOf(o), fmtPrice(o, currencyID)))
			}
			caption = sb.String()
		}

		cards = append(cards, card{
			OfferCard: OfferCard{Caption: caption, ImageURL: image},
			minPrice:  priceNum(main, currencyID),
		})
	}

	sort.SliceStable(cards, func(i, j int) bool { return cards[i].minPrice < cards[j].minPrice })
	if len(cards) > maxCards {
		cards = cards[:maxCards]
	}

	out := make([]OfferCard, len(cards))
	for i, c := range cards {
		out[i] = c.OfferCard
	}
	return out
}

func buildOfferCaption(o ittour.Offer, currencyID int) (string, string) {
	hotel := o.Hotel
	if hotel == "" {
		hotel = o.Name
	}
	if hotel == "" {
		hotel = "Готель"
	}
	region := orDash(o.Region)
	country := orDash(o.Country)
	meal := o.MealTypeFull
	if meal == "" {
		meal = o.MealType
	}

	image := ""
	if len(o.HotelImages) > 0 {
		image = o.HotelImages[0].Full
		if image == "" {
			image = o.HotelImages[0].Thumb
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>%s</b> %s\n", html.EscapeString(short(hotel, 60)), starize(o.HotelRating.String())))
	sb.WriteString(fmt.Sprintf("%s, %s\n", html.EscapeString(short(region, 40)), html.EscapeString(country)))
	sb.WriteString(fmt.Sprintf("🍽 %s\n", html.EscapeString(orDash(meal))))
	if people := fmtPeople(o); people != "" {
		sb.WriteString("👥 " + people + "\n")
	}
	sb.WriteString(fmt.Sprintf("🛫 %s • 🗓️ %s • 🛌 %s ноч.\n",
		html.EscapeString(orDash(o.FromCity)), fmtAPIDate(o.DateFrom), nightsOf(o)))
	sb.WriteString("💰 " + fmtPrice(o, currencyID))

	return sb.String(), image
}

// FormatSummary - шапка с параметрами поиска перед карточками.
func FormatSummary(st *domain.PartialState) string {
	people := "—"
	if st.Adults != nil {
		people = fmt.Sprintf("%d доросл.", *st.Adults)
		if st.Children != nil && *st.Children > 0 {
			people += fmt.Sprintf(", %d діт.", *st.Children)
		}
	}

	budget := "—"
	if st.BudgetFrom != nil || st.BudgetTo != nil {
		from, to := "0", "—"
		if st.BudgetFrom != nil {
			from = fmt.Sprintf("%d", *st.BudgetFrom)
		}
		if st.BudgetTo != nil {
			to = fmt.Sprintf("%d", *st.BudgetTo)
		}
		budget = from + " – " + to
		if id, ok := currency.HintID(st.Currency); ok {
			budget += " " + currency.Sign(id)
		}
	}

	return fmt.Sprintf(
		"🔎 <b>Параметри пошуку</b>\n"+
			"🛫 Виліт: %s\n"+
			"🌍 Країна: %s\n"+
			"👥 %s\n"+
			"📅 %s – %s\n"+
			"🛌 %d–%d ноч.\n"+
			"⭐ %d\n"+
			"💰 %s",
		html.EscapeString(orDash(st.FromCityName)),
		html.EscapeString(orDash(st.CountryName)),
		people,
		fmtStateDate(st.DateFrom), fmtStateDate(st.DateTill),
		st.NightFrom, st.NightTill,
		st.HotelRating,
		budget,
	)
}

func hotelGroupKey(o ittour.Offer) string {
	if o.HotelID != "" {
		return "id|" + o.HotelID.String()
	}
	hotel := o.Hotel
	if hotel == "" {
		hotel = o.Name
	}
	return "fb|" + strings.ToLower(strings.TrimSpace(hotel)) + "|" +
		strings.ToLower(strings.TrimSpace(o.Region)) + "|" +
		strings.ToLower(strings.TrimSpace(o.Country)) + "|" + o.HotelRating.String()
}

// ключ варианта внутри отеля: дата + ночи + цены
func variantKey(o ittour.Offer) string {
	return o.DateFrom + "|" + nightsOf(o) + "|" +
		o.Prices["1"].String() + "|" + o.Prices["2"].String() + "|" + o.Prices["10"].String()
}

func nightsOf(o ittour.Offer) string {
	if o.Duration != "" {
		return o.Duration.String()
	}
	if o.HNight != "" {
		return o.HNight.String()
	}
	return "—"
}

const veryExpensive = 1e18

// priceNum - цена в запрошенной валюте, иначе первая доступная.
func priceNum(o ittour.Offer, currencyID int) float64 {
	if v, ok := o.Prices[fmt.Sprintf("%d", currencyID)].Float(); ok {
		return v
	}
	for _, p := range o.Prices {
		if v, ok := p.Float(); ok {
			return v
		}
	}
	return veryExpensive
}

func fmtPrice(o ittour.Offer, currencyID int) string {
	key := fmt.Sprintf("%d", currencyID)
	if v, ok := o.Prices[key].Float(); ok {
		return groupDigits(int(v)) + " " + currency.Sign(currencyID)
	}
	for k, p := range o.Prices {
		v, ok := p.Float()
		if !ok {
			continue
		}
		var id int
		if _, err := fmt.Sscanf(k, "%d", &id); err != nil {
			continue
		}
		return groupDigits(int(v)) + " " + currency.Sign(id)
	}
	return "—"
}

// 12345 -> "12 345"
func groupDigits(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var sb strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		sb.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(s[i : i+3])
	}
	return sb.String()
}

// первая цифра рейтинга - количество звёзд, 1..5
func starize(rating string) string {
	rating = strings.TrimSpace(rating)
	if rating == "" {
		return "—"
	}
	n := int(rating[0] - '0')
	if n < 1 || n > 9 {
		return "—"
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("★", n)
}

// YYYY-MM-DD -> dd.mm.yyyy, нераспознанное отдаём как есть
func fmtAPIDate(s string) string {
	if s == "" {
		return "—"
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return s
	}
	return t.Format("02.01.2006")
}

func fmtStateDate(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	return t.Format("02.01.2006")
}

func dateLess(a, b string) bool {
	ta, errA := time.Parse("2006-01-02", a)
	tb, errB := time.Parse("2006-01-02", b)
	switch {
	case errA == nil && errB == nil:
		return ta.Before(tb)
	case errA == nil:
		return true // валидные даты раньше мусора
	case errB == nil:
		return false
	default:
		return a < b
	}
}

func fmtPeople(o ittour.Offer) string {
	var parts []string
	if a, ok := o.AdultAmount.Int(); ok && a > 0 {
		parts = append(parts, fmt.Sprintf("%d доросл.", a))
	}
	if c, ok := o.ChildAmount.Int(); ok && c > 0 {
		parts = append(parts, fmt.Sprintf("%d дит.", c))
	}
	return strings.Join(parts, " • ")
}

func short(s string, limit int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}

func SplitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var messages []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			messages = append(messages, text)
			break
		}

		splitPoint := findSafeSplitPoint(text, maxLen)
		if splitPoint <= 0 || splitPoint > len(text) {
			splitPoint = maxLen
		}

		messages = append(messages, text[:splitPoint])
		text = text[splitPoint:]
	}

	return messages
}

func findSafeSplitPoint(text string, maxLen int) int {
	// ищем пробел или перевод строки, не ломая HTML-теги
	for i := maxLen - 1; i > maxLen/2; i-- {
		if i >= len(text) {
			continue
		}
		if isInsideHTMLTag(text, i) {
			continue
		}

		if text[i] == '\n' || text[i] == ' ' {
			return i + 1
		}
	}

	// внутри тега - ищем конец
	if maxLen < len(text) && isInsideHTMLTag(text, maxLen) {
		for i := maxLen; i < len(text); i++ {
			if text[i] == '>' {
				for j := i + 1; j < len(text) && j < i+50; j++ {
					if text[j] == '\n' || text[j] == ' ' {
						return j + 1
					}
				}
				return i + 1
			}
		}
	}

	for i := maxLen - 1; i > 0; i-- {
		if text[i] == ' ' || text[i] == '\n' {
			return i + 1
		}
	}

	return maxLen
}

func isInsideHTMLTag(text string, pos int) bool {
	if pos >= len(text) || pos < 0 {
		return false
	}
	for i := pos; i >= 0; i-- {
		if text[i] == '>' {
			return false
		}
		if text[i] == '<' {
			return true
		}
	}
	return false
}
