// Package ittour - клиент поискового API ITTour (module/search-list)
// и интерпретатор его кодов ошибок.
package ittour

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/okravets/tour-bot/internal/domain"
)

var (
	ErrUnauthorized  = errors.New("invalid API token")
	ErrRequestFailed = errors.New("search request failed")
	ErrBadResponse   = errors.New("malformed search response")
)

type Client interface {
	SearchList(ctx context.Context, q domain.SearchQuery) (*SearchResponse, error)
}

// Offer - одно предложение выдачи. Поля как в ответе ITTour.
// ITTour непостоянен в типах (число и строка вперемешку), поэтому
// числовые поля объявлены как Loose.
type Offer struct {
	HotelID      Loose            `json:"hotel_id"`
	Hotel        string           `json:"hotel"`
	Name         string           `json:"name"` // иногда вместо hotel
	HotelRating  Loose            `json:"hotel_rating"`
	Region       string           `json:"region"`
	Country      string           `json:"country"`
	MealType     string           `json:"meal_type"`
	MealTypeFull string           `json:"meal_type_full"`
	DateFrom     string           `json:"date_from"` // YYYY-MM-DD
	Duration     Loose            `json:"duration"`
	HNight       Loose            `json:"hnight"` // иногда вместо duration
	FromCity     string           `json:"from_city"`
	AdultAmount  Loose            `json:"adult_amount"`
	ChildAmount  Loose            `json:"child_amount"`
	Prices       map[string]Loose `json:"prices"` // ключи "1"/"2"/"10"
	HotelImages  []HotelImage     `json:"hotel_images"`
}

// Loose - скаляр, который в JSON может прийти и строкой, и числом.
type Loose string

func (l *Loose) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = Loose(s)
		return nil
	}
	if string(b) == "null" {
		*l = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*l = Loose(n.String())
	return nil
}

func (l Loose) String() string { return string(l) }

func (l Loose) Int() (int, bool) {
	f, ok := l.Float()
	if !ok {
		return 0, false
	}
	return int(f), true
}

func (l Loose) Float() (float64, bool) {
	s := strings.TrimSpace(string(l))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

type HotelImage struct {
	Full  string `json:"full"`
	Thumb string `json:"thumb"`
}

type SearchResponse struct {
	Offers       []Offer `json:"offers"`
	Page         int     `json:"page"`
	HasMorePages bool    `json:"has_more_pages"`
}

// UpstreamError - нормализованная ошибка ITTour: (код, сообщение, описание).
type UpstreamError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error"`
	Desc    string `json:"error_desc"`
}

func (e *UpstreamError) Error() string {
	if e.Desc != "" {
		return e.Message + ": " + e.Desc
	}
	return e.Message
}
