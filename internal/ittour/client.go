package ittour

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/okravets/tour-bot/internal/domain"
)

const searchListPath = "/module/search-list"

type Config struct {
	Token          string
	BaseURL        string
	AcceptLanguage string
	Timeout        time.Duration
}

type HTTPClient struct {
	token    string
	baseURL  string
	language string
	client   *http.Client
	logger   *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *HTTPClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.ittour.com.ua"
	}
	if cfg.AcceptLanguage == "" {
		cfg.AcceptLanguage = "ua"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 25 * time.Second
	}

	return &HTTPClient{
		token:    cfg.Token,
		baseURL:  cfg.BaseURL,
		language: cfg.AcceptLanguage,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}
}

func (c *HTTPClient) SearchList(ctx context.Context, q domain.SearchQuery) (*SearchResponse, error) {
	reqURL := c.baseURL + searchListPath + "?" + encodeQuery(q)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Accept-Language", c.language)

	c.logger.Info("ittour request", zap.String("url", reqURL))

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}

	result, upErr, err := decodeSearchList(body, resp.StatusCode)
	if err != nil {
		return nil, err
	}
	if upErr != nil {
		c.logger.Error("ittour api error",
			zap.Int("error_code", upErr.Code),
			zap.String("error", upErr.Message),
			zap.String("error_desc", upErr.Desc))
		return nil, upErr
	}
	return result, nil
}

func encodeQuery(q domain.SearchQuery) string {
	v := url.Values{}
	v.Set("type", strconv.Itoa(q.TourType))
	v.Set("kind", strconv.Itoa(q.Kind))
	v.Set("country", strconv.Itoa(q.CountryID))
	v.Set("hotel_rating", strconv.Itoa(q.HotelRating))
	v.Set("adult_amount", strconv.Itoa(q.Adults))
	v.Set("child_amount", strconv.Itoa(q.Children))
	v.Set("night_from", strconv.Itoa(q.NightFrom))
	v.Set("night_till", strconv.Itoa(q.NightTill))
	v.Set("date_from", q.DateFrom.Format(domain.WireDateFormat))
	v.Set("date_till", q.DateTill.Format(domain.WireDateFormat))
	v.Set("currency", strconv.Itoa(q.CurrencyID))
	v.Set("items_per_page", strconv.Itoa(q.ItemsPerPage))
	v.Set("hotel_info", "1")

	if q.FromCityID != 0 {
		v.Set("from_city", strconv.Itoa(q.FromCityID))
	}
	if q.Children > 0 && q.ChildAges != "" {
		v.Set("child_age", q.ChildAges)
	}
	if q.BudgetFrom != nil {
		v.Set("price_from", strconv.Itoa(*q.BudgetFrom))
	}
	if q.BudgetTo != nil {
		v.Set("price_till", strconv.Itoa(*q.BudgetTo))
	}
	if q.Page > 1 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	return v.Encode()
}

// decodeSearchList приводит ответ ITTour к единому виду. API может вернуть:
//   - dict (норма),
//   - list из одного dict (так приходят ошибки),
//   - строку (401/прокси/edge cases).
func decodeSearchList(body []byte, status int) (*SearchResponse, *UpstreamError, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &UpstreamError{
			Code:    CodeUnknown,
			Message: "Invalid JSON",
			Desc:    fmt.Sprintf("HTTP %d, cannot decode JSON", status),
		}, nil
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		if list, isList := raw.([]any); isList && len(list) == 1 {
			if m, isMap := list[0].(map[string]any); isMap {
				obj = m
			}
		}
		if obj == nil {
			desc := "list response"
			if s, isStr := raw.(string); isStr {
				desc = truncate(s, 500)
			}
			return nil, &UpstreamError{Code: CodeUnknown, Message: "Invalid response format", Desc: desc}, nil
		}
	}

	if upErr := extractError(obj, status); upErr != nil {
		return nil, upErr, nil
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return &result, nil, nil
}

// extractError достаёт (error, error_desc, error_code) из произвольных
// полей ответа. Код без явного значения при не-200 статусе считается 110.
func extractError(obj map[string]any, status int) *UpstreamError {
	_, hasErr := obj["error"]
	_, hasCode := obj["error_code"]
	_, hasShortCode := obj["code"]
	if !hasErr && !hasCode && !hasShortCode {
		if status != http.StatusOK {
			return &UpstreamError{Code: CodeUnknown, Message: "API error", Desc: fmt.Sprintf("HTTP %d", status)}
		}
		return nil
	}

	code := intField(obj, "error_code")
	if code == 0 {
		code = intField(obj, "code")
	}

	msg := "API error"
	desc, _ := obj["error_desc"].(string)

	switch e := obj["error"].(type) {
	case string:
		msg = e
	case map[string]any:
		if m, ok := e["message"].(string); ok {
			msg = m
		} else if t, ok := e["title"].(string); ok {
			msg = t
		}
		if code == 0 {
			code = intField(e, "error_code")
		}
		if code == 0 {
			code = intField(e, "code")
		}
		if desc == "" {
			desc, _ = e["message"].(string)
		}
	}

	if code == 0 {
		code = CodeUnknown
	}
	return &UpstreamError{Code: code, Message: msg, Desc: desc}
}

func intField(obj map[string]any, key string) int {
	switch v := obj[key].(type) {
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
