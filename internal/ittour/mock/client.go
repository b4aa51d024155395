// Package mock - фейковый клиент ITTour для тестов оркестратора.
package mock

import (
	"context"
	"sync"

	"github.com/okravets/tour-bot/internal/domain"
	"github.com/okravets/tour-bot/internal/ittour"
)

// Step - один запланированный ответ SearchList.
type Step struct {
	Response *ittour.SearchResponse
	Err      error
}

// Client отдаёт заранее заданные ответы по очереди и записывает запросы.
// Последний шаг повторяется, когда очередь исчерпана.
type Client struct {
	mu    sync.Mutex
	steps []Step

	CallCount int
	Queries   []domain.SearchQuery
}

func New(steps ...Step) *Client {
	return &Client{steps: steps}
}

func (c *Client) SearchList(ctx context.Context, q domain.SearchQuery) (*ittour.SearchResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.CallCount++
	c.Queries = append(c.Queries, q)

	if len(c.steps) == 0 {
		return &ittour.SearchResponse{}, nil
	}
	idx := c.CallCount - 1
	if idx >= len(c.steps) {
		idx = len(c.steps) - 1
	}
	step := c.steps[idx]
	return step.Response, step.Err
}

// LastQuery возвращает параметры последнего запроса.
func (c *Client) LastQuery() (domain.SearchQuery, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Queries) == 0 {
		return domain.SearchQuery{}, false
	}
	return c.Queries[len(c.Queries)-1], true
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCount = 0
	c.Queries = nil
}
