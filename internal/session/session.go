// Package session хранит черновик запроса каждого диалога между ходами.
// Запись живёт до успешного поиска или до idle-таймаута.
package session

import (
	"context"
	"sync"

	"github.com/okravets/tour-bot/internal/domain"
)

// Store - хранилище PartialState по идентификатору диалога.
type Store interface {
	// Get возвращает состояние и признак существования записи.
	// Успешный Get продлевает жизнь записи (touch).
	Get(ctx context.Context, id int64) (*domain.PartialState, bool, error)
	// Put создаёт или заменяет запись целиком.
	Put(ctx context.Context, id int64, st *domain.PartialState) error
	// Merge накатывает дельту на запись (создав её при необходимости)
	// по доменной политике слияния и возвращает результат.
	Merge(ctx context.Context, id int64, d *domain.Delta, src domain.Source) (*domain.PartialState, error)
	// Clear безусловно уничтожает запись.
	Clear(ctx context.Context, id int64) error
}

// Locker сериализует ходы одного диалога: второе сообщение того же чата
// ждёт завершения первого, разные чаты идут параллельно. Запись чата
// живёт, пока за неё кто-то держится, иначе карта росла бы вечно.
type Locker struct {
	mu    sync.Mutex
	locks map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[int64]*lockEntry)}
}

func (l *Locker) Lock(id int64) func() {
	l.mu.Lock()
	e, ok := l.locks[id]
	if !ok {
		e = &lockEntry{}
		l.locks[id] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
