package memory

import (
	"context"
	"testing"
	"time"

	"github.com/okravets/tour-bot/internal/domain"
)

// fakeClock - управляемое время для проверки TTL без сна.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 10, 20, 12, 0, 0, 0, time.UTC)}
	s := New(Config{TTL: ttl, SweepInterval: time.Hour, Now: clock.Now})
	t.Cleanup(s.Stop)
	return s, clock
}

func sampleState(adults int) *domain.PartialState {
	st := domain.NewPartialState()
	st.CountryID = 318
	st.Adults = &adults
	return st
}

func TestPutGet(t *testing.T) {
	s, _ := newTestStore(t, 30*time.Minute)
	ctx := context.Background()

	if err := s.Put(ctx, 42, sampleState(2)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, ok, err := s.Get(ctx, 42)
	if err != nil || !ok {
		t.Fatalf("Get() = %v/%v, want state/true", ok, err)
	}
	if got.CountryID != 318 || got.Adults == nil || *got.Adults != 2 {
		t.Errorf("Get() state = %+v", got)
	}
}

func TestGet_Miss(t *testing.T) {
	s, _ := newTestStore(t, 30*time.Minute)
	if _, ok, err := s.Get(context.Background(), 1); ok || err != nil {
		t.Errorf("Get(missing) = %v/%v, want false/nil", ok, err)
	}
}

func TestGet_ReturnsClone(t *testing.T) {
	s, _ := newTestStore(t, 30*time.Minute)
	ctx := context.Background()

	_ = s.Put(ctx, 42, sampleState(2))
	first, _, _ := s.Get(ctx, 42)
	first.CountryID = 999
	*first.Adults = 9

	second, _, _ := s.Get(ctx, 42)
	if second.CountryID != 318 || *second.Adults != 2 {
		t.Error("мутация возвращённого состояния протекла в хранилище")
	}
}

func TestGet_Expiry(t *testing.T) {
	s, clock := newTestStore(t, 30*time.Minute)
	ctx := context.Background()

	_ = s.Put(ctx, 42, sampleState(2))
	clock.Advance(31 * time.Minute)

	if _, ok, _ := s.Get(ctx, 42); ok {
		t.Error("Get() after TTL = true, want false")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0 после ленивой эвикции", s.Len())
	}
}

func TestGet_TouchExtendsTTL(t *testing.T) {
	s, clock := newTestStore(t, 30*time.Minute)
	ctx := context.Background()

	_ = s.Put(ctx, 42, sampleState(2))
	clock.Advance(20 * time.Minute)
	if _, ok, _ := s.Get(ctx, 42); !ok {
		t.Fatal("Get() before TTL = false")
	}
	// ещё 20 минут: без touch запись бы умерла
	clock.Advance(20 * time.Minute)
	if _, ok, _ := s.Get(ctx, 42); !ok {
		t.Error("Get() after touch = false, want true")
	}
}

func TestMerge_CreatesEntry(t *testing.T) {
	s, _ := newTestStore(t, 30*time.Minute)

	adults := 3
	st, err := s.Merge(context.Background(), 42, &domain.Delta{Adults: &adults, Confidence: domain.ConfidenceExact}, domain.SourceUser)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if st.Adults == nil || *st.Adults != 3 {
		t.Errorf("Merge() Adults = %v, want 3", st.Adults)
	}
	if p, ok := st.SetBy(domain.FieldAdults); !ok || p.Source != domain.SourceUser {
		t.Errorf("Merge() provenance = %+v/%v, want user", p, ok)
	}
}

func TestMerge_OnExpiredEntryStartsFresh(t *testing.T) {
	s, clock := newTestStore(t, 30*time.Minute)
	ctx := context.Background()

	_ = s.Put(ctx, 42, sampleState(2))
	clock.Advance(31 * time.Minute)

	country := 115
	st, err := s.Merge(ctx, 42, &domain.Delta{CountryID: &country, Confidence: domain.ConfidenceExact}, domain.SourceUser)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if st.Adults != nil {
		t.Error("протухшее состояние пережило Merge")
	}
	if st.CountryID != 115 {
		t.Errorf("CountryID = %d, want 115", st.CountryID)
	}
}

func TestClear(t *testing.T) {
	s, _ := newTestStore(t, 30*time.Minute)
	ctx := context.Background()

	_ = s.Put(ctx, 42, sampleState(2))
	if err := s.Clear(ctx, 42); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, ok, _ := s.Get(ctx, 42); ok {
		t.Error("Get() after Clear = true")
	}
}

func TestRemoveExpired(t *testing.T) {
	s, clock := newTestStore(t, 30*time.Minute)
	ctx := context.Background()

	_ = s.Put(ctx, 1, sampleState(2))
	_ = s.Put(ctx, 2, sampleState(2))
	clock.Advance(20 * time.Minute)
	_ = s.Put(ctx, 3, sampleState(2))
	clock.Advance(15 * time.Minute)

	s.removeExpired()
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
	if _, ok, _ := s.Get(ctx, 3); !ok {
		t.Error("свежая запись не должна выметаться")
	}
}

func TestStop_Idempotent(t *testing.T) {
	s, _ := newTestStore(t, time.Minute)
	s.Stop()
	s.Stop()
}
