package domain

import (
	"time"
)

const MaxMessageLength = 1000

// Field идентифицирует один слот поискового запроса.
type Field string

const (
	FieldCountry     Field = "country"
	FieldFromCity    Field = "from_city"
	FieldAdults      Field = "adults"
	FieldChildren    Field = "children"
	FieldChildAges   Field = "child_ages"
	FieldDateFrom    Field = "date_from"
	FieldDateTill    Field = "date_till"
	FieldNightFrom   Field = "night_from"
	FieldNightTill   Field = "night_till"
	FieldHotelRating Field = "hotel_rating"
	FieldTourType    Field = "type"
	FieldKind        Field = "kind"
	FieldCurrency    Field = "currency"
	FieldBudgetFrom  Field = "budget_from"
	FieldBudgetTo    Field = "budget_to"
)

// Source - откуда взялось значение слота.
type Source string

const (
	SourceUser    Source = "user"    // явно названо в тексте пользователя
	SourceDefault Source = "default" // подставлено движком дефолтов
	SourceCarried Source = "carried" // перенесено из прошлого хода (autofix и т.п.)
)

type Confidence string

const (
	ConfidenceExact     Confidence = "exact"     // rule-based совпадение
	ConfidenceHeuristic Confidence = "heuristic" // LLM
)

type Provenance struct {
	Source     Source
	Confidence Confidence
}

// Delta - частичный набор полей, извлечённый из одного сообщения.
// nil-поле означает "в тексте не упомянуто", а не "сбросить".
type Delta struct {
	CountryID    *int
	CountryName  *string
	FromCityID   *int
	FromCityName *string
	Adults       *int
	Children     *int
	ChildAges    *string
	DateFrom     *time.Time
	DateTill     *time.Time
	NightFrom    *int
	NightTill    *int
	Currency     *string // "usd" | "eur" | "uah"
	BudgetFrom   *int
	BudgetTo     *int

	Confidence Confidence
}

// Empty сообщает, что экстрактор не нашёл ни одного поля.
func (d *Delta) Empty() bool {
	return d.CountryID == nil && d.CountryName == nil &&
		d.FromCityID == nil && d.FromCityName == nil &&
		d.Adults == nil && d.Children == nil && d.ChildAges == nil &&
		d.DateFrom == nil && d.DateTill == nil &&
		d.NightFrom == nil && d.NightTill == nil &&
		d.Currency == nil && d.BudgetFrom == nil && d.BudgetTo == nil
}

// PartialState - черновик запроса одного диалога. Владеет им session.Store,
// мутирует только оркестратор.
type PartialState struct {
	CountryID    int    `json:"country_id,omitempty"`
	CountryName  string `json:"country_name,omitempty"`
	FromCityID   int    `json:"from_city_id,omitempty"`
	FromCityName string `json:"from_city_name,omitempty"`

	Adults    *int   `json:"adults,omitempty"`
	Children  *int   `json:"children,omitempty"`
	ChildAges string `json:"child_ages,omitempty"`

	DateFrom time.Time `json:"date_from,omitempty"`
	DateTill time.Time `json:"date_till,omitempty"`

	NightFrom   int `json:"night_from,omitempty"`
	NightTill   int `json:"night_till,omitempty"`
	HotelRating int `json:"hotel_rating,omitempty"`
	TourType    int `json:"type,omitempty"`
	Kind        int `json:"kind,omitempty"`

	Currency   string `json:"currency,omitempty"`
	BudgetFrom *int   `json:"budget_from,omitempty"`
	BudgetTo   *int   `json:"budget_to,omitempty"`

	Meta map[Field]Provenance `json:"meta,omitempty"`

	QueryHash string `json:"query_hash,omitempty"`
	Page      int    `json:"page,omitempty"`
}

func NewPartialState() *PartialState {
	return &PartialState{Meta: map[Field]Provenance{}}
}

func (s *PartialState) Clone() *PartialState {
	if s == nil {
		return NewPartialState()
	}
	cp := *s
	cp.Meta = make(map[Field]Provenance, len(s.Meta))
	for k, v := range s.Meta {
		cp.Meta[k] = v
	}
	cp.Adults = cloneInt(s.Adults)
	cp.Children = cloneInt(s.Children)
	cp.BudgetFrom = cloneInt(s.BudgetFrom)
	cp.BudgetTo = cloneInt(s.BudgetTo)
	return &cp
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Has сообщает, заполнен ли слот (любым источником).
func (s *PartialState) Has(f Field) bool {
	_, ok := s.Meta[f]
	return ok
}

// SetBy сообщает источник значения слота.
func (s *PartialState) SetBy(f Field) (Provenance, bool) {
	p, ok := s.Meta[f]
	return p, ok
}

// Merge накатывает дельту экстрактора на состояние.
//
// Политика перезаписи: exact-значение (rule-based) перезаписывает всё;
// heuristic-значение (LLM) перезаписывает дефолты, перенесённые значения и
// прошлые heuristic, но не трогает слот, который пользователь уже задал
// exact-совпадением. Повторное явное упоминание поля всегда побеждает.
func (s *PartialState) Merge(d *Delta, src Source) {
	if d == nil {
		return
	}
	if s.Meta == nil {
		s.Meta = map[Field]Provenance{}
	}

	conf := d.Confidence
	if conf == "" {
		conf = ConfidenceHeuristic
	}

	if d.CountryID != nil && s.allow(FieldCountry, conf) {
		s.CountryID = *d.CountryID
		if d.CountryName != nil {
			s.CountryName = *d.CountryName
		}
		s.mark(FieldCountry, src, conf)
	}
	if d.FromCityID != nil && s.allow(FieldFromCity, conf) {
		s.FromCityID = *d.FromCityID
		if d.FromCityName != nil {
			s.FromCityName = *d.FromCityName
		}
		s.mark(FieldFromCity, src, conf)
	}
	if d.Adults != nil && s.allow(FieldAdults, conf) {
		s.Adults = cloneInt(d.Adults)
		s.mark(FieldAdults, src, conf)
	}
	if d.Children != nil && s.allow(FieldChildren, conf) {
		s.Children = cloneInt(d.Children)
		s.mark(FieldChildren, src, conf)
	}
	if d.ChildAges != nil && s.allow(FieldChildAges, conf) {
		s.ChildAges = *d.ChildAges
		s.mark(FieldChildAges, src, conf)
	}
	if d.DateFrom != nil && s.allow(FieldDateFrom, conf) {
		s.DateFrom = *d.DateFrom
		s.mark(FieldDateFrom, src, conf)
	}
	if d.DateTill != nil && s.allow(FieldDateTill, conf) {
		s.DateTill = *d.DateTill
		s.mark(FieldDateTill, src, conf)
	}
	if d.NightFrom != nil && s.allow(FieldNightFrom, conf) {
		s.NightFrom = *d.NightFrom
		s.mark(FieldNightFrom, src, conf)
	}
	if d.NightTill != nil && s.allow(FieldNightTill, conf) {
		s.NightTill = *d.NightTill
		s.mark(FieldNightTill, src, conf)
	}
	if d.Currency != nil && s.allow(FieldCurrency, conf) {
		s.Currency = *d.Currency
		s.mark(FieldCurrency, src, conf)
	}
	if d.BudgetFrom != nil && s.allow(FieldBudgetFrom, conf) {
		s.BudgetFrom = cloneInt(d.BudgetFrom)
		s.mark(FieldBudgetFrom, src, conf)
	}
	if d.BudgetTo != nil && s.allow(FieldBudgetTo, conf) {
		s.BudgetTo = cloneInt(d.BudgetTo)
		s.mark(FieldBudgetTo, src, conf)
	}
}

func (s *PartialState) allow(f Field, conf Confidence) bool {
	prev, ok := s.Meta[f]
	if !ok {
		return true
	}
	if conf == ConfidenceExact {
		return true
	}
	// heuristic не перебивает явный exact-ввод пользователя
	return !(prev.Source == SourceUser && prev.Confidence == ConfidenceExact)
}

func (s *PartialState) mark(f Field, src Source, conf Confidence) {
	s.Meta[f] = Provenance{Source: src, Confidence: conf}
}
