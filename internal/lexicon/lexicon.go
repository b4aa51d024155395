// Package lexicon - статические словари "название -> код ITTour" для стран
// и городов вылета. Загружаются один раз на старте, дальше только чтение.
package lexicon

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// FuzzyCutoff - минимальная похожесть для нечёткого совпадения.
const FuzzyCutoff = 0.78

type Lexicon struct {
	countries map[string]int
	cities    map[string]int

	// нормализованный ключ -> канонический ключ
	normCountries map[string]string
	normCities    map[string]string

	countryByID map[int]string
	cityByID    map[int]string
}

func New(countries, cities map[string]int) *Lexicon {
	l := &Lexicon{
		countries:     countries,
		cities:        cities,
		normCountries: make(map[string]string, len(countries)),
		normCities:    make(map[string]string, len(cities)),
		countryByID:   make(map[int]string, len(countries)),
		cityByID:      make(map[int]string, len(cities)),
	}
	for k, v := range countries {
		l.normCountries[normalize(k)] = k
		setCanonical(l.countryByID, v, k)
	}
	for k, v := range cities {
		l.normCities[normalize(k)] = k
		setCanonical(l.cityByID, v, k)
	}
	return l
}

// В словаре допускаются алиасы (склонённые формы) с тем же кодом.
// Канонической считаем кратчайшую форму, при равенстве - меньшую по алфавиту.
func setCanonical(byID map[int]string, id int, name string) {
	prev, ok := byID[id]
	if !ok || len(name) < len(prev) || (len(name) == len(prev) && name < prev) {
		byID[id] = name
	}
}

// LoadFiles читает два JSON-словаря вида {"Туреччина": 318, ...}.
func LoadFiles(countryPath, cityPath string) (*Lexicon, error) {
	countries, err := loadMap(countryPath)
	if err != nil {
		return nil, fmt.Errorf("load country map: %w", err)
	}
	cities, err := loadMap(cityPath)
	if err != nil {
		return nil, fmt.Errorf("load from_city map: %w", err)
	}
	return New(countries, cities), nil
}

func loadMap(path string) (map[string]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(m) == 0 {
		return nil, fmt.Errorf("%s: empty map", path)
	}
	return m, nil
}

// CountryID резолвит название страны: точно -> нормализованно -> нечётко.
func (l *Lexicon) CountryID(name string) (int, bool) {
	return lookup(name, l.countries, l.normCountries)
}

// FromCityID резолвит название города вылета.
func (l *Lexicon) FromCityID(name string) (int, bool) {
	return lookup(name, l.cities, l.normCities)
}

func (l *Lexicon) CountryName(id int) string  { return l.countryByID[id] }
func (l *Lexicon) FromCityName(id int) string { return l.cityByID[id] }

func (l *Lexicon) CountryKnown(id int) bool {
	_, ok := l.countryByID[id]
	return ok
}

func (l *Lexicon) FromCityKnown(id int) bool {
	_, ok := l.cityByID[id]
	return ok
}

func (l *Lexicon) Countries() map[string]int { return l.countries }
func (l *Lexicon) Cities() map[string]int    { return l.cities }

func lookup(name string, exact map[string]int, norm map[string]string) (int, bool) {
	if name == "" {
		return 0, false
	}
	if id, ok := exact[name]; ok {
		return id, true
	}

	n := normalize(name)
	if key, ok := norm[n]; ok {
		return exact[key], true
	}

	// нечёткий поиск по нормализованным ключам
	best, score := "", 0.0
	for cand := range norm {
		if s := similarity(n, cand); s > score {
			best, score = cand, s
		}
	}
	if score >= FuzzyCutoff {
		return exact[norm[best]], true
	}
	return 0, false
}

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}'\- ]+`)
var spaces = regexp.MustCompile(`\s+`)

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "’", "'")
	s = nonWord.ReplaceAllString(s, " ")
	s = spaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// similarity - 1 - dist/maxLen по расстоянию Левенштейна на рунах.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	d := levenshtein(ra, rb)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	return 1 - float64(d)/float64(maxLen)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
