package lexicon

import "testing"

func testLexicon() *Lexicon {
	return New(
		map[string]int{
			"Туреччина": 318,
			"Єгипет":    115,
			"Шрі-Ланка": 344,
		},
		map[string]int{
			"Київ":  1544,
			"Києва": 1544,
			"Львів": 1546,
		},
	)
}

func TestCountryID_Exact(t *testing.T) {
	lex := testLexicon()
	if id, ok := lex.CountryID("Туреччина"); !ok || id != 318 {
		t.Errorf("CountryID(Туреччина) = %d/%v, want 318/true", id, ok)
	}
}

func TestCountryID_Normalized(t *testing.T) {
	lex := testLexicon()
	tests := []struct {
		in   string
		want int
	}{
		{"туреччина", 318},
		{"  ЄГИПЕТ  ", 115},
		{"шрі ланка", 344}, // дефис потерян - добирается нечётким поиском
	}
	for _, tt := range tests {
		if id, ok := lex.CountryID(tt.in); !ok || id != tt.want {
			t.Errorf("CountryID(%q) = %d/%v, want %d/true", tt.in, id, ok, tt.want)
		}
	}
}

func TestCountryID_Fuzzy(t *testing.T) {
	lex := testLexicon()
	// опечатка в одну букву проходит порог
	if id, ok := lex.CountryID("Туречина"); !ok || id != 318 {
		t.Errorf("CountryID(Туречина) = %d/%v, want 318/true", id, ok)
	}
	// совсем другое слово - мимо
	if _, ok := lex.CountryID("Марс"); ok {
		t.Error("CountryID(Марс) matched, want miss")
	}
}

func TestFromCityID_DeclinedAlias(t *testing.T) {
	lex := testLexicon()
	// родительный падеж заведён алиасом в словаре
	if id, ok := lex.FromCityID("Києва"); !ok || id != 1544 {
		t.Errorf("FromCityID(Києва) = %d/%v, want 1544/true", id, ok)
	}
}

func TestFromCityName_CanonicalForm(t *testing.T) {
	lex := testLexicon()
	// обратный словарь выбирает именительный падеж, а не алиас
	if name := lex.FromCityName(1544); name != "Київ" {
		t.Errorf("FromCityName(1544) = %q, want Київ", name)
	}
}

func TestKnown(t *testing.T) {
	lex := testLexicon()
	if !lex.CountryKnown(318) || lex.CountryKnown(999) {
		t.Error("CountryKnown wrong")
	}
	if !lex.FromCityKnown(1546) || lex.FromCityKnown(1) {
		t.Error("FromCityKnown wrong")
	}
}

func TestLookup_EmptyName(t *testing.T) {
	lex := testLexicon()
	if _, ok := lex.CountryID(""); ok {
		t.Error("empty name must not match")
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		min  float64
		max  float64
	}{
		{"київ", "київ", 1, 1},
		{"туреччина", "туречина", 0.85, 0.95},
		{"київ", "осло", 0, 0.3},
	}
	for _, tt := range tests {
		got := similarity(tt.a, tt.b)
		if got < tt.min || got > tt.max {
			t.Errorf("similarity(%q, %q) = %v, want in [%v, %v]", tt.a, tt.b, got, tt.min, tt.max)
		}
	}
}

func TestLoadFiles(t *testing.T) {
	lex, err := LoadFiles("../../data/country_map.json", "../../data/from_city_map.json")
	if err != nil {
		t.Fatalf("LoadFiles() error = %v", err)
	}
	if id, ok := lex.CountryID("Туреччина"); !ok || id != 318 {
		t.Errorf("CountryID(Туреччина) = %d/%v, want 318/true", id, ok)
	}
	if id, ok := lex.FromCityID("Кракова"); !ok || id != 2803 {
		t.Errorf("FromCityID(Кракова) = %d/%v, want 2803/true", id, ok)
	}
}
