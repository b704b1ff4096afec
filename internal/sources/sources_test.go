package sources

import (
	"strings"
	"testing"

	"github.com/thinkscotty/medialens/internal/schema"
)

func TestCatalogEntriesAreValid(t *testing.T) {
	if len(Catalog) == 0 {
		t.Fatal("catalog is empty")
	}
	seen := make(map[string]bool)
	for _, s := range Catalog {
		if s.Country == "" || s.MediaName == "" {
			t.Errorf("catalog entry with empty identity: %+v", s)
		}
		if err := schema.ValidateHTTPURL(s.URL); err != nil {
			t.Errorf("catalog entry %s/%s has bad URL %q: %v", s.Country, s.MediaName, s.URL, err)
		}
		key := s.Country + "|" + s.MediaName
		if seen[key] {
			t.Errorf("duplicate catalog identity %s", key)
		}
		seen[key] = true
	}
}

func TestFormatForPlanning(t *testing.T) {
	catalog := []schema.NewsSource{
		{Country: "Japan", MediaName: "NHK", URL: "https://www3.nhk.or.jp/news/"},
		{Country: "France", MediaName: "France 24", URL: "https://www.france24.com/en/"},
		{Country: "France", MediaName: "Le Monde", URL: "https://www.lemonde.fr/"},
	}
	got := FormatForPlanning(catalog)

	if !strings.HasPrefix(got, "Available news sources") {
		t.Errorf("missing header: %q", got)
	}
	// Countries sorted, entries indented under their country.
	franceIdx := strings.Index(got, "France:")
	japanIdx := strings.Index(got, "Japan:")
	if franceIdx == -1 || japanIdx == -1 {
		t.Fatalf("missing country headers:\n%s", got)
	}
	if franceIdx > japanIdx {
		t.Error("countries not sorted alphabetically")
	}
	if !strings.Contains(got, "  - NHK: https://www3.nhk.or.jp/news/") {
		t.Errorf("missing indented entry line:\n%s", got)
	}
	if !strings.Contains(got, "  - Le Monde: https://www.lemonde.fr/") {
		t.Errorf("missing second France entry:\n%s", got)
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		country string
		media   string
		wantOK  bool
	}{
		{"Japan", "NHK", true},
		{"Russia", "TASS", true},
		{"Japan", "TASS", false},
		{"Atlantis", "The Daily Myth", false},
	}
	for _, tt := range tests {
		t.Run(tt.country+"/"+tt.media, func(t *testing.T) {
			got, ok := Lookup(Catalog, tt.country, tt.media)
			if ok != tt.wantOK {
				t.Fatalf("Lookup ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.URL == "" {
				t.Error("found entry has empty URL")
			}
		})
	}
}
