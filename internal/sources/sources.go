// Package sources holds the static catalog of news outlets the planner
// chooses from. The catalog is loaded once and never mutated at runtime.
package sources

import (
	"fmt"
	"sort"
	"strings"

	"github.com/thinkscotty/medialens/internal/schema"
)

// Catalog is the global list of (country, outlet, URL) triples.
var Catalog = []schema.NewsSource{
	{Country: "United Nations", MediaName: "UN News", URL: "https://news.un.org/en/"},
	{Country: "United States", MediaName: "CNN", URL: "https://edition.cnn.com/"},
	{Country: "United States", MediaName: "AP", URL: "https://www.ap.org/"},
	{Country: "Russia", MediaName: "RT", URL: "https://www.rt.com/"},
	{Country: "Russia", MediaName: "TASS", URL: "https://tass.com/"},
	{Country: "Germany", MediaName: "Die Zeit", URL: "https://www.zeit.de/index"},
	{Country: "United Kingdom", MediaName: "Telegraph", URL: "https://www.telegraph.co.uk/"},
	{Country: "France", MediaName: "France 24", URL: "https://www.france24.com/en/"},
	{Country: "Japan", MediaName: "NHK", URL: "https://www3.nhk.or.jp/news/"},
	{Country: "South Korea", MediaName: "Yonhap", URL: "https://en.yna.co.kr/"},
	{Country: "Italy", MediaName: "ANSA", URL: "https://www.ansa.it/english"},
	{Country: "Canada", MediaName: "CTV News", URL: "https://www.ctvnews.ca/"},
	{Country: "Brazil", MediaName: "Folha de S.Paulo", URL: "https://www.folha.uol.com.br/"},
	{Country: "Israel", MediaName: "Times of Israel", URL: "https://www.timesofisrael.com/"},
	{Country: "Iran", MediaName: "Press TV", URL: "https://www.presstv.ir/"},
	{Country: "Singapore", MediaName: "Mothership.SG", URL: "https://mothership.sg"},
	{Country: "Ukraine", MediaName: "Kyiv Independent", URL: "https://kyivindependent.com/"},
}

// FormatForPlanning renders sources as a readable list grouped by
// country/organization, for embedding in the planning prompt.
func FormatForPlanning(catalog []schema.NewsSource) string {
	byCountry := make(map[string][]schema.NewsSource)
	for _, s := range catalog {
		byCountry[s.Country] = append(byCountry[s.Country], s)
	}

	countries := make([]string, 0, len(byCountry))
	for c := range byCountry {
		countries = append(countries, c)
	}
	sort.Strings(countries)

	var sb strings.Builder
	sb.WriteString("Available news sources (grouped by country/organization):")
	for _, country := range countries {
		sb.WriteString("\n\n")
		sb.WriteString(country)
		sb.WriteString(":")
		for _, s := range byCountry[country] {
			sb.WriteString(fmt.Sprintf("\n  - %s: %s", s.MediaName, s.URL))
		}
	}
	return sb.String()
}

// Lookup finds a catalog entry by its (country, outlet) identity.
func Lookup(catalog []schema.NewsSource, country, mediaName string) (schema.NewsSource, bool) {
	for _, s := range catalog {
		if s.Country == country && s.MediaName == mediaName {
			return s, true
		}
	}
	return schema.NewsSource{}, false
}
