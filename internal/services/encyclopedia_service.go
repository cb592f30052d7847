package services

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

type EncyclopediaSummary struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Extract     string `json:"extract"`
	Population  int64  `json:"population"`
}

type EncyclopediaServiceInterface interface {
	Summary(ctx context.Context, title string) (*EncyclopediaSummary, error)
}

// WikipediaClient reads page summaries from the Wikipedia REST API.
type WikipediaClient struct {
	rest restClient
}

func NewWikipediaClient(baseURL, userAgent string, timeout time.Duration) *WikipediaClient {
	return &WikipediaClient{rest: newRestClient(baseURL, userAgent, timeout)}
}

var populationPattern = regexp.MustCompile(`(?i)population\D{0,40}?(\d{1,3}(?:[,\s]\d{3})+|\d+(?:\.\d+)?\s*million|\d{4,})`)

func (w *WikipediaClient) Summary(ctx context.Context, title string) (*EncyclopediaSummary, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}

	var page struct {
		Type        string `json:"type"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Extract     string `json:"extract"`
	}
	path := "/page/summary/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))
	if err := w.rest.getJSON(ctx, path, nil, &page); err != nil {
		return nil, fmt.Errorf("wikipedia summary: %w", err)
	}
	if page.Type == "disambiguation" {
		return nil, fmt.Errorf("wikipedia summary for %q is a disambiguation page", title)
	}

	return &EncyclopediaSummary{
		Title:       page.Title,
		Description: page.Description,
		Extract:     page.Extract,
		Population:  ParsePopulation(page.Extract),
	}, nil
}

// ParsePopulation pulls the first population figure out of free text. It returns 0 when none is found.
func ParsePopulation(text string) int64 {
	m := populationPattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0
	}
	raw := strings.ToLower(strings.TrimSpace(m[1]))
	if strings.HasSuffix(raw, "million") {
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(raw, "million")), 64)
		if err != nil {
			return 0
		}
		return int64(f * 1_000_000)
	}
	digits := strings.NewReplacer(",", "", " ", "").Replace(raw)
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
