// Package article defines the uniform record produced by every extractor and
// the merge operations the pipeline applies to it.
package article

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// NoTitle is the sentinel title used when one cannot be recovered from
// markup. An article with a valid date but missing title metadata is still
// reported, never dropped.
const NoTitle = "No Title"

// Article is a single entry scraped from a listing page. Articles are
// immutable once constructed; the pipeline owns them after extraction and
// sinks must not mutate them.
type Article struct {
	ID     uuid.UUID `json:"id"`
	Source string    `json:"source"`
	Title  string    `json:"title"`
	Link   string    `json:"link"`
	Date   time.Time `json:"date"`
}

// New builds an Article, substituting the NoTitle sentinel for an empty
// title. The link may be empty when it could not be recovered.
func New(source, title, link string, date time.Time) Article {
	if title == "" {
		title = NoTitle
	}
	return Article{
		ID:     uuid.New(),
		Source: source,
		Title:  title,
		Link:   link,
		Date:   date,
	}
}

// Key is the natural identity of an article for deduplication. Two articles
// with equal title and link are duplicates regardless of date precision.
type Key struct {
	Title string
	Link  string
}

// Key returns the article's deduplication key.
func (a Article) Key() Key {
	return Key{Title: a.Title, Link: a.Link}
}

// Day truncates a timestamp to its calendar date. Source timestamps may carry
// a time component and a zone offset, but threshold and ordering comparisons
// are date-only: the date is read off the timestamp's own wall clock and
// pinned to UTC, so dates from different zones compare as (year, month, day)
// tuples rather than instants.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Dedupe removes articles sharing a (title, link) key, keeping the first
// occurrence in slice order. Callers merge per-source results in source order
// so source order is the tie-break.
func Dedupe(articles []Article) []Article {
	seen := make(map[Key]bool, len(articles))
	out := make([]Article, 0, len(articles))
	for _, a := range articles {
		if seen[a.Key()] {
			continue
		}
		seen[a.Key()] = true
		out = append(out, a)
	}
	return out
}

// SortByDateDesc orders articles most recent first. The sort is stable and
// compares calendar dates only, so same-day articles keep their relative
// order.
func SortByDateDesc(articles []Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return Day(articles[i].Date).After(Day(articles[j].Date))
	})
}
