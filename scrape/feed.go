package scrape

import (
	"bytes"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/njacques/newsclip/article"
)

// FeedExtractor reads an RSS or Atom listing instead of scraping HTML.
// Sources that expose a feed get the same threshold and sentinel semantics
// without selector constants. gofeed detects and normalizes both formats.
type FeedExtractor struct {
	Source string
}

var _ Extractor = (*FeedExtractor)(nil)

// Extract parses the feed and returns items dated on or after the threshold.
// Items without a parseable publication date are skipped, not fatal.
func (e *FeedExtractor) Extract(markup []byte, threshold time.Time) (*Result, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	result := &Result{}
	day := article.Day(threshold)

	for _, item := range feed.Items {
		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}
		if published == nil {
			result.Skipped++
			continue
		}
		if article.Day(*published).Before(day) {
			continue
		}

		result.Articles = append(result.Articles,
			article.New(e.Source, cleanText(item.Title), item.Link, *published))
	}

	return result, nil
}
