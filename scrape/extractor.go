// Package scrape turns raw listing markup into Articles. Each source is
// described by a small set of selector constants; the traversal itself is
// shared, so adding a source means supplying constants, not new control flow.
package scrape

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/njacques/newsclip/article"
)

// Extractor is the capability every source variant provides: raw markup and
// an inclusive threshold date in, zero or more Articles out.
type Extractor interface {
	Extract(markup []byte, threshold time.Time) (*Result, error)
}

// Result is the outcome of extracting one source's listing. It distinguishes
// "the page had nothing for us" from "the page did not look like we expect",
// so callers cannot mistake an empty day for a broken source.
type Result struct {
	Articles []article.Article
	// StructureMissing reports that the expected container section was
	// absent. The result is empty but the source did not fail.
	StructureMissing bool
	// Skipped counts items dropped because their date was missing or
	// unparseable. Malformed entries never abort the source.
	Skipped int
}

// SiteConfig holds the selector and format constants for one source layout.
type SiteConfig struct {
	// ContainerSelector locates the section holding the listing. Empty means
	// the whole document.
	ContainerSelector string
	// ItemSelector matches each repeated article element within the
	// container.
	ItemSelector string
	// DateSelector matches the sub-element carrying the publication date.
	DateSelector string
	// DateAttr names an attribute holding the date, e.g. "datetime". When
	// set, the attribute is tried before the element text.
	DateAttr string
	// DateLayouts are Go time layouts tried in order against each candidate
	// date string.
	DateLayouts []string
	// TitleSelector matches the element wrapping the title anchor.
	TitleSelector string
}

// SiteExtractor applies a SiteConfig to listing markup.
type SiteExtractor struct {
	Source string
	Config SiteConfig
	// BaseURL resolves relative article links when set.
	BaseURL string
}

var _ Extractor = (*SiteExtractor)(nil)

// Extract parses the markup and returns every item whose publication date is
// on or after the threshold. The boundary is inclusive: an article dated
// exactly on the threshold is kept.
func (e *SiteExtractor) Extract(markup []byte, threshold time.Time) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	root := doc.Selection
	if e.Config.ContainerSelector != "" {
		container := doc.Find(e.Config.ContainerSelector).First()
		if container.Length() == 0 {
			return &Result{StructureMissing: true}, nil
		}
		root = container
	}

	result := &Result{}
	day := article.Day(threshold)

	root.Find(e.Config.ItemSelector).Each(func(_ int, item *goquery.Selection) {
		date, ok := e.itemDate(item)
		if !ok {
			result.Skipped++
			return
		}
		if article.Day(date).Before(day) {
			return
		}

		title, link := e.titleAndLink(item)
		result.Articles = append(result.Articles, article.New(e.Source, title, link, date))
	})

	return result, nil
}

// itemDate extracts and parses the publication date of one item. It reports
// false when the date element is missing or no layout matches.
func (e *SiteExtractor) itemDate(item *goquery.Selection) (time.Time, bool) {
	elem := item.Find(e.Config.DateSelector).First()
	if elem.Length() == 0 {
		return time.Time{}, false
	}

	var candidates []string
	if e.Config.DateAttr != "" {
		if v, ok := elem.Attr(e.Config.DateAttr); ok && strings.TrimSpace(v) != "" {
			candidates = append(candidates, strings.TrimSpace(v))
		}
	}
	if text := cleanText(elem.Text()); text != "" {
		candidates = append(candidates, text)
	}

	for _, candidate := range candidates {
		for _, layout := range e.Config.DateLayouts {
			if t, err := time.Parse(layout, candidate); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// titleAndLink extracts the title text and article link. A missing title
// element or anchor yields empty strings; article.New substitutes the
// sentinel so the item is still reported.
func (e *SiteExtractor) titleAndLink(item *goquery.Selection) (string, string) {
	titleElem := item.Find(e.Config.TitleSelector).First()
	if titleElem.Length() == 0 {
		return "", ""
	}
	anchor := titleElem.Find("a").First()
	if anchor.Length() == 0 {
		return "", ""
	}

	title := cleanText(anchor.Text())
	href, _ := anchor.Attr("href")
	return title, e.resolveLink(strings.TrimSpace(href))
}

// resolveLink makes a relative href absolute against the source's base URL.
func (e *SiteExtractor) resolveLink(href string) string {
	if href == "" || e.BaseURL == "" {
		return href
	}
	base, err := url.Parse(e.BaseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// cleanText trims a text field and collapses internal whitespace. HTML
// entities are already decoded by the parser.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
