package scrape

import "time"

// Built-in extractors for the sources the tool ships with. Selector constants
// match each site's listing layout; everything else is the shared traversal.

// BetaKit publishes its latest posts in a dedicated section with
// human-readable dates ("April 14, 2025").
func BetaKit() *SiteExtractor {
	return &SiteExtractor{
		Source:  "BetaKit",
		BaseURL: "https://betakit.com/",
		Config: SiteConfig{
			ContainerSelector: "section.section__latest-posts",
			ItemSelector:      "article",
			DateSelector:      "span.entry-date",
			DateLayouts:       []string{"January 2, 2006"},
			TitleSelector:     "h2.entry-title",
		},
	}
}

// FinSMEs carries machine-readable dates in the datetime attribute of a time
// element, with the display text as fallback.
func FinSMEs() *SiteExtractor {
	return &SiteExtractor{
		Source:  "FinSMEs",
		BaseURL: "https://www.finsmes.com/",
		Config: SiteConfig{
			ItemSelector:  "div.td-cpt-post div.td-module-container",
			DateSelector:  "time.entry-date",
			DateAttr:      "datetime",
			DateLayouts:   []string{time.RFC3339, "January 2, 2006"},
			TitleSelector: "h3.entry-title",
		},
	}
}
