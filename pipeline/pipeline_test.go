package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njacques/newsclip/article"
	"github.com/njacques/newsclip/scrape"
)

// fakeFetcher serves canned markup per URL.
type fakeFetcher struct {
	pages map[string][]byte
	errs  map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if page, ok := f.pages[url]; ok {
		return page, nil
	}
	return nil, errors.New("no such page")
}

// captureSink records what it was handed and optionally fails.
type captureSink struct {
	name     string
	got      []article.Article
	writeErr error
}

func (s *captureSink) Name() string { return s.name }

func (s *captureSink) Write(_ context.Context, articles []article.Article) error {
	s.got = articles
	return s.writeErr
}

func listingExtractor(source string) scrape.Extractor {
	return &scrape.SiteExtractor{
		Source: source,
		Config: scrape.SiteConfig{
			ContainerSelector: "section.latest",
			ItemSelector:      "article",
			DateSelector:      "span.entry-date",
			DateLayouts:       []string{"January 2, 2006"},
			TitleSelector:     "h2.entry-title",
		},
	}
}

func listing(entries ...[2]string) []byte {
	body := `<html><body><section class="latest">`
	for _, e := range entries {
		body += `<article><span class="entry-date">` + e[0] + `</span>` +
			`<h2 class="entry-title"><a href="https://example.com/` + e[1] + `">` + e[1] + `</a></h2></article>`
	}
	return []byte(body + `</section></body></html>`)
}

// TestRun_EndToEnd covers the whole flow: one source with three articles (one
// below threshold), one source failing to fetch. The run should still yield
// the two recent articles, newest first, with the failure recorded.
func TestRun_EndToEnd(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[string][]byte{
			"https://a.test/": listing(
				[2]string{"April 14, 2025", "newest"},
				[2]string{"April 12, 2025", "middle"},
				[2]string{"April 1, 2025", "too-old"},
			),
		},
		errs: map[string]error{
			"https://b.test/": errors.New("connection refused"),
		},
	}

	out := &captureSink{name: "capture"}
	p := New(fetcher, []Source{
		{Name: "A", URL: "https://a.test/", Extractor: listingExtractor("A")},
		{Name: "B", URL: "https://b.test/", Extractor: listingExtractor("B")},
	}, nil, Options{})
	p.sinks = append(p.sinks, out)

	threshold := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	run := p.Run(context.Background(), threshold)

	require.Len(t, run.Articles, 2)
	assert.Equal(t, "newest", run.Articles[0].Title, "should be sorted most recent first")
	assert.Equal(t, "middle", run.Articles[1].Title)

	failures := run.SourceFailures()
	require.Len(t, failures, 1, "the failing source should be recorded, not fatal")
	assert.Equal(t, "B", failures[0].Name)
	assert.Contains(t, failures[0].Err.Error(), "fetch failed")

	assert.Equal(t, run.Articles, out.got, "sink should receive the final collection")
}

// TestRun_DedupeAcrossSources verifies first-wins dedup in source order
func TestRun_DedupeAcrossSources(t *testing.T) {
	shared := [2]string{"April 14, 2025", "shared-story"}
	fetcher := &fakeFetcher{
		pages: map[string][]byte{
			"https://a.test/": listing(shared),
			"https://b.test/": listing(shared, [2]string{"April 13, 2025", "only-b"}),
		},
	}

	p := New(fetcher, []Source{
		{Name: "A", URL: "https://a.test/", Extractor: listingExtractor("A")},
		{Name: "B", URL: "https://b.test/", Extractor: listingExtractor("B")},
	}, nil, Options{Concurrency: 1})

	run := p.Run(context.Background(), time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC))

	require.Len(t, run.Articles, 2, "shared article should appear once")
	assert.Equal(t, "A", run.Articles[0].Source, "first source in order should win the duplicate")
	assert.Equal(t, "only-b", run.Articles[1].Title)
}

// TestRun_SortStability verifies same-day articles keep source order
func TestRun_SortStability(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[string][]byte{
			"https://a.test/": listing([2]string{"April 14, 2025", "from-a"}),
			"https://b.test/": listing([2]string{"April 14, 2025", "from-b"}),
		},
	}

	p := New(fetcher, []Source{
		{Name: "A", URL: "https://a.test/", Extractor: listingExtractor("A")},
		{Name: "B", URL: "https://b.test/", Extractor: listingExtractor("B")},
	}, nil, Options{})

	run := p.Run(context.Background(), time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC))

	require.Len(t, run.Articles, 2)
	assert.Equal(t, "from-a", run.Articles[0].Title)
	assert.Equal(t, "from-b", run.Articles[1].Title)
}

// TestRun_SinkFailureKeepsArticles verifies a failing sink doesn't discard
// the computed collection and doesn't block other sinks
func TestRun_SinkFailureKeepsArticles(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[string][]byte{
			"https://a.test/": listing([2]string{"April 14, 2025", "story"}),
		},
	}

	broken := &captureSink{name: "broken", writeErr: errors.New("disk full")}
	working := &captureSink{name: "working"}

	p := New(fetcher, []Source{
		{Name: "A", URL: "https://a.test/", Extractor: listingExtractor("A")},
	}, nil, Options{})
	p.sinks = append(p.sinks, broken, working)

	run := p.Run(context.Background(), time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC))

	require.Len(t, run.Articles, 1, "articles survive a sink failure")
	require.Len(t, run.SinkFailures(), 1)
	assert.Equal(t, "broken", run.SinkFailures()[0].Name)
	assert.Equal(t, run.Articles, working.got, "later sinks still run")
}

// stallingFetcher blocks on the listed URLs until the context is cancelled.
type stallingFetcher struct {
	pages map[string][]byte
	stall map[string]bool
}

func (f *stallingFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.stall[url] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.pages[url], nil
}

// TestRun_TimeoutAbortsPendingFetches verifies the run deadline: a fetch
// still pending at the deadline is recorded as failed while completed
// sources keep their articles
func TestRun_TimeoutAbortsPendingFetches(t *testing.T) {
	fetcher := &stallingFetcher{
		pages: map[string][]byte{
			"https://fast.test/": listing([2]string{"April 14, 2025", "fast-story"}),
		},
		stall: map[string]bool{
			"https://slow.test/": true,
		},
	}

	p := New(fetcher, []Source{
		{Name: "Fast", URL: "https://fast.test/", Extractor: listingExtractor("Fast")},
		{Name: "Slow", URL: "https://slow.test/", Extractor: listingExtractor("Slow")},
	}, nil, Options{Timeout: 50 * time.Millisecond})

	run := p.Run(context.Background(), time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC))

	require.Len(t, run.Articles, 1, "completed source should survive the deadline")
	assert.Equal(t, "fast-story", run.Articles[0].Title)

	failures := run.SourceFailures()
	require.Len(t, failures, 1)
	assert.Equal(t, "Slow", failures[0].Name)
	assert.ErrorIs(t, failures[0].Err, context.DeadlineExceeded)
}

// TestRun_StructureMissingIsNotFailure verifies the diagnostic distinction
// between an empty source and a failed one
func TestRun_StructureMissingIsNotFailure(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[string][]byte{
			"https://a.test/": []byte("<html><body><p>redesigned page</p></body></html>"),
		},
	}

	p := New(fetcher, []Source{
		{Name: "A", URL: "https://a.test/", Extractor: listingExtractor("A")},
	}, nil, Options{})

	run := p.Run(context.Background(), time.Now())

	assert.Empty(t, run.Articles)
	assert.Empty(t, run.SourceFailures(), "missing structure is not a source failure")
	require.Len(t, run.Sources, 1)
	assert.True(t, run.Sources[0].StructureMissing)
}
