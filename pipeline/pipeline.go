// Package pipeline orchestrates a scrape run: fetch and extract every
// configured source, merge the results, and deliver them to the sinks.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/njacques/newsclip/article"
	"github.com/njacques/newsclip/scrape"
	"github.com/njacques/newsclip/sink"
)

// Source pairs an extractor with the listing page it reads.
type Source struct {
	Name      string
	URL       string
	Extractor scrape.Extractor
}

// Options tune a run.
type Options struct {
	// Concurrency caps parallel source fetches. Zero or negative means one
	// worker per source.
	Concurrency int
	// Timeout bounds the whole run. Fetches still pending at the deadline are
	// aborted and recorded as failed; completed sources are kept. Zero means
	// no deadline.
	Timeout time.Duration
}

// Pipeline owns the configured sources and sinks for repeated runs.
type Pipeline struct {
	fetcher scrape.Fetcher
	sources []Source
	sinks   []sink.Sink
	opts    Options
}

// New builds a pipeline. A nil fetcher gets the standard HTTP fetcher.
func New(fetcher scrape.Fetcher, sources []Source, sinks []sink.Sink, opts Options) *Pipeline {
	if fetcher == nil {
		fetcher = scrape.NewHTTPFetcher()
	}
	return &Pipeline{
		fetcher: fetcher,
		sources: sources,
		sinks:   sinks,
		opts:    opts,
	}
}

// SourceReport records one source's outcome. A source that failed and a
// source that simply had nothing new are different things; diagnostics keep
// them apart even though both let the run continue.
type SourceReport struct {
	Name             string
	URL              string
	Count            int
	Skipped          int
	StructureMissing bool
	Err              error
}

// SinkReport records one sink's outcome.
type SinkReport struct {
	Name string
	Err  error
}

// RunResult is the complete outcome of a run. Articles is the final merged,
// deduplicated, date-ordered collection and stays valid even when every sink
// failed.
type RunResult struct {
	Articles []article.Article
	Sources  []SourceReport
	Sinks    []SinkReport
}

// SourceFailures returns the reports of sources that failed outright.
func (r *RunResult) SourceFailures() []SourceReport {
	var failed []SourceReport
	for _, rep := range r.Sources {
		if rep.Err != nil {
			failed = append(failed, rep)
		}
	}
	return failed
}

// SinkFailures returns the reports of sinks that rejected the collection.
func (r *RunResult) SinkFailures() []SinkReport {
	var failed []SinkReport
	for _, rep := range r.Sinks {
		if rep.Err != nil {
			failed = append(failed, rep)
		}
	}
	return failed
}

// Run fetches and extracts every source, tolerating per-source failure,
// merges the results in source order, deduplicates by (title, link) keeping
// the first occurrence, sorts most recent first, and hands the collection to
// every sink. The threshold is the inclusive lower bound on publication
// dates.
func (p *Pipeline) Run(ctx context.Context, threshold time.Time) *RunResult {
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	concurrency := p.opts.Concurrency
	if concurrency <= 0 {
		concurrency = len(p.sources)
	}
	if concurrency < 1 {
		concurrency = 1
	}

	// Each worker writes only its own slot; the merge below happens after the
	// join, so no accumulator is shared under a lock.
	results := make([]*scrape.Result, len(p.sources))
	reports := make([]SourceReport, len(p.sources))

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, src := range p.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			reports[i] = p.runSource(ctx, src, threshold, &results[i])
		}(i, src)
	}
	wg.Wait()

	var merged []article.Article
	for i, res := range results {
		if res == nil {
			continue
		}
		merged = append(merged, res.Articles...)
		p.logSource(reports[i])
	}
	for _, rep := range reports {
		if rep.Err != nil {
			log.Printf("ERROR: source %s (%s) failed: %v", rep.Name, rep.URL, rep.Err)
		}
	}

	merged = article.Dedupe(merged)
	article.SortByDateDesc(merged)

	run := &RunResult{
		Articles: merged,
		Sources:  reports,
	}

	for _, s := range p.sinks {
		rep := SinkReport{Name: s.Name()}
		if err := s.Write(ctx, merged); err != nil {
			rep.Err = fmt.Errorf("sink %s failed: %w", s.Name(), err)
			log.Printf("ERROR: %v", rep.Err)
		}
		run.Sinks = append(run.Sinks, rep)
	}

	return run
}

// runSource fetches and extracts a single source. Failures are returned in
// the report, never propagated, so sibling sources are unaffected.
func (p *Pipeline) runSource(ctx context.Context, src Source, threshold time.Time, out **scrape.Result) SourceReport {
	report := SourceReport{Name: src.Name, URL: src.URL}

	markup, err := p.fetcher.Fetch(ctx, src.URL)
	if err != nil {
		report.Err = fmt.Errorf("fetch failed: %w", err)
		return report
	}

	result, err := src.Extractor.Extract(markup, threshold)
	if err != nil {
		report.Err = fmt.Errorf("extract failed: %w", err)
		return report
	}

	*out = result
	report.Count = len(result.Articles)
	report.Skipped = result.Skipped
	report.StructureMissing = result.StructureMissing
	return report
}

func (p *Pipeline) logSource(rep SourceReport) {
	switch {
	case rep.StructureMissing:
		log.Printf("WARN: source %s (%s): expected listing section not found", rep.Name, rep.URL)
	case rep.Skipped > 0:
		log.Printf("INFO: source %s: %d articles, %d malformed items skipped", rep.Name, rep.Count, rep.Skipped)
	default:
		log.Printf("INFO: source %s: %d articles", rep.Name, rep.Count)
	}
}
