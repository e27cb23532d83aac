package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/njacques/newsclip/article"
	"github.com/njacques/newsclip/config"
	"github.com/njacques/newsclip/pipeline"
	"github.com/njacques/newsclip/scrape"
	"github.com/njacques/newsclip/sheets"
	"github.com/njacques/newsclip/sink"
)

func main() {
	// os.Exit skips deferred cleanup, so the work happens in run.
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "newsclip.yaml", "path to run configuration")
	since := flag.String("since", "", "threshold date (YYYY-MM-DD); overrides threshold_days")
	timeout := flag.Duration("timeout", 2*time.Minute, "run deadline")
	concurrency := flag.Int("concurrency", 0, "max parallel source fetches (0 = one per source)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("ERROR: failed to load config: %v", err)
		return 1
	}

	threshold := cfg.Threshold(time.Now())
	if *since != "" {
		threshold, err = time.Parse("2006-01-02", *since)
		if err != nil {
			log.Printf("ERROR: invalid -since date (want YYYY-MM-DD): %v", err)
			return 1
		}
	}

	sources, err := buildSources(cfg)
	if err != nil {
		log.Printf("ERROR: failed to build sources: %v", err)
		return 1
	}

	sinks, cleanup, err := buildSinks(cfg)
	if err != nil {
		log.Printf("ERROR: failed to build sinks: %v", err)
		return 1
	}
	defer cleanup()

	p := pipeline.New(nil, sources, sinks, pipeline.Options{
		Concurrency: *concurrency,
		Timeout:     *timeout,
	})

	result := p.Run(context.Background(), threshold)

	fmt.Printf("Collected %d articles on or after %s:\n", len(result.Articles), threshold.Format("2006-01-02"))
	for _, a := range result.Articles {
		fmt.Printf("  %s  %s  %s\n", a.Date.Format("2006-01-02"), a.Title, a.Link)
	}

	exitCode := 0
	if failed := result.SourceFailures(); len(failed) == len(sources) && len(sources) > 0 {
		log.Printf("ERROR: all %d sources failed", len(sources))
		exitCode = 1
	}
	if failed := result.SinkFailures(); len(failed) > 0 {
		// The collection above is still valid; only delivery failed.
		exitCode = 1
	}
	return exitCode
}

// buildSources maps source configs to extractors.
func buildSources(cfg *config.Config) ([]pipeline.Source, error) {
	sources := make([]pipeline.Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		var extractor scrape.Extractor
		switch sc.Type {
		case "betakit":
			extractor = scrape.BetaKit()
		case "finsmes":
			extractor = scrape.FinSMEs()
		case "feed":
			extractor = &scrape.FeedExtractor{Source: sc.Name}
		case "site":
			if sc.Site == nil {
				return nil, fmt.Errorf("source %s: type site requires selectors", sc.Name)
			}
			extractor = &scrape.SiteExtractor{
				Source:  sc.Name,
				BaseURL: sc.URL,
				Config: scrape.SiteConfig{
					ContainerSelector: sc.Site.Container,
					ItemSelector:      sc.Site.Item,
					DateSelector:      sc.Site.Date,
					DateAttr:          sc.Site.DateAttr,
					DateLayouts:       sc.Site.DateLayouts,
					TitleSelector:     sc.Site.Title,
				},
			}
		default:
			return nil, fmt.Errorf("source %s: unknown type %q", sc.Name, sc.Type)
		}
		sources = append(sources, pipeline.Source{Name: sc.Name, URL: sc.URL, Extractor: extractor})
	}
	return sources, nil
}

// buildSinks assembles the configured sinks. The returned cleanup closes any
// sink holding resources.
func buildSinks(cfg *config.Config) ([]sink.Sink, func(), error) {
	var sinks []sink.Sink
	cleanup := func() {}

	if cfg.Sinks.File != "" {
		sinks = append(sinks, &sink.FileSink{Path: cfg.Sinks.File})
	}
	if cfg.Sinks.SQLite != "" {
		s, err := sink.NewSQLiteSink(cfg.Sinks.SQLite)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, s)
		cleanup = func() { s.Close() }
	}
	if sc := cfg.Sinks.Sheets; sc != nil {
		creds, err := sheets.LoadCredentials(sc.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, sheets.NewClient(creds, sc.SpreadsheetID, sc.SheetName, sc.CellRange))
	}

	if len(sinks) == 0 {
		// No sink configured: print to stdout so a bare run is still useful.
		sinks = append(sinks, &stdoutSink{})
	}
	return sinks, cleanup, nil
}

// stdoutSink is the fallback when no sink is configured.
type stdoutSink struct{}

func (s *stdoutSink) Name() string { return "stdout" }

func (s *stdoutSink) Write(_ context.Context, articles []article.Article) error {
	for _, a := range articles {
		fmt.Printf("%s\t%s\t%s\n", a.Date.Format("2006-01-02"), a.Title, a.Link)
	}
	return nil
}
