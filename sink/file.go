package sink

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/njacques/newsclip/article"
)

// FileSink writes a human-readable listing to a file, one article per block.
// The file is overwritten on every run.
type FileSink struct {
	Path string
}

var _ Sink = (*FileSink)(nil)

// Name identifies the sink in run reports.
func (s *FileSink) Name() string { return "file" }

// Write renders the articles and replaces the file contents.
func (s *FileSink) Write(_ context.Context, articles []article.Article) error {
	var b strings.Builder
	for _, a := range articles {
		fmt.Fprintf(&b, "Title: %s\n", a.Title)
		fmt.Fprintf(&b, "Date:  %s\n", a.Date.Format("2006-01-02"))
		fmt.Fprintf(&b, "Link:  %s\n", a.Link)
		b.WriteString(strings.Repeat("-", 40) + "\n")
	}

	if err := os.WriteFile(s.Path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write article listing: %w", err)
	}
	return nil
}
