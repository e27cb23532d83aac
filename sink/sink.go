// Package sink delivers a finished article collection to its destination.
package sink

import (
	"context"

	"github.com/njacques/newsclip/article"
)

// Sink receives the final ordered, deduplicated collection of a run. Sinks
// must not mutate the articles they are handed.
type Sink interface {
	Name() string
	Write(ctx context.Context, articles []article.Article) error
}
