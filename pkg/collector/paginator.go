package collector

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"

	"twitsent/pkg/logger"
	"twitsent/pkg/models"
	"twitsent/pkg/ratelimit"
	"twitsent/pkg/textclean"
)

// ErrSequenceConsumed is yielded when an item sequence is ranged over a second time.
var ErrSequenceConsumed = errors.New("collector: item sequence already consumed")

// Paginator follows search cursors for a single time window
type Paginator struct {
	exec   Executor
	logger logger.Logger
}

// NewPaginator creates a paginator issuing requests through exec
func NewPaginator(exec Executor, log logger.Logger) *Paginator {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Paginator{exec: exec, logger: log.WithField("component", "paginator")}
}

// Items returns a lazy sequence of at most limit normalized texts matching rule
// inside window. Requests are only issued while the caller keeps ranging. The
// sequence can be ranged once; a second range yields ErrSequenceConsumed.
// A request error is yielded once and ends the sequence.
func (p *Paginator) Items(ctx context.Context, rule string, langs []string, window models.TimeWindow, limit int) iter.Seq2[string, error] {
	var consumed atomic.Bool

	return func(yield func(string, error) bool) {
		if consumed.Swap(true) {
			yield("", ErrSequenceConsumed)
			return
		}
		if limit <= 0 {
			return
		}

		req := models.SearchRequest{
			Rule:       rule,
			Languages:  langs,
			Window:     window,
			MaxResults: min(limit, ratelimit.PerRequestCap),
		}

		count := 0
		for pageNum := 1; ; pageNum++ {
			page, err := p.exec.Execute(ctx, req)
			if err != nil {
				yield("", err)
				return
			}

			if pageNum == 1 && len(page.Items) == 0 {
				p.logger.InfoWithFields("No matching items in window", map[string]interface{}{
					"start": window.Start,
					"end":   window.End,
				})
				return
			}

			for _, item := range page.Items {
				if count >= limit {
					return
				}
				if !yield(textclean.Normalize(item.Text), nil) {
					return
				}
				count++
			}

			if count >= limit || !page.HasMore() {
				return
			}
			req.Cursor = page.NextCursor
		}
	}
}

// Collect drains Items. On error the texts gathered before it are returned with it.
func (p *Paginator) Collect(ctx context.Context, rule string, langs []string, window models.TimeWindow, limit int) ([]string, error) {
	var texts []string
	for text, err := range p.Items(ctx, rule, langs, window, limit) {
		if err != nil {
			return texts, err
		}
		texts = append(texts, text)
	}
	return texts, nil
}
