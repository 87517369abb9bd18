package usecase

import (
	"context"

	"SectorPulse/internal/domain/models"
	drepo "SectorPulse/internal/domain/repository"
	mid "SectorPulse/internal/middleware"
)

// QuoteCollector reads quotes from the market feed and pushes them through
// the ingest pipeline into the processor.
type QuoteCollector struct {
	stream  drepo.MarketStream
	proc    *QuoteProcessor
	metrics drepo.Metrics
	pipe    *mid.IngestPipeline
}

// NewQuoteCollector creates a new QuoteCollector instance.
func NewQuoteCollector(stream drepo.MarketStream, proc *QuoteProcessor, metrics drepo.Metrics, pipe *mid.IngestPipeline) *QuoteCollector {
	return &QuoteCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the market feed is connected.
func (c *QuoteCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *QuoteCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	qCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, qCh, errCh)
	return nil
}

func (c *QuoteCollector) consume(ctx context.Context, qCh <-chan *models.Quote, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if ok && err != nil {
				c.metrics.RecordError("stream")
			}
			// The feed closes both channels after a read error, so a
			// fresh Read is needed either way.
			if qCh, errCh, ok = c.resubscribe(ctx); !ok {
				return
			}
		case q, ok := <-qCh:
			if !ok {
				// Pull the read error that closed the session, if any.
				select {
				case err, eok := <-errCh:
					if eok && err != nil {
						c.metrics.RecordError("stream")
					}
				default:
				}
				if qCh, errCh, ok = c.resubscribe(ctx); !ok {
					return
				}
				continue
			}
			if q == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, q)
			} else {
				_ = c.proc.Process(ctx, q)
			}
		}
	}
}

// resubscribe reconnects the feed and opens fresh read channels. It
// reports false when the context is done or the reconnect failed.
func (c *QuoteCollector) resubscribe(ctx context.Context) (<-chan *models.Quote, <-chan error, bool) {
	if ctx.Err() != nil {
		return nil, nil, false
	}
	if err := c.stream.Reconnect(ctx); err != nil {
		c.metrics.RecordError("reconnect")
		return nil, nil, false
	}
	qCh, errCh := c.stream.Read(ctx)
	return qCh, errCh, true
}

// Processor returns the underlying QuoteProcessor for lifecycle management.
func (c *QuoteCollector) Processor() *QuoteProcessor { return c.proc }

// Shutdown stops the pipeline and closes the feed.
func (c *QuoteCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
