package lode

import (
	"context"

	"github.com/pithecene-io/typings/metrics"
)

// InstrumentedClient wraps a Client and records write metrics. Each
// WriteEntry call increments archive write success or failure.
type InstrumentedClient struct {
	inner     Client
	collector *metrics.Collector
}

// NewInstrumentedClient wraps a client with metrics instrumentation.
func NewInstrumentedClient(inner Client, collector *metrics.Collector) *InstrumentedClient {
	return &InstrumentedClient{inner: inner, collector: collector}
}

// WriteEntry delegates to the inner client and records success or failure.
func (c *InstrumentedClient) WriteEntry(ctx context.Context, e Entry) error {
	err := c.inner.WriteEntry(ctx, e)
	if err != nil {
		c.collector.IncArchiveWriteFailure()
	} else {
		c.collector.IncArchiveWriteSuccess()
	}
	return err
}

// Close delegates to the inner client.
func (c *InstrumentedClient) Close() error {
	return c.inner.Close()
}

// Verify InstrumentedClient implements Client.
var _ Client = (*InstrumentedClient)(nil)
