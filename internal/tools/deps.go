// Package tools provides MCP tool handlers and registration.
package tools

import (
	"log/slog"

	"github.com/dkaufhold/factgraph/internal/content"
	"github.com/dkaufhold/factgraph/internal/jobs"
	"github.com/dkaufhold/factgraph/internal/metrics"
	"github.com/dkaufhold/factgraph/internal/search"
)

// Dependencies holds shared services for tool handlers.
// Passed to handler factories via closure capture.
type Dependencies struct {
	Content *content.Store
	Jobs    *jobs.Store
	Engine  *search.Engine
	Metrics *metrics.Collector
	Logger  *slog.Logger

	// MinExtractLength is the enqueue-time policy: text shorter than this
	// is stored but never extracted.
	MinExtractLength int
}
