package outbound

import (
	"context"
	"time"
)

// MetricsRecorder provides an interface for recording application metrics.
// This allows the service layer to record metrics without depending on
// specific telemetry implementations.
type MetricsRecorder interface {
	// RecordStageLatency records how long one pipeline stage of a fill took.
	RecordStageLatency(ctx context.Context, stage string, duration time.Duration)

	// RecordFill records a completed fill attempt with its outcome status
	// ("success" or the error code).
	RecordFill(ctx context.Context, status string, duration time.Duration)
}
