package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Span and attribute names for extent store operations.
const (
	SpanAppend   = "extent.append"
	SpanRead     = "extent.read"
	SpanGCSweep  = "gc.sweep"

	attrExtentID      = "extent.id"
	attrDestinationID = "extent.destination_id"
	attrOffset        = "extent.offset"
	attrCount         = "extent.count"
	attrSweepID       = "gc.sweep_id"
	attrDryRun        = "gc.dry_run"
)

// ExtentID returns an attribute for an extent identifier.
func ExtentID(id string) attribute.KeyValue {
	return attribute.String(attrExtentID, id)
}

// DestinationID returns an attribute for a persistence destination
// identifier.
func DestinationID(id string) attribute.KeyValue {
	return attribute.String(attrDestinationID, id)
}

// Offset returns an attribute for a byte offset.
func Offset(off int64) attribute.KeyValue {
	return attribute.Int64(attrOffset, off)
}

// Count returns an attribute for a byte count.
func Count(n int) attribute.KeyValue {
	return attribute.Int(attrCount, n)
}

// SweepID returns an attribute identifying a GC sweep.
func SweepID(id string) attribute.KeyValue {
	return attribute.String(attrSweepID, id)
}

// DryRun returns an attribute for whether a sweep only logged candidates.
func DryRun(dryRun bool) attribute.KeyValue {
	return attribute.Bool(attrDryRun, dryRun)
}

// StartAppendSpan starts a span around a writer pool Append call.
func StartAppendSpan(ctx context.Context, destinationID string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanAppend, trace.WithAttributes(DestinationID(destinationID)))
}

// StartReadSpan starts a span around a reader Read call.
func StartReadSpan(ctx context.Context, extentID string, offset int64, count int) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanRead, trace.WithAttributes(ExtentID(extentID), Offset(offset), Count(count)))
}

// StartSweepSpan starts a span around a single GC sweep.
func StartSweepSpan(ctx context.Context, sweepID string, dryRun bool) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanGCSweep, trace.WithAttributes(SweepID(sweepID), DryRun(dryRun)))
}
