package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation
// and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Operation
	// ========================================================================
	KeyOperation = "operation" // Append, Read, GCSweep, etc.
	KeyAccount   = "account"   // Account name for service-properties operations

	// ========================================================================
	// Extent identity & placement
	// ========================================================================
	KeyExtentID      = "extent_id"      // Extent identifier
	KeyDestinationID = "destination_id" // Persistence destination identifier
	KeyPath          = "path"           // Absolute path on disk
	KeyRelativePath  = "relative_path"  // Path relative to a destination root

	// ========================================================================
	// I/O Operations
	// ========================================================================
	KeyOffset       = "offset"        // Byte offset for read/append operations
	KeyCount        = "count"         // Byte count requested
	KeyBytesRead    = "bytes_read"    // Actual bytes read
	KeyBytesWritten = "bytes_written" // Actual bytes written
	KeySize         = "size"          // Extent size in bytes
	KeySequence     = "sequence"      // Catalog iteration sequence number

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorKind  = "error_kind"  // extent.Error Kind
	KeySource     = "source"      // Subsystem emitting the log line

	// ========================================================================
	// Garbage Collection
	// ========================================================================
	KeySweepID         = "sweep_id"         // GC sweep identifier
	KeyExtentsScanned  = "extents_scanned"  // Extents visited during a sweep
	KeyExtentsDeleted  = "extents_deleted"  // Extents removed during a sweep
	KeyBytesReclaimed  = "bytes_reclaimed"  // Bytes freed during a sweep
	KeyDryRun          = "dry_run"          // Whether the sweep only logs candidates
	KeyUnmodifiedSince = "unmodified_since" // Cutoff applied by the safety window

	// ========================================================================
	// Catalog & Properties store
	// ========================================================================
	KeyStoreName = "store_name" // Named BadgerDB handle (catalog, properties)
	KeyMarker    = "marker"     // Pagination marker for list operations
)

// ----------------------------------------------------------------------------
// Distributed Tracing
// ----------------------------------------------------------------------------

// TraceID returns a slog.Attr for an OpenTelemetry trace ID.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for an OpenTelemetry span ID.
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// ----------------------------------------------------------------------------
// Operation
// ----------------------------------------------------------------------------

// Operation returns a slog.Attr naming the operation in progress.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Account returns a slog.Attr for the account a service-properties operation
// targets.
func Account(name string) slog.Attr {
	return slog.String(KeyAccount, name)
}

// ----------------------------------------------------------------------------
// Extent identity & placement
// ----------------------------------------------------------------------------

// ExtentID returns a slog.Attr for an extent identifier.
func ExtentID(id string) slog.Attr {
	return slog.String(KeyExtentID, id)
}

// DestinationID returns a slog.Attr for a persistence destination identifier.
func DestinationID(id string) slog.Attr {
	return slog.String(KeyDestinationID, id)
}

// Path returns a slog.Attr for an absolute filesystem path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// RelativePath returns a slog.Attr for a path relative to a destination root.
func RelativePath(p string) slog.Attr {
	return slog.String(KeyRelativePath, p)
}

// ----------------------------------------------------------------------------
// I/O Operations
// ----------------------------------------------------------------------------

// Offset returns a slog.Attr for a byte offset.
func Offset(off int64) slog.Attr {
	return slog.Int64(KeyOffset, off)
}

// Count returns a slog.Attr for a byte count.
func Count(c int) slog.Attr {
	return slog.Int(KeyCount, c)
}

// BytesRead returns a slog.Attr for actual bytes read.
func BytesRead(n int) slog.Attr {
	return slog.Int(KeyBytesRead, n)
}

// BytesWritten returns a slog.Attr for actual bytes written.
func BytesWritten(n int) slog.Attr {
	return slog.Int(KeyBytesWritten, n)
}

// Size returns a slog.Attr for an extent size.
func Size(s int64) slog.Attr {
	return slog.Int64(KeySize, s)
}

// Sequence returns a slog.Attr for a catalog iteration sequence number.
func Sequence(seq uint64) slog.Attr {
	return slog.Uint64(KeySequence, seq)
}

// ----------------------------------------------------------------------------
// Operation Metadata
// ----------------------------------------------------------------------------

// DurationMs returns a slog.Attr for an operation duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorKind returns a slog.Attr for an extent.Error Kind.
func ErrorKind(kind string) slog.Attr {
	return slog.String(KeyErrorKind, kind)
}

// Source returns a slog.Attr naming the subsystem emitting the log line.
func Source(src string) slog.Attr {
	return slog.String(KeySource, src)
}

// ----------------------------------------------------------------------------
// Garbage Collection
// ----------------------------------------------------------------------------

// SweepID returns a slog.Attr identifying a GC sweep.
func SweepID(id string) slog.Attr {
	return slog.String(KeySweepID, id)
}

// ExtentsScanned returns a slog.Attr for the number of extents a sweep visited.
func ExtentsScanned(n int) slog.Attr {
	return slog.Int(KeyExtentsScanned, n)
}

// ExtentsDeleted returns a slog.Attr for the number of extents a sweep removed.
func ExtentsDeleted(n int) slog.Attr {
	return slog.Int(KeyExtentsDeleted, n)
}

// BytesReclaimed returns a slog.Attr for the bytes a sweep freed.
func BytesReclaimed(n int64) slog.Attr {
	return slog.Int64(KeyBytesReclaimed, n)
}

// DryRun returns a slog.Attr indicating whether a sweep only logs candidates.
func DryRun(dryRun bool) slog.Attr {
	return slog.Bool(KeyDryRun, dryRun)
}

// UnmodifiedSince returns a slog.Attr for the cutoff a sweep's safety window
// applied, formatted as milliseconds since the epoch.
func UnmodifiedSince(ms int64) slog.Attr {
	return slog.Int64(KeyUnmodifiedSince, ms)
}

// ----------------------------------------------------------------------------
// Catalog & Properties store
// ----------------------------------------------------------------------------

// StoreName returns a slog.Attr for a named BadgerDB handle.
func StoreName(name string) slog.Attr {
	return slog.String(KeyStoreName, name)
}

// Marker returns a slog.Attr for a list pagination marker.
func Marker(marker uint64) slog.Attr {
	return slog.Uint64(KeyMarker, marker)
}
