// Package writer implements the Extent Writer Pool (spec §4.B): a
// bounded cache of currently-open append files, keyed by destination,
// that mints fresh extent ids on demand, serializes appends per file
// (I4), and rotates extents past a size threshold or idle timeout.
package writer

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/azstorecore/core/internal/logger"
	"github.com/azstorecore/core/internal/telemetry"
	"github.com/azstorecore/core/pkg/extent"
	"github.com/azstorecore/core/pkg/extent/catalog"
	"github.com/azstorecore/core/pkg/extent/destination"
)

// Options configures the writer pool's rotation and idle-eviction
// policy.
type Options struct {
	// RotationThreshold closes and evicts an extent once its size
	// exceeds this many bytes. Default 64 MiB.
	RotationThreshold int64
	// IdleTimeout evicts an open extent that has not been appended to
	// for this long. Zero means the 5 minute default; a negative value
	// disables idle eviction.
	IdleTimeout time.Duration
	// FileMode is used when creating new extent files.
	FileMode os.FileMode
}

const (
	defaultRotationThreshold = 64 << 20
	defaultIdleTimeout       = 5 * time.Minute
	defaultFileMode          = 0644
)

func (o Options) withDefaults() Options {
	if o.RotationThreshold <= 0 {
		o.RotationThreshold = defaultRotationThreshold
	}
	if o.IdleTimeout == 0 {
		o.IdleTimeout = defaultIdleTimeout
	}
	if o.FileMode == 0 {
		o.FileMode = defaultFileMode
	}
	return o
}

// openFile pairs an open extent with the pool's own notion of whether it
// is currently being appended to, distinct from extent.Extent's internal
// mutex: the slot needs to pick an *idle* file to route the next append
// to, not merely block on whichever file it happens to grab.
type openFile struct {
	e    *extent.Extent
	busy bool
}

// destSlot is the per-destination bounded set of currently-open extents:
// at most MaxConcurrency simultaneously open, each reused across
// multiple Append calls until it rotates out.
type destSlot struct {
	mu   sync.Mutex
	cond *sync.Cond
	open map[string]*openFile // extentId -> open file
	max  int
}

func newDestSlot(max int) *destSlot {
	s := &destSlot{open: make(map[string]*openFile), max: max}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Pool is the Extent Writer Pool.
type Pool struct {
	opts  Options
	dests *destination.Set
	cat   *catalog.Catalog

	mu    sync.Mutex
	slots map[string]*destSlot // destinationId -> slot
}

// New creates a writer pool over the given destination set and catalog.
func New(dests *destination.Set, cat *catalog.Catalog, opts Options) *Pool {
	opts = opts.withDefaults()
	slots := make(map[string]*destSlot, len(dests.IDs()))
	for _, id := range dests.IDs() {
		d, _ := dests.Get(id)
		slots[id] = newDestSlot(d.MaxConcurrency)
	}
	return &Pool{opts: opts, dests: dests, cat: cat, slots: slots}
}

// Append picks a destination (round-robin if destinationID is empty),
// appends bytes to an idle open extent or a newly created one, and
// returns the resulting descriptor. Appends to the same extent are
// serialized because only one caller can hold that extent's "busy" slot
// at a time; appends across distinct extents proceed in parallel up to
// each destination's MaxConcurrency.
func (p *Pool) Append(ctx context.Context, destinationID string, data []byte) (extent.Descriptor, error) {
	ctx, span := telemetry.StartAppendSpan(ctx, destinationID)
	defer span.End()

	desc, err := p.append(ctx, destinationID, data)
	if err != nil {
		telemetry.RecordError(ctx, err)
	} else {
		span.SetAttributes(telemetry.ExtentID(desc.ExtentID), telemetry.Offset(desc.Offset))
	}
	return desc, err
}

func (p *Pool) append(ctx context.Context, destinationID string, data []byte) (extent.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return extent.Descriptor{}, extent.NewOperationCancelledError(err)
	}

	dest, err := p.resolveDestination(destinationID)
	if err != nil {
		return extent.Descriptor{}, err
	}

	slot := p.slotFor(dest.ID)
	of, err := p.acquire(ctx, dest, slot)
	if err != nil {
		return extent.Descriptor{}, err
	}

	offset, err := of.e.Append(data, time.Now())
	if err != nil {
		p.evict(slot, of)
		_ = of.e.Close()
		logger.ErrorCtx(ctx, "extent append failed, evicting",
			logger.ExtentID(of.e.ID()), logger.DestinationID(dest.ID), logger.Err(err))
		// Bytes already durable before the failing write remain valid;
		// persist what succeeded before propagating the error.
		_ = p.cat.Upsert(context.Background(), of.e.ToRecord())
		return extent.Descriptor{}, err
	}

	if err := p.cat.Upsert(ctx, of.e.ToRecord()); err != nil {
		p.release(slot, of)
		return extent.Descriptor{}, err
	}

	desc := extent.Descriptor{ExtentID: of.e.ID(), Offset: offset, Count: int64(len(data))}

	if of.e.Size() > p.opts.RotationThreshold {
		p.evict(slot, of)
		if cerr := of.e.Close(); cerr != nil {
			logger.WarnCtx(ctx, "extent close on rotation failed", logger.ExtentID(of.e.ID()), logger.Err(cerr))
		}
	} else {
		p.release(slot, of)
	}

	return desc, nil
}

func (p *Pool) resolveDestination(destinationID string) (*destination.Destination, error) {
	if destinationID != "" {
		return p.dests.Get(destinationID)
	}
	return p.dests.Next(), nil
}

func (p *Pool) slotFor(destinationID string) *destSlot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.slots[destinationID]
}

// acquire returns an idle open extent from the slot, or creates a fresh
// one if the slot has room, or blocks until one becomes idle or is
// evicted (spec §4.B: "wait (single-threaded cooperative suspension)" —
// realized here as a condition variable so the contract holds under real
// concurrency, per §5).
func (p *Pool) acquire(ctx context.Context, dest *destination.Destination, slot *destSlot) (*openFile, error) {
	slot.mu.Lock()
	for {
		if err := ctx.Err(); err != nil {
			slot.mu.Unlock()
			return nil, extent.NewOperationCancelledError(err)
		}

		for _, of := range slot.open {
			if !of.busy {
				of.busy = true
				slot.mu.Unlock()
				return of, nil
			}
		}

		if len(slot.open) < slot.max {
			break
		}
		slot.cond.Wait()
	}

	id := uuid.New().String()
	path, err := p.dests.Resolve(dest.ID, id)
	if err != nil {
		slot.mu.Unlock()
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, p.opts.FileMode)
	if err != nil {
		slot.mu.Unlock()
		return nil, extent.NewIOError(id, err)
	}

	e := extent.NewOpenExtent(id, dest.ID, id, path, f, time.Now())
	of := &openFile{e: e, busy: true}
	slot.open[id] = of
	slot.mu.Unlock()

	if err := p.cat.Upsert(ctx, e.ToRecord()); err != nil {
		p.evict(slot, of)
		_ = e.Close()
		return nil, err
	}

	return of, nil
}

// release marks an open file idle again so a waiting or future Append
// call can reuse it, and wakes one waiter.
func (p *Pool) release(slot *destSlot, of *openFile) {
	slot.mu.Lock()
	of.busy = false
	slot.cond.Signal()
	slot.mu.Unlock()
}

// evict removes an open file from the slot permanently (rotation or a
// write failure); a subsequent Append on this destination opens a fresh
// extent.
func (p *Pool) evict(slot *destSlot, of *openFile) {
	slot.mu.Lock()
	delete(slot.open, of.e.ID())
	slot.cond.Broadcast()
	slot.mu.Unlock()
}

// EvictIdle closes and removes open extents that have not been appended
// to for longer than Options.IdleTimeout. The store calls it on its
// autosave ticker; it never evicts a file that is mid-append.
func (p *Pool) EvictIdle(now time.Time) {
	if p.opts.IdleTimeout <= 0 {
		return
	}

	p.mu.Lock()
	slots := make([]*destSlot, 0, len(p.slots))
	for _, s := range p.slots {
		slots = append(slots, s)
	}
	p.mu.Unlock()

	for _, slot := range slots {
		slot.mu.Lock()
		for id, of := range slot.open {
			if of.busy {
				continue
			}
			if now.Sub(of.e.LastUsed()) < p.opts.IdleTimeout {
				continue
			}
			delete(slot.open, id)
			_ = of.e.Close()
		}
		slot.mu.Unlock()
	}
}

// OpenExtentCount returns the number of currently open extent files
// across every destination, for the writer_open_extents gauge.
func (p *Pool) OpenExtentCount() int {
	p.mu.Lock()
	slots := make([]*destSlot, 0, len(p.slots))
	for _, s := range p.slots {
		slots = append(slots, s)
	}
	p.mu.Unlock()

	total := 0
	for _, s := range slots {
		s.mu.Lock()
		total += len(s.open)
		s.mu.Unlock()
	}
	return total
}

// Close flushes and closes every open file and persists the catalog,
// matching spec §4.B's close() contract.
func (p *Pool) Close() error {
	p.mu.Lock()
	slots := make([]*destSlot, 0, len(p.slots))
	for _, s := range p.slots {
		slots = append(slots, s)
	}
	p.mu.Unlock()

	var firstErr error
	for _, slot := range slots {
		slot.mu.Lock()
		for id, of := range slot.open {
			if err := of.e.Sync(); err != nil && firstErr == nil {
				firstErr = err
			}
			if err := of.e.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
			delete(slot.open, id)
		}
		slot.mu.Unlock()
	}

	if err := p.cat.Sync(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
