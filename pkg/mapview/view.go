package mapview

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kass/go-store-map/pkg/geocode"
	"github.com/kass/go-store-map/pkg/models"
)

// ErrClosed is returned by Do once the view has stopped
var ErrClosed = eris.New("mapview: view closed")

// Options configures a View
type Options struct {
	MapOptions
	// OnUpdate receives the resolved records after each sequencer step. It
	// runs on the view's loop and must not block on work that waits for the
	// loop.
	OnUpdate func(records []*models.LocationRecord)
}

// View ties a host map, a geocode sequencer and a reconciler together.
//
// A single loop goroutine owns the reconciler, the resolved records and the
// info window. The sequencer runs on its own goroutine and hands each record
// over once it is done with it. Host notifications and pin clicks are posted
// onto the loop.
type View struct {
	loader Loader
	seq    *geocode.Sequencer
	opts   Options
	logger *zap.Logger

	events   chan func()
	ready    chan struct{}
	resolved chan struct{}
	done     chan struct{}

	startOnce    sync.Once
	resolvedOnce sync.Once
	cancel       context.CancelFunc

	// written before ready or resolved close
	host    Host
	err     error
	summary geocode.Summary

	// loop-owned
	records []*models.LocationRecord
	recon   *Reconciler
}

// New creates a view. Nothing happens until Start.
func New(loader Loader, seq *geocode.Sequencer, opts Options) *View {
	return &View{
		loader:   loader,
		seq:      seq,
		opts:     opts,
		logger:   zap.L().Named("mapview"),
		events:   make(chan func(), 64),
		ready:    make(chan struct{}),
		resolved: make(chan struct{}),
		done:     make(chan struct{}),
		cancel:   func() {},
	}
}

// Start loads the map and begins resolving records. Records are mutated in
// place by the sequencer. Start may be called once; later calls are ignored.
func (v *View) Start(ctx context.Context, records []*models.LocationRecord) {
	v.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		v.cancel = cancel
		go v.run(ctx, records)
	})
}

// Ready is closed once the host map is loaded or loading failed
func (v *View) Ready() <-chan struct{} {
	return v.ready
}

// Err returns the map load error, if any. Valid after Ready is closed.
func (v *View) Err() error {
	return v.err
}

// Host returns the loaded host map. Valid after Ready is closed.
func (v *View) Host() Host {
	return v.host
}

// Resolved is closed when the sequencer has walked every record or the view
// stopped first
func (v *View) Resolved() <-chan struct{} {
	return v.resolved
}

// Summary returns the sequencer summary. Valid after Resolved is closed.
func (v *View) Summary() geocode.Summary {
	return v.summary
}

// Done is closed when the loop has exited and every pin is removed
func (v *View) Done() <-chan struct{} {
	return v.done
}

// Do runs fn on the view's loop and waits for it. It must not be called from
// the loop itself.
func (v *View) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}

	select {
	case v.events <- wrapped:
	case <-v.done:
		return ErrClosed
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "mapview: post")
	}

	select {
	case <-finished:
		return nil
	case <-v.done:
		return ErrClosed
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "mapview: wait")
	}
}

// Markers returns the mounted markers
func (v *View) Markers(ctx context.Context) ([]Marker, error) {
	var out []Marker
	err := v.Do(ctx, func() {
		if v.recon != nil {
			out = v.recon.Markers()
		}
	})
	return out, err
}

// Records returns the records resolved so far, in resolution order
func (v *View) Records(ctx context.Context) ([]*models.LocationRecord, error) {
	var out []*models.LocationRecord
	err := v.Do(ctx, func() {
		out = append(out, v.records...)
	})
	return out, err
}

// Close cancels loading, the sequencer and any pending backoff, then waits
// for the loop to remove its pins.
func (v *View) Close() {
	v.startOnce.Do(func() {
		close(v.ready)
		v.closeResolved()
		close(v.done)
	})
	v.cancel()
	<-v.done
}

func (v *View) run(ctx context.Context, records []*models.LocationRecord) {
	defer close(v.done)
	defer v.closeResolved()

	host, err := v.loader(ctx, v.opts.MapOptions)
	if err == nil && host == nil {
		err = eris.New("mapview: loader returned no host")
	}
	if err != nil {
		v.err = eris.Wrap(err, "mapview: load map")
		close(v.ready)
		return
	}

	v.host = host
	v.recon = NewReconciler(host, WithDispatch(v.post))
	host.OnIdle(func() { v.post(v.reconcile) })
	host.OnResize(func() { v.post(func() { host.PanTo(v.opts.Center) }) })
	close(v.ready)

	progress := make(chan geocode.Progress)
	go func() {
		defer close(progress)
		v.summary = v.seq.ResolveAll(ctx, records, func(p geocode.Progress) {
			select {
			case progress <- p:
			case <-ctx.Done():
			}
		})
	}()

	for {
		select {
		case <-ctx.Done():
			v.recon.Clear()
			if progress != nil {
				for range progress {
				}
			}
			return

		case p, ok := <-progress:
			if !ok {
				progress = nil
				v.logger.Debug("records resolved",
					zap.Int("resolved", v.summary.Resolved),
					zap.Int("skipped", v.summary.Skipped),
					zap.Int("requests", v.summary.Requests),
				)
				v.closeResolved()
				continue
			}
			if p.Resolved {
				v.records = append(v.records, p.Record)
				v.recon.Mount(p.Record, host.Bounds())
			}
			if v.opts.OnUpdate != nil {
				v.opts.OnUpdate(append([]*models.LocationRecord(nil), v.records...))
			}

		case fn := <-v.events:
			fn()
		}
	}
}

func (v *View) reconcile() {
	v.recon.Reconcile(v.records, v.host.Bounds())
}

// post queues fn on the loop; it is dropped once the loop has exited
func (v *View) post(fn func()) {
	select {
	case v.events <- fn:
	case <-v.done:
	}
}

func (v *View) closeResolved() {
	v.resolvedOnce.Do(func() { close(v.resolved) })
}
