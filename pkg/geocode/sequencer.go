package geocode

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kass/go-store-map/pkg/models"
)

// DefaultBackoff is how long the sequencer waits before retrying a throttled
// lookup.
const DefaultBackoff = 1020 * time.Millisecond

// Progress is reported after every record, resolved or not.
type Progress struct {
	Index    int
	Record   *models.LocationRecord
	Resolved bool
	// Records is the full input slice; entries before Index are final.
	Records []*models.LocationRecord
}

// ProgressFunc receives per-record progress. It runs on the sequencer's
// goroutine and must not retain Records past the call if it mutates them.
type ProgressFunc func(Progress)

// Summary describes a finished ResolveAll run.
type Summary struct {
	Resolved int
	Skipped  int
	Requests int
	Canceled bool
}

// SequencerOption configures a Sequencer.
type SequencerOption func(*Sequencer)

// WithBackoff overrides the throttle backoff interval.
func WithBackoff(d time.Duration) SequencerOption {
	return func(s *Sequencer) {
		if d >= 0 {
			s.backoff = d
		}
	}
}

// WithMaxRetries abandons a record after n throttled retries. Zero means
// retry until the provider answers.
func WithMaxRetries(n int) SequencerOption {
	return func(s *Sequencer) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithLogger sets the logger used for skipped records.
func WithLogger(l *zap.Logger) SequencerOption {
	return func(s *Sequencer) {
		if l != nil {
			s.logger = l
		}
	}
}

// Sequencer resolves records strictly one at a time, in input order, so that
// the provider sees at most one outstanding request.
type Sequencer struct {
	provider   Provider
	backoff    time.Duration
	maxRetries int
	logger     *zap.Logger
}

// NewSequencer creates a sequencer over provider.
func NewSequencer(provider Provider, opts ...SequencerOption) *Sequencer {
	s := &Sequencer{
		provider: provider,
		backoff:  DefaultBackoff,
		logger:   zap.L(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveAll writes coordinates into each record in place. Records that
// cannot be resolved are left untouched and reported as skipped. It never
// fails; a canceled ctx stops the walk at the next request or backoff.
func (s *Sequencer) ResolveAll(ctx context.Context, records []*models.LocationRecord, progress ProgressFunc) Summary {
	var sum Summary

	for i, rec := range records {
		if ctx.Err() != nil {
			sum.Canceled = true
			return sum
		}

		ok, requests := s.resolve(ctx, rec)
		sum.Requests += requests
		if ctx.Err() != nil && !ok {
			sum.Canceled = true
			return sum
		}

		if ok {
			sum.Resolved++
		} else {
			sum.Skipped++
		}

		if progress != nil {
			progress(Progress{Index: i, Record: rec, Resolved: ok, Records: records})
		}
	}

	return sum
}

// resolve resolves a single record, retrying throttled lookups in a loop.
// It returns whether the record ended up resolved and how many requests were
// issued.
func (s *Sequencer) resolve(ctx context.Context, rec *models.LocationRecord) (bool, int) {
	if rec == nil {
		return false, 0
	}
	if rec.Resolved() {
		return true, 0
	}

	address := strings.TrimSpace(rec.Address)
	if address == "" {
		s.logger.Warn("geocode: record has neither address nor coordinates", zap.String("key", rec.Key))
		return false, 0
	}

	requests := 0
	retries := 0
	for {
		if ctx.Err() != nil {
			return false, requests
		}

		resp, err := s.provider.Geocode(ctx, address)
		requests++

		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("geocode: lookup failed",
					zap.String("key", rec.Key),
					zap.String("address", address),
					zap.Error(err),
				)
			}
			return false, requests
		}

		switch resp.Status {
		case StatusOK:
			if len(resp.Results) == 0 {
				s.logger.Warn("geocode: OK without results", zap.String("key", rec.Key), zap.String("address", address))
				return false, requests
			}
			first := resp.Results[0]
			rec.SetPosition(first.Lat, first.Lng)
			if !rec.Resolved() {
				rec.Lat, rec.Lng = nil, nil
				s.logger.Warn("geocode: non-finite coordinates", zap.String("key", rec.Key))
				return false, requests
			}
			return true, requests

		case StatusOverQueryLimit:
			if s.maxRetries > 0 && retries >= s.maxRetries {
				s.logger.Warn("geocode: giving up after repeated throttling",
					zap.String("key", rec.Key),
					zap.Int("retries", retries),
				)
				return false, requests
			}
			retries++
			s.logger.Debug("geocode: throttled, backing off",
				zap.String("key", rec.Key),
				zap.Duration("backoff", s.backoff),
			)
			if !sleep(ctx, s.backoff) {
				return false, requests
			}

		default:
			s.logger.Warn("geocode: address could not be resolved",
				zap.String("key", rec.Key),
				zap.String("address", address),
				zap.String("status", string(resp.Status)),
			)
			return false, requests
		}
	}
}

// sleep waits for d or until ctx is done. It reports whether the full
// interval elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
