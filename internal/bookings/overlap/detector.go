package overlap

import (
	"context"
	"fmt"
	"time"

	"orari/pkg/logger"
	"orari/pkg/model"
)

// BookingSource supplies committed real bookings overlapping a span. The
// service passes a transaction session context here so the read and the
// subsequent insert see the same snapshot.
type BookingSource interface {
	RealBookingsIn(ctx context.Context, orgID string, from, to time.Time) ([]*model.Booking, error)
}

// ParamsSource resolves scheduling params per service, because each
// existing booking protects a buffer sized by its own service.
type ParamsSource interface {
	ParamsFor(ctx context.Context, serviceID string) (model.SchedulingParams, error)
}

// Result describes the first conflicting booking found, if any.
type Result struct {
	// Conflicting is the existing booking the candidate collides with.
	Conflicting *model.Booking
	// BufferOnly is true when only buffer space collides, not the booked
	// bodies themselves. Services that allow squished bookings may accept
	// such candidates with a warning.
	BufferOnly bool
}

// Detector is the authoritative overlap check run inside the booking
// transaction. Slot generation merely advertises candidates; this gate
// decides.
type Detector struct {
	bookings BookingSource
	params   ParamsSource
	log      *logger.Logger
}

func New(bookings BookingSource, params ParamsSource, log *logger.Logger) *Detector {
	return &Detector{bookings: bookings, params: params, log: log}
}

// lookback bounds the query for earlier bookings whose trailing buffer
// could still reach the candidate. No service buffer approaches a day.
const lookback = 24 * time.Hour

// Check compares the candidate against committed bookings in UTC. The
// candidate's span is extended by its own service's buffer; each existing
// booking's span is extended by that booking's service's buffer. Blocking
// overrides are not bookings and never participate here.
func (d *Detector) Check(ctx context.Context, candidate *model.Booking, params model.SchedulingParams) (*Result, error) {
	start := candidate.Start.UTC()
	end := candidate.End.UTC()
	proposedEnd := end.Add(params.BufferAfter())

	existing, err := d.bookings.RealBookingsIn(ctx, candidate.OrgID, start.Add(-lookback), proposedEnd)
	if err != nil {
		return nil, fmt.Errorf("load bookings for overlap check: %w", err)
	}

	buffers := make(map[string]time.Duration)
	var bufferHit *model.Booking
	for _, b := range existing {
		bStart := b.Start.UTC()
		bEnd := b.End.UTC()

		// Body against body is always fatal.
		if bStart.Before(end) && bEnd.After(start) {
			return &Result{Conflicting: b}, nil
		}

		buf, ok := buffers[b.ServiceID]
		if !ok {
			p, err := d.params.ParamsFor(ctx, b.ServiceID)
			if err != nil {
				return nil, fmt.Errorf("load params for service %s: %w", b.ServiceID, err)
			}
			buf = p.BufferAfter()
			buffers[b.ServiceID] = buf
		}

		if bufferHit != nil {
			continue
		}
		// Candidate's buffered tail reaching into the booking, or the
		// candidate starting inside the booking's buffered tail.
		if bStart.Before(proposedEnd) && bEnd.After(start) {
			bufferHit = b
			continue
		}
		if !start.Before(bEnd) && start.Before(bEnd.Add(buf)) {
			bufferHit = b
		}
	}

	if bufferHit != nil {
		return &Result{Conflicting: bufferHit, BufferOnly: true}, nil
	}
	return nil, nil
}
