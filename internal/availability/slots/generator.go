package slots

import (
	"context"
	"fmt"
	"time"

	"orari/internal/availability/resolver"
	"orari/pkg/logger"
	"orari/pkg/model"
)

// Slot is one bookable candidate. Its length is always exactly the
// service duration; buffers shape the spacing between bookings, never the
// slot itself. ViolatesBuffer marks candidates that would collide with an
// existing booking's buffered span; it is surfaced to staff callers only.
type Slot struct {
	Start          time.Time
	End            time.Time
	ViolatesBuffer bool
}

// Options tune one generation request.
type Options struct {
	// StepMin overrides the increment for UI density. It applies only to
	// variable-increment services and may not drop below the floor the
	// caller-step config allows.
	StepMin int
	// EdgeBuffers requires duration+buffer to fit before the window end
	// instead of just duration.
	EdgeBuffers bool
}

// BookingSource supplies committed real bookings overlapping a span.
type BookingSource interface {
	RealBookingsIn(ctx context.Context, orgID string, from, to time.Time) ([]*model.Booking, error)
}

// ServiceParamsSource resolves scheduling params for arbitrary services,
// needed because each existing booking is expanded by its own service's
// buffer, not the candidate's.
type ServiceParamsSource interface {
	ParamsFor(ctx context.Context, serviceID string) (model.SchedulingParams, error)
}

type Generator struct {
	resolver *resolver.Resolver
	bookings BookingSource
	params   ServiceParamsSource
	minStep  time.Duration
	log      *logger.Logger
	now      func() time.Time
}

func New(res *resolver.Resolver, bookings BookingSource, params ServiceParamsSource, minStepMin int, log *logger.Logger) *Generator {
	return &Generator{
		resolver: res,
		bookings: bookings,
		params:   params,
		minStep:  time.Duration(minStepMin) * time.Minute,
		log:      log,
		now:      time.Now,
	}
}

// WithClock replaces the generator's time source. Test hook.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate emits candidate slots for a service between rangeStart and
// rangeEnd, ascending. The range is clamped to the notice/advance bounds
// and the organization's trial end, when present.
func (g *Generator) Generate(ctx context.Context, org *model.Organization, svc *model.Service, rangeStart, rangeEnd time.Time, opts Options) ([]Slot, error) {
	loc := org.Location()
	now := g.now().In(loc)

	noticeBound := now.Add(time.Duration(svc.MinNoticeHours) * time.Hour)
	horizon := now.AddDate(0, 0, svc.MaxBookingDays)
	if org.TrialEndsAt != nil && org.TrialEndsAt.Before(horizon) {
		horizon = org.TrialEndsAt.In(loc)
	}

	from := rangeStart.In(loc)
	if dayStart := startOfDay(now); from.Before(dayStart) {
		from = dayStart
	}
	to := rangeEnd.In(loc)
	if to.After(horizon) {
		to = horizon
	}
	if !to.After(from) {
		return nil, nil
	}

	var slots []Slot
	for day := startOfDay(from); day.Before(to); day = day.AddDate(0, 0, 1) {
		daySlots, err := g.generateDay(ctx, org, svc, day, from, to, noticeBound, opts)
		if err != nil {
			return nil, err
		}
		slots = append(slots, daySlots...)
	}
	return slots, nil
}

func (g *Generator) generateDay(ctx context.Context, org *model.Organization, svc *model.Service, day, from, to, noticeBound time.Time, opts Options) ([]Slot, error) {
	plan, err := g.resolver.ResolveDay(ctx, org, svc, day)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", day.Format(model.DateLayout), err)
	}
	if len(plan.Windows) == 0 {
		return nil, nil
	}

	busy, err := g.busyIntervals(ctx, org.ID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	params := plan.Params
	step := params.Step()
	if opts.StepMin > 0 && !params.UseFixedIncrement {
		override := time.Duration(opts.StepMin) * time.Minute
		if override >= g.minStep {
			step = override
		}
	}

	bounds := model.TimeWindow{Start: from, End: to}
	var slots []Slot
	for _, window := range plan.Windows {
		clamped := window.Clamp(bounds)
		if clamped.IsZero() {
			continue
		}
		slots = append(slots, g.walkWindow(clamped, window, busy, params, step, noticeBound, opts)...)
	}
	return slots, nil
}

// walkWindow steps candidates through one effective window. Existing
// bookings split the window into free segments; stepping restarts at each
// segment start, so a booking ending off-grid still anchors the next slot
// correctly. Candidates must start inside a free segment, while the
// duration-fit rules run against the window end.
func (g *Generator) walkWindow(clamped, window model.TimeWindow, busy []busyInterval, params model.SchedulingParams, step time.Duration, noticeBound time.Time, opts Options) []Slot {
	duration := params.Duration()
	buffer := params.BufferAfter()

	var slots []Slot
	for _, segment := range clamped.SubtractAll(expandedWindows(busy)) {
		for cursor := segment.Start; cursor.Before(segment.End); cursor = cursor.Add(step) {
			// Past-notice candidates are skipped individually; the rest
			// of the segment stays intact.
			if cursor.Before(noticeBound) {
				continue
			}

			slotEnd := cursor.Add(duration)
			boundary := slotEnd.Equal(window.End)

			if !boundary && !params.AllowEndsAfterAvailability {
				required := duration
				if opts.EdgeBuffers {
					required += buffer
				}
				if cursor.Add(required).After(window.End) {
					continue
				}
				if !params.AllowSquishedBookings && slotEnd.Add(buffer).After(window.End) {
					continue
				}
			}

			slots = append(slots, Slot{
				Start:          cursor,
				End:            slotEnd,
				ViolatesBuffer: violatesBuffer(cursor, slotEnd.Add(buffer), busy),
			})
		}
	}
	return slots
}

// busyInterval is an existing booking expanded by its own buffer.
type busyInterval struct {
	raw      model.TimeWindow
	buffered model.TimeWindow
}

func (g *Generator) busyIntervals(ctx context.Context, orgID string, from, to time.Time) ([]busyInterval, error) {
	bookings, err := g.bookings.RealBookingsIn(ctx, orgID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}

	buffers := make(map[string]time.Duration)
	intervals := make([]busyInterval, 0, len(bookings))
	for _, b := range bookings {
		buf, ok := buffers[b.ServiceID]
		if !ok {
			params, err := g.params.ParamsFor(ctx, b.ServiceID)
			if err != nil {
				return nil, fmt.Errorf("load params for service %s: %w", b.ServiceID, err)
			}
			buf = params.BufferAfter()
			buffers[b.ServiceID] = buf
		}
		raw := b.Window()
		intervals = append(intervals, busyInterval{
			raw:      raw,
			buffered: model.TimeWindow{Start: raw.Start, End: raw.End.Add(buf)},
		})
	}
	return intervals, nil
}

func expandedWindows(busy []busyInterval) []model.TimeWindow {
	windows := make([]model.TimeWindow, len(busy))
	for i, b := range busy {
		windows[i] = b.buffered
	}
	return windows
}

// violatesBuffer reports whether the candidate's buffered span intrudes
// into any existing booking's buffered span. Such candidates are still
// emitted (the transactional conflict check at creation time is the
// authoritative gate), but staff callers see the annotation.
func violatesBuffer(start, bufferedEnd time.Time, busy []busyInterval) bool {
	candidate := model.TimeWindow{Start: start, End: bufferedEnd}
	for _, b := range busy {
		if candidate.Overlaps(b.buffered) {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
