package admission

import (
	"fmt"
	bookingserrors "shelterbook/internal/bookings/errors"
	"shelterbook/pkg/model"
	"time"
)

// Window is a half-open time interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

func WindowOf(b *model.Booking) Window {
	return Window{Start: b.StartTime, End: b.EndTime}
}

func (w Window) Validate() error {
	if !w.Start.Before(w.End) {
		return fmt.Errorf("%w: [%s, %s)", bookingserrors.ErrInvalidWindow,
			w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
	}
	return nil
}

// Overlaps reports whether a and b share at least one instant. Windows that
// only touch at an endpoint do not overlap.
func Overlaps(a, b Window) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}
