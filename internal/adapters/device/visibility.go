package device

import (
	"sync/atomic"
	"time"

	"github.com/typepulse/typepulse/pkg/metrics"
)

// Visibility is the one piece of state shared between the stats
// observer and the listener. The observer marks itself visible for a
// bounded interval; the listener only ever reads the atomic deadline,
// it never calls back into observer state.
type Visibility struct {
	visibleUntilNS atomic.Int64
}

// NewVisibility creates an initially-invisible flag.
func NewVisibility() *Visibility {
	return &Visibility{}
}

// MarkVisible records observer activity for the given interval.
func (v *Visibility) MarkVisible(ttl time.Duration) {
	v.visibleUntilNS.Store(time.Now().Add(ttl).UnixNano())
	metrics.UpdateObserverVisible(true)
}

// Visible reports whether an observer marked itself active recently.
func (v *Visibility) Visible() bool {
	visible := time.Now().UnixNano() < v.visibleUntilNS.Load()
	metrics.UpdateObserverVisible(visible)
	return visible
}
