package device

import (
	"context"

	"github.com/typepulse/typepulse/pkg/logger"
	"github.com/typepulse/typepulse/pkg/metrics"
)

// Set owns the collection of live input handles. It is confined to the
// listener goroutine and is not safe for concurrent use.
type Set struct {
	handles []Handle
	log     logger.Logger
}

// NewSet creates a set over the given handles.
func NewSet(handles ...Handle) *Set {
	return &Set{
		handles: handles,
		log:     logger.Named("devices"),
	}
}

// Add appends a handle, typically after a hotplug discovery pass.
func (s *Set) Add(h Handle) {
	s.handles = append(s.handles, h)
	metrics.UpdateDevicesActive(len(s.handles))
}

// Handles returns the current live handles.
func (s *Set) Handles() []Handle {
	return s.handles
}

// Len returns the number of live handles.
func (s *Set) Len() int {
	return len(s.handles)
}

// Prune drops and closes every invalid handle, returning how many were
// removed. Each removed handle is closed exactly once; a second call
// with no external change removes nothing.
func (s *Set) Prune(ctx context.Context) int {
	survivors := s.handles[:0]
	removed := 0
	for _, h := range s.handles {
		if h.Valid() {
			survivors = append(survivors, h)
			continue
		}
		if err := h.Close(); err != nil {
			s.log.Warn(ctx, "closing invalid device handle",
				logger.String("path", h.Path()),
				logger.Error(err))
		}
		s.log.Info(ctx, "pruned invalid device handle", logger.String("path", h.Path()))
		removed++
	}
	s.handles = survivors

	if removed > 0 {
		metrics.RecordDevicesPruned(removed)
	}
	metrics.UpdateDevicesActive(len(s.handles))
	return removed
}

// Remove closes and drops a single handle, used when a read fails on
// an otherwise poll-ready descriptor.
func (s *Set) Remove(ctx context.Context, h Handle) {
	survivors := s.handles[:0]
	for _, cur := range s.handles {
		if cur == h {
			if err := cur.Close(); err != nil {
				s.log.Warn(ctx, "closing failed device handle",
					logger.String("path", cur.Path()),
					logger.Error(err))
			}
			metrics.RecordDevicesPruned(1)
			continue
		}
		survivors = append(survivors, cur)
	}
	s.handles = survivors
	metrics.UpdateDevicesActive(len(s.handles))
}

// CloseAll releases every handle, for shutdown.
func (s *Set) CloseAll() {
	for _, h := range s.handles {
		_ = h.Close()
	}
	s.handles = s.handles[:0]
	metrics.UpdateDevicesActive(0)
}
