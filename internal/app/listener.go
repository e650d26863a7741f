package service

import (
	"context"
	"errors"

	"github.com/typepulse/typepulse/internal/adapters/device"
	eventqueue "github.com/typepulse/typepulse/internal/adapters/mq/queue"
	"github.com/typepulse/typepulse/pkg/logger"
	"github.com/typepulse/typepulse/pkg/metrics"
)

// runListener owns all device I/O. It decodes batches from the source,
// stamps the active layout, applies the privacy filter and hands the
// events to the aggregator. It never touches aggregator state.
func (s *Service) runListener(ctx context.Context) {
	defer close(s.listenerDone)
	log := s.logger.Named("listener")

	for {
		batch, err := s.source.NextBatch(ctx)
		switch {
		case err == nil:
		case errors.Is(err, device.ErrNoDevices):
			// Terminal: surface to the operator, do not retry in a
			// tight loop.
			log.Error(ctx, "all input devices gone, listener stopping")
			metrics.RecordErrorByComponent("listener", "no_devices")
			return
		case errors.Is(err, device.ErrClosed), ctx.Err() != nil:
			return
		default:
			log.Error(ctx, "device wait failed", logger.Error(err))
			metrics.RecordErrorByComponent("listener", "wait")
			return
		}

		layoutID := s.layouts.Current()
		for _, ev := range batch {
			if !ev.IsPress {
				continue
			}
			metrics.RecordEventIngested()

			ev.Layout = layoutID
			if !s.filter.AllowEvent(ev) {
				metrics.RecordEventFiltered()
				continue
			}

			// Backpressure: a full queue blocks here instead of
			// dropping the keystroke.
			if err := s.queue.Enqueue(ctx, ev); err != nil {
				if errors.Is(err, eventqueue.ErrClosed) || ctx.Err() != nil {
					return
				}
				log.Error(ctx, "enqueue failed", logger.Error(err))
			}
		}
	}
}
