package device

import (
	"context"
	"fmt"

	"github.com/typepulse/typepulse/internal/domain/model"
	"github.com/typepulse/typepulse/pkg/logger"
	"github.com/typepulse/typepulse/pkg/metrics"
	"golang.org/x/sys/unix"
)

// Default multiplexer configuration values.
const (
	defaultVisibleTimeoutMS = 500
	indefiniteTimeoutMS     = -1
)

// Multiplexer blocks on the device set and yields decoded key events.
//
// The invariant that keeps this loop from spinning: the handle set is
// revalidated and pruned before EVERY blocking wait. poll(2) returns
// immediately with POLLNVAL for a stale descriptor, so a bad handle
// that survives into the wait turns the loop into a busy loop pinning
// a core with no I/O wait.
type Multiplexer struct {
	set              *Set
	visibility       *Visibility
	visibleTimeoutMS int
	log              logger.Logger

	// Hotplugged handles parked here until the loop admits them.
	watcher *Watcher
	pending chan Handle

	// Self-pipe; Close and the hotplug goroutine write to wakeW so an
	// indefinite poll returns.
	wakeR  int
	wakeW  int
	closed chan struct{}
}

// MultiplexerOption applies a configuration option to the Multiplexer.
type MultiplexerOption func(*Multiplexer)

// WithVisibleTimeout sets the poll timeout, in milliseconds, used
// while an observer is active. Values <= 0 keep the default.
func WithVisibleTimeout(ms int) MultiplexerOption {
	return func(m *Multiplexer) {
		if ms > 0 {
			m.visibleTimeoutMS = ms
		}
	}
}

// WithHotplugWatcher folds devices reported by w into the live set.
// The multiplexer takes ownership of the watcher and closes it.
func WithHotplugWatcher(w *Watcher) MultiplexerOption {
	return func(m *Multiplexer) {
		if w != nil {
			m.watcher = w
		}
	}
}

// NewMultiplexer creates a multiplexer over the given set.
func NewMultiplexer(set *Set, visibility *Visibility, opts ...MultiplexerOption) (*Multiplexer, error) {
	var pipeFds [2]int
	if err := unix.Pipe2(pipeFds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("wake pipe: %w", err)
	}

	m := &Multiplexer{
		set:              set,
		visibility:       visibility,
		visibleTimeoutMS: defaultVisibleTimeoutMS,
		log:              logger.Named("multiplexer"),
		pending:          make(chan Handle, 8),
		wakeR:            pipeFds[0],
		wakeW:            pipeFds[1],
		closed:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.watcher != nil {
		go m.runHotplug()
	}
	return m, nil
}

// runHotplug opens hotplugged nodes and parks them for the poll loop,
// poking the wake pipe so an indefinite wait notices them.
func (m *Multiplexer) runHotplug() {
	ctx := context.Background()
	for {
		select {
		case <-m.closed:
			return
		case path, ok := <-m.watcher.Added():
			if !ok {
				return
			}
			h, err := Open(path)
			if err != nil {
				m.log.Warn(ctx, "hotplugged device open failed",
					logger.String("path", path),
					logger.Error(err))
				continue
			}
			select {
			case m.pending <- h:
				_, _ = unix.Write(m.wakeW, []byte{0})
			case <-m.closed:
				_ = h.Close()
				return
			}
		}
	}
}

// admitPending moves hotplugged handles into the set.
func (m *Multiplexer) admitPending(ctx context.Context) {
	for {
		select {
		case h := <-m.pending:
			m.log.Info(ctx, "admitting hotplugged device",
				logger.String("path", h.Path()))
			m.set.Add(h)
		default:
			return
		}
	}
}

// NextBatch blocks until at least one device has data, a finite wait
// times out, or the multiplexer is closed. A timeout yields an empty
// batch and nil error so the caller can run periodic work. Returns
// ErrNoDevices once the set is drained and ErrClosed after Close.
func (m *Multiplexer) NextBatch(ctx context.Context) ([]model.RawKeyEvent, error) {
	for {
		select {
		case <-m.closed:
			return nil, ErrClosed
		default:
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m.admitPending(ctx)

		// Prune before the blocking wait, always.
		m.set.Prune(ctx)
		if m.set.Len() == 0 {
			return nil, ErrNoDevices
		}
		// Snapshot: Remove compacts the set's slice in place while we
		// iterate poll results.
		handles := append([]Handle(nil), m.set.Handles()...)

		fds := make([]unix.PollFd, 0, len(handles)+1)
		fds = append(fds, unix.PollFd{Fd: int32(m.wakeR), Events: unix.POLLIN})
		for _, h := range handles {
			fds = append(fds, unix.PollFd{Fd: int32(h.Fd()), Events: unix.POLLIN})
		}

		// Short timeout only while someone is watching the stats;
		// otherwise block until a key arrives or Close wakes us.
		timeoutMS := indefiniteTimeoutMS
		if m.visibility.Visible() {
			timeoutMS = m.visibleTimeoutMS
		}

		n, err := unix.Poll(fds, timeoutMS)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return nil, fmt.Errorf("poll: %w", err)
		}
		if n == 0 {
			return nil, nil
		}
		if fds[0].Revents != 0 {
			// Either Close or a hotplug poke; drain and disambiguate.
			var buf [16]byte
			_, _ = unix.Read(m.wakeR, buf[:])
			select {
			case <-m.closed:
				return nil, ErrClosed
			default:
				continue
			}
		}

		var batch []model.RawKeyEvent
		for i, pfd := range fds[1:] {
			h := handles[i]
			switch {
			case pfd.Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0:
				m.log.Warn(ctx, "device handle reported error, removing",
					logger.String("path", h.Path()))
				metrics.RecordDeviceReadError()
				m.set.Remove(ctx, h)
			case pfd.Revents&unix.POLLIN != 0:
				events, rerr := h.ReadEvents()
				if rerr != nil {
					// One failing device must not stop the others.
					m.log.Warn(ctx, "device read failed, removing",
						logger.String("path", h.Path()),
						logger.Error(rerr))
					metrics.RecordDeviceReadError()
					m.set.Remove(ctx, h)
					continue
				}
				batch = append(batch, events...)
			}
		}

		if len(batch) == 0 {
			// Readable handles produced nothing decodable; wait again.
			continue
		}
		return batch, nil
	}
}

// Close wakes any blocked wait, releases the wake pipe and closes every
// device handle, including hotplugged ones not yet admitted to the set.
// The wake byte goes out before the handles close so a blocked poll
// returns through the wake fd, not through a storm of POLLNVALs.
func (m *Multiplexer) Close() error {
	select {
	case <-m.closed:
		return nil
	default:
	}
	close(m.closed)
	if m.watcher != nil {
		_ = m.watcher.Close()
	}
	_, _ = unix.Write(m.wakeW, []byte{0})
	_ = unix.Close(m.wakeW)
	_ = unix.Close(m.wakeR)

	m.set.CloseAll()
	for {
		select {
		case h := <-m.pending:
			_ = h.Close()
		default:
			return nil
		}
	}
}
