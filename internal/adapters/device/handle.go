// Package device owns the live set of keyboard input handles, the
// multiplexed blocking wait over them, and the decoding of raw kernel
// input events into key events.
package device

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/typepulse/typepulse/internal/domain/model"
	"golang.org/x/sys/unix"
)

// Linux input_event constants.
const (
	evKey           = 0x01
	valueRelease    = 0
	valuePress      = 1
	valueAutoRepeat = 2

	// sizeof(struct input_event) on 64-bit: timeval (16) + type (2) +
	// code (2) + value (4).
	inputEventSize = 24

	readBatchEvents = 64
)

// Handle is a single readable input source.
type Handle interface {
	// Fd returns the underlying file descriptor for poll(2).
	Fd() int

	// Path identifies the device node, e.g. /dev/input/event3.
	Path() string

	// ReadEvents drains pending kernel events and decodes key
	// presses/releases. A short read with no key events returns an
	// empty slice and nil error.
	ReadEvents() ([]model.RawKeyEvent, error)

	// Close releases the descriptor. Safe to call more than once.
	Close() error

	// Valid reports whether the descriptor is still usable.
	Valid() bool
}

// evdevHandle reads struct input_event records from a /dev/input node.
type evdevHandle struct {
	fd   int
	path string

	closeOnce sync.Once
	closeErr  error

	buf []byte
}

// Open opens an evdev device node in non-blocking mode.
func Open(path string) (Handle, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &evdevHandle{
		fd:   fd,
		path: path,
		buf:  make([]byte, inputEventSize*readBatchEvents),
	}, nil
}

func (h *evdevHandle) Fd() int      { return h.fd }
func (h *evdevHandle) Path() string { return h.path }

func (h *evdevHandle) ReadEvents() ([]model.RawKeyEvent, error) {
	n, err := unix.Read(h.fd, h.buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EINTR {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", h.path, err)
	}

	events := make([]model.RawKeyEvent, 0, n/inputEventSize)
	for off := 0; off+inputEventSize <= n; off += inputEventSize {
		rec := h.buf[off : off+inputEventSize]

		evType := binary.LittleEndian.Uint16(rec[16:18])
		if evType != evKey {
			continue
		}
		value := int32(binary.LittleEndian.Uint32(rec[20:24]))
		if value == valueAutoRepeat {
			continue
		}

		sec := int64(binary.LittleEndian.Uint64(rec[0:8]))
		usec := int64(binary.LittleEndian.Uint64(rec[8:16]))

		events = append(events, model.RawKeyEvent{
			DeviceID:    h.path,
			Code:        binary.LittleEndian.Uint16(rec[18:20]),
			TimestampMS: sec*1000 + usec/1000,
			IsPress:     value == valuePress,
		})
	}
	return events, nil
}

func (h *evdevHandle) Close() error {
	h.closeOnce.Do(func() {
		h.closeErr = unix.Close(h.fd)
	})
	return h.closeErr
}

// Valid probes the descriptor with fcntl(F_GETFL); a revoked or closed
// descriptor fails without performing I/O.
func (h *evdevHandle) Valid() bool {
	_, err := unix.FcntlInt(uintptr(h.fd), unix.F_GETFL, 0)
	return err == nil
}
