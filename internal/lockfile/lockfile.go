// Package lockfile enforces a single engine instance per database.
// Two processes grabbing the same evdev devices would double-count
// every keystroke, so startup takes a lock file next to the database.
package lockfile

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/typepulse/typepulse/pkg/logger"
	"golang.org/x/sys/unix"
)

const lockFileMode = 0o600

// Lock is a held lock file. Release removes it.
type Lock struct {
	path       string
	instanceID string
	logger     logger.Logger
}

// Acquire takes the lock at path, breaking stale locks whose owning
// process no longer exists. Returns ErrHeld when a live process owns it.
func Acquire(ctx context.Context, path string, opts ...Option) (*Lock, error) {
	l := &Lock{
		path:       path,
		instanceID: uuid.NewString(),
		logger:     logger.Get(),
	}
	for _, opt := range opts {
		opt(l)
	}

	for {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, lockFileMode)
		if err == nil {
			_, werr := fmt.Fprintf(f, "%d %s\n", os.Getpid(), l.instanceID)
			cerr := f.Close()
			if werr != nil || cerr != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("write lock file %s: %w", path, firstErr(werr, cerr))
			}
			l.logger.Debug(ctx, "lock acquired",
				logger.String("lockfile.path", path),
				logger.String("lockfile.instance", l.instanceID))
			return l, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file %s: %w", path, err)
		}

		pid, owner, rerr := readLock(path)
		if rerr != nil {
			// Unreadable or empty lock file; treat as stale.
			pid = 0
		}
		if pid > 0 && processAlive(pid) {
			return nil, fmt.Errorf("%w: pid %d (instance %s) at %s", ErrHeld, pid, owner, path)
		}

		l.logger.Warn(ctx, "breaking stale lock",
			logger.String("lockfile.path", path),
			logger.Int("lockfile.stale_pid", pid))
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove stale lock file %s: %w", path, err)
		}
		// Loop and race for the O_EXCL create again.
	}
}

// Release removes the lock file if this instance still owns it.
func (l *Lock) Release(ctx context.Context) error {
	_, owner, err := readLock(l.path)
	if err == nil && owner != l.instanceID {
		return fmt.Errorf("%w: lock at %s now owned by instance %s", ErrNotOwner, l.path, owner)
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock file %s: %w", l.path, err)
	}
	l.logger.Debug(ctx, "lock released", logger.String("lockfile.path", l.path))
	return nil
}

// InstanceID returns the unique id written into the lock file.
func (l *Lock) InstanceID() string {
	return l.instanceID
}

// readLock parses "pid instance-id" from the lock file.
func readLock(path string) (int, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, "", fmt.Errorf("read lock file %s: %w", path, err)
	}
	fields := strings.Fields(string(raw))
	if len(fields) < 1 {
		return 0, "", fmt.Errorf("%w: empty lock file %s", ErrMalformed, path)
	}
	pid, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, "", fmt.Errorf("%w: bad pid in %s", ErrMalformed, path)
	}
	owner := ""
	if len(fields) > 1 {
		owner = fields[1]
	}
	return pid, owner, nil
}

// processAlive reports whether pid refers to a live process. Signal 0
// performs the permission and existence checks without delivering
// anything; EPERM still means the process exists.
func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	return err == unix.EPERM
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
