package workdir

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// LockFileName is the lock file kept at the root of the working directory.
const LockFileName = ".nascam.lock"

const sharedRetryDelay = 50 * time.Millisecond

// ErrBusy reports that another process holds a conflicting lock.
var ErrBusy = errors.New("working directory in use")

// Lock is a held lock on a working directory.
type Lock struct {
	dir  string
	lock *flock.Flock
}

// AcquireShared takes a shared lock on dir, creating the directory if needed.
// It waits for any exclusive holder until ctx is done.
func AcquireShared(ctx context.Context, dir string) (*Lock, error) {
	l, err := newLock(dir)
	if err != nil {
		return nil, err
	}
	ok, err := l.lock.TryRLockContext(ctx, sharedRetryDelay)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("acquire shared lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBusy, dir)
	}
	return l, nil
}

// AcquireExclusive takes the exclusive lock on dir without waiting. It fails
// with ErrBusy while any read holds the shared lock.
func AcquireExclusive(dir string) (*Lock, error) {
	l, err := newLock(dir)
	if err != nil {
		return nil, err
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire exclusive lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBusy, dir)
	}
	return l, nil
}

func newLock(dir string) (*Lock, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("working directory not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create working directory: %w", err)
	}
	return &Lock{dir: dir, lock: flock.New(filepath.Join(dir, LockFileName))}, nil
}

// Dir returns the locked directory.
func (l *Lock) Dir() string {
	if l == nil {
		return ""
	}
	return l.dir
}

// Release drops the lock. Releasing a nil lock is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
