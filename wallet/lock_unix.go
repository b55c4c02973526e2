//go:build unix

package wallet

import (
	"errors"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// lockFile takes a whole-file advisory exclusive lock on f, matching the
// technique bbolt itself uses internally (golang.org/x/sys/unix.Flock)
// rather than a lockfile-with-O_EXCL side file. It retries indefinitely on
// EINTR, per the store's documented "a lost lock retries" behavior.
func lockFile(f *os.File) error {
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX)
		if err == nil {
			return nil
		}
		if errors.Is(err, syscall.EINTR) {
			continue
		}
		return err
	}
}

func unlockFile(f *os.File) error {
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_UN)
		if err == nil {
			return nil
		}
		if errors.Is(err, syscall.EINTR) {
			continue
		}
		return err
	}
}
