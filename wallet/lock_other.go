//go:build !unix

package wallet

import (
	"fmt"
	"os"
	"runtime"
)

// lockFile/unlockFile have no implementation outside unix: the wallet's
// locking contract is a whole-file flock(2), and a lockfile-with-O_EXCL
// fallback (described in SPEC_FULL.md) has not been built since no target
// deployment runs on a non-unix platform.
func lockFile(f *os.File) error {
	return fmt.Errorf("wallet: file locking is not implemented on %s", runtime.GOOS)
}

func unlockFile(f *os.File) error {
	return fmt.Errorf("wallet: file locking is not implemented on %s", runtime.GOOS)
}
