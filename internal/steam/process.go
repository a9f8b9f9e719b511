package steam

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"syscall"
)

// IsRunning reports whether the process recorded in pidFile is alive.
//
// A missing file, unparsable content, or a stale pid all count as not running.
func IsRunning(pidFile string) bool {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return false
	}

	pid, err := strconv.Atoi(string(bytes.TrimSpace(data)))
	if err != nil || pid <= 0 {
		return false
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func checkRunning(pidFile string) error {
	if !IsRunning(pidFile) {
		return fmt.Errorf("steam is not running (no live process in %s)", pidFile)
	}
	return nil
}
