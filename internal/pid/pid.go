// Package pid guards against two monitors reading the same transport.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/turbinemon/internal/errors"
)

const (
	defaultPIDFile = "turbinemon.pid"
)

// File is a PID file at a fixed path.
type File struct {
	path string
}

func New(path string) *File {
	return &File{path: path}
}

// Default returns the PID file in the system temp directory.
func Default() *File {
	return New(filepath.Join(os.TempDir(), defaultPIDFile))
}

func (f *File) Path() string {
	return f.path
}

// Write writes the current process ID, failing with ErrAlreadyRunning if the
// file names a live process. Stale or unreadable files are replaced.
func (f *File) Write() error {
	errFactory := errors.New()

	running, err := f.running()
	if err != nil {
		return err
	}
	if running {
		return errFactory.WithData(errors.ErrAlreadyRunning, f.path)
	}

	err = os.WriteFile(f.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
	if err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

func (f *File) running() (bool, error) {
	errFactory := errors.New()

	bytes, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errFactory.Wrap(errors.ErrInternal, err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(bytes)))
	if err != nil || pid <= 0 || pid == os.Getpid() {
		return false, nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, nil
	}

	return process.Signal(syscall.Signal(0)) == nil, nil
}

// Remove removes the PID file.
func (f *File) Remove() error {
	errFactory := errors.New()

	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}
