package testutil

import (
	"errors"
	"os"
	"sync"

	"github.com/spf13/afero"
)

// ErrInjectedWrite is returned by a CountingFs whose writes have been failed.
var ErrInjectedWrite = errors.New("injected write failure")

// CountingFs wraps an afero.Fs, counting completed document writes (renames
// onto the target) and optionally failing them.
type CountingFs struct {
	afero.Fs
	mu      sync.Mutex
	renames int
	fail    bool
}

// NewCountingFs wraps base.
func NewCountingFs(base afero.Fs) *CountingFs {
	return &CountingFs{Fs: base}
}

// Rename counts the write, or fails it when FailWrites is on.
func (c *CountingFs) Rename(oldname, newname string) error {
	c.mu.Lock()
	fail := c.fail
	if !fail {
		c.renames++
	}
	c.mu.Unlock()

	if fail {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: ErrInjectedWrite}
	}
	return c.Fs.Rename(oldname, newname)
}

// Writes returns the number of successful document writes.
func (c *CountingFs) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renames
}

// FailWrites makes subsequent writes fail (or succeed again).
func (c *CountingFs) FailWrites(fail bool) {
	c.mu.Lock()
	c.fail = fail
	c.mu.Unlock()
}

// Reset zeroes the write counter.
func (c *CountingFs) Reset() {
	c.mu.Lock()
	c.renames = 0
	c.mu.Unlock()
}
