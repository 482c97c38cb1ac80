package sessioncache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

const (
	diagnosticTag   = "[opencode-openai-session-cache]"
	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// AppendFunc appends data to the file at path, creating it if needed
type AppendFunc func(path string, data []byte) error

// AppendFile is the default AppendFunc
func AppendFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// FallbackDebugPath is where diagnostic lines go when the primary path
// cannot be written
func FallbackDebugPath() string {
	return filepath.Join(os.TempDir(), DebugLogName)
}

// Diagnostics is the process-wide diagnostic trail. Writes never fail from
// the caller's point of view: a failed write is retried once at the
// fallback path and a second failure disables the trail for good.
type Diagnostics struct {
	path         string
	fallbackPath string

	enabledByConfig atomic.Bool
	disabled        atomic.Bool

	appendFn AppendFunc
	now      func() time.Time
	logger   Logger
}

// NewDiagnostics creates a trail writing to path
func NewDiagnostics(path string) *Diagnostics {
	return &Diagnostics{
		path:         path,
		fallbackPath: FallbackDebugPath(),
		appendFn:     AppendFile,
		now:          time.Now,
		logger:       NoOpLogger{},
	}
}

// Path returns the primary log path
func (d *Diagnostics) Path() string {
	return d.path
}

// FallbackPath returns the secondary log path
func (d *Diagnostics) FallbackPath() string {
	return d.fallbackPath
}

// EnableByConfig turns diagnostics on for every later call. It cannot be
// undone.
func (d *Diagnostics) EnableByConfig() {
	d.enabledByConfig.Store(true)
}

// EnabledByConfig reports whether the startup hook enabled diagnostics
func (d *Diagnostics) EnabledByConfig() bool {
	return d.enabledByConfig.Load()
}

// Disabled reports whether both log paths failed and the trail is off
func (d *Diagnostics) Disabled() bool {
	return d.disabled.Load()
}

// Printf writes one timestamped, tagged line
func (d *Diagnostics) Printf(format string, args ...interface{}) {
	if d.disabled.Load() {
		return
	}
	d.Write(fmt.Sprintf(format, args...))
}

// Write appends msg as one timestamped, tagged line
func (d *Diagnostics) Write(msg string) {
	if d.disabled.Load() {
		return
	}

	line := []byte(d.now().UTC().Format(timestampLayout) + " " + diagnosticTag + " " + msg + "\n")

	err := d.appendFn(d.path, line)
	if err == nil {
		return
	}
	d.logger.Warn("Diagnostic log write failed, using fallback:", err)

	if err := d.appendFn(d.fallbackPath, line); err != nil {
		d.disabled.Store(true)
		d.logger.Error("Diagnostic fallback write failed, diagnostics disabled:", err)
	}
}
