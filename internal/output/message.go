package output

import (
	"fmt"
	"io"
)

// Messenger writes status lines for a human reader. Quiet suppresses Info
// and Success but never Warn.
type Messenger struct {
	Out   io.Writer
	Err   io.Writer
	Quiet bool
}

// Info writes an informational line to Out.
func (m Messenger) Info(format string, args ...any) {
	if m.Quiet {
		return
	}
	_, _ = fmt.Fprintf(m.Out, format+"\n", args...)
}

// Success writes a completion line to Out.
func (m Messenger) Success(format string, args ...any) {
	if m.Quiet {
		return
	}
	_, _ = fmt.Fprintf(m.Out, "ok: "+format+"\n", args...)
}

// Warn writes a warning line to Err.
func (m Messenger) Warn(format string, args ...any) {
	_, _ = fmt.Fprintf(m.Err, "warning: "+format+"\n", args...)
}
