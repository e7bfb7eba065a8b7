package scripting

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSymbolNotFound is wrapped by a CompileError when the entry type is not
// defined by the project's sources.
var ErrSymbolNotFound = errors.New("entry symbol not found")

// ErrNoSources is wrapped by a CompileError when the scripts directory holds
// no file for the project's language.
var ErrNoSources = errors.New("no script sources")

// CompileError reports source that cannot be turned into a runnable unit.
// File and Line are set when the backend can locate the fault.
type CompileError struct {
	Entry string
	File  string
	Line  int
	Msg   string
	Err   error
}

func (e *CompileError) Error() string {
	var b strings.Builder
	b.WriteString("compile ")
	b.WriteString(e.Entry)
	if e.File != "" {
		b.WriteString(": ")
		b.WriteString(e.File)
		if e.Line > 0 {
			fmt.Fprintf(&b, ":%d", e.Line)
		}
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *CompileError) Unwrap() error { return e.Err }

// MissingCapabilityError reports an entry type that lacks required hooks.
type MissingCapabilityError struct {
	Entry   string
	Missing []string
}

func (e *MissingCapabilityError) Error() string {
	return fmt.Sprintf("entry %s is missing %s", e.Entry, strings.Join(e.Missing, ", "))
}

// RuntimeFault wraps an error raised inside running script code.
type RuntimeFault struct {
	Hook string
	Err  error
}

func (e *RuntimeFault) Error() string { return fmt.Sprintf("%s: %v", e.Hook, e.Err) }
func (e *RuntimeFault) Unwrap() error { return e.Err }
