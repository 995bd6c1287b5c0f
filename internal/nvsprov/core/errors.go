package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies why a provisioning run stopped.
type ErrorKind string

const (
	KindInvalidIdentifier  ErrorKind = "InvalidIdentifier"
	KindMissingIdentifier  ErrorKind = "MissingIdentifier"
	KindDeviceUnreachable  ErrorKind = "DeviceUnreachable"
	KindCredentialsMissing ErrorKind = "CredentialsMissing"
	KindGenerationFailed   ErrorKind = "GenerationFailed"
	KindFlashFailed        ErrorKind = "FlashFailed"
)

// Process exit codes. Input problems the user fixes by editing files or flags
// are kept apart from failures reported by the external tools.
const (
	ExitOK          = 0
	ExitInternal    = 1
	ExitUserInput   = 2
	ExitUnreachable = 3
	ExitGeneration  = 4
	ExitFlash       = 5
)

// stderrTail bounds how much captured tool output is carried in an error message.
const stderrTail = 2048

// Error is the terminal error of a provisioning step.
type Error struct {
	Kind ErrorKind
	// Op names the step that failed, e.g. "resolve", "generate".
	Op string
	// Path is the file, directory or port the step was working on.
	Path string
	// ExitCode of the external tool, -1 when no tool ran.
	ExitCode int
	// Stderr captured from the external tool.
	Stderr []byte
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " %s", e.Path)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.ExitCode > 0 {
		fmt.Fprintf(&b, " (exit code %d)", e.ExitCode)
	}
	if tail := e.StderrTail(); tail != "" {
		fmt.Fprintf(&b, "\n%s", tail)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// StderrTail returns the trimmed last part of the captured tool output.
func (e *Error) StderrTail() string {
	s := strings.TrimSpace(string(e.Stderr))
	if len(s) > stderrTail {
		s = "..." + s[len(s)-stderrTail:]
	}
	return s
}

// NewError builds an Error that did not come from an external tool.
func NewError(kind ErrorKind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, ExitCode: -1, Err: err}
}

// NewToolError builds an Error for an external tool that exited unsuccessfully.
func NewToolError(kind ErrorKind, op, path string, exitCode int, stderr []byte, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, ExitCode: exitCode, Stderr: stderr, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// ExitCodeFor maps an error to the process exit code.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	kind, ok := KindOf(err)
	if !ok {
		return ExitInternal
	}
	switch kind {
	case KindInvalidIdentifier, KindMissingIdentifier, KindCredentialsMissing:
		return ExitUserInput
	case KindDeviceUnreachable:
		return ExitUnreachable
	case KindGenerationFailed:
		return ExitGeneration
	case KindFlashFailed:
		return ExitFlash
	default:
		return ExitInternal
	}
}

// Hint returns a short remediation message for the user, or "".
func Hint(err error) string {
	kind, _ := KindOf(err)
	switch kind {
	case KindMissingIdentifier:
		return "Specify the device with --mac <mac> or let it be detected with --port <port>."
	case KindInvalidIdentifier:
		return "A MAC address is six hex octets, e.g. aa:bb:cc:dd:ee:ff or aabbccddeeff."
	case KindDeviceUnreachable:
		return "Check the cable and the --port value, and that no other program holds the port."
	case KindCredentialsMissing:
		return "Place the device certificate and private key into the workspace files and re-run."
	case KindGenerationFailed:
		return "Fix the reported generator input (credentials, --hv) and re-run."
	case KindFlashFailed:
		return "Check the port and the device boot mode, then re-run to flash again."
	}
	return ""
}
