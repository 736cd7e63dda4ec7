// Package hosterrors defines the error taxonomy shared by every layer of
// the host agent: the wire protocol, the provider registry, and the
// package/service endpoints. Every kind wraps the underlying cause with
// trace.Wrap so the chain survives the hop across the wire as a flattened
// string (see Display).
package hosterrors

import (
	"errors"
	"fmt"

	"github.com/gravitational/trace"
)

// Malformed means a request could not be parsed off the wire.
type Malformed struct {
	Cause error
}

func (e *Malformed) Error() string {
	return fmt.Sprintf("Could not deserialize Request: %v", e.Cause)
}

func (e *Malformed) Unwrap() error { return e.Cause }

// NewMalformed wraps a decode error as Malformed.
func NewMalformed(cause error) error {
	return trace.Wrap(&Malformed{Cause: cause})
}

// Request is the client-side breadcrumb wrapper: it names the endpoint and
// function that failed, and wraps whatever lower-level error caused it.
// It mirrors the Rust source's `ErrorKind::Request { endpoint, func }`,
// attached via `.chain_err()` at every Command/Package/Service call site.
type Request struct {
	Endpoint string
	Func     string
	Cause    error
}

func (e *Request) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Endpoint, e.Func, e.Cause)
}

func (e *Request) Unwrap() error { return e.Cause }

// WrapRequest attaches endpoint/func breadcrumbs to cause, or returns nil
// if cause is nil.
func WrapRequest(cause error, endpoint, fn string) error {
	if cause == nil {
		return nil
	}
	return trace.Wrap(&Request{Endpoint: endpoint, Func: fn, Cause: cause})
}

// Command means a subprocess exited non-zero. Output carries the
// interleaved stdout/stderr collected before the command finished.
type Command struct {
	Output string
}

func (e *Command) Error() string {
	return fmt.Sprintf("command failed: %s", e.Output)
}

// NewCommand builds a Command error carrying the collected output.
func NewCommand(output string) error {
	return trace.Wrap(&Command{Output: output})
}

// IsCommand reports whether err is (or wraps) a Command error, and returns
// the collected output if so.
func IsCommand(err error) (*Command, bool) {
	var c *Command
	if errors.As(err, &c) {
		return c, true
	}
	return nil, false
}

// SystemCommand means a system helper process (service, systemctl, dpkg,
// chkconfig, sysrc, launchctl, ...) failed at the process level — it
// couldn't even be run, or exited in a way that carries no useful output.
type SystemCommand struct {
	Cmdline string
	Cause   error
}

func (e *SystemCommand) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("system command %q failed: %v", e.Cmdline, e.Cause)
	}
	return fmt.Sprintf("system command %q failed", e.Cmdline)
}

func (e *SystemCommand) Unwrap() error { return e.Cause }

// NewSystemCommand wraps a process-level failure of a system helper.
func NewSystemCommand(cmdline string, cause error) error {
	return trace.Wrap(&SystemCommand{Cmdline: cmdline, Cause: cause})
}

// SystemFile means a required system file was missing.
type SystemFile struct {
	Path  string
	Cause error
}

func (e *SystemFile) Error() string {
	return fmt.Sprintf("system file %q: %v", e.Path, e.Cause)
}

func (e *SystemFile) Unwrap() error { return e.Cause }

// NewSystemFile wraps a missing/unreadable system file.
func NewSystemFile(path string, cause error) error {
	return trace.Wrap(&SystemFile{Path: path, Cause: cause})
}

// SystemFileOutput means a required system file existed but couldn't be
// parsed into the shape the caller expected.
type SystemFileOutput struct {
	Path  string
	Cause error
}

func (e *SystemFileOutput) Error() string {
	return fmt.Sprintf("system file %q had unexpected contents: %v", e.Path, e.Cause)
}

func (e *SystemFileOutput) Unwrap() error { return e.Cause }

// NewSystemFileOutput wraps a system file whose contents failed to parse.
func NewSystemFileOutput(path string, cause error) error {
	return trace.Wrap(&SystemFileOutput{Path: path, Cause: cause})
}

// ProviderUnavailable means no provider registered against an endpoint
// satisfied its availability predicate on this host.
type ProviderUnavailable struct {
	Endpoint string
}

func (e *ProviderUnavailable) Error() string {
	return fmt.Sprintf("no provider available for endpoint %q", e.Endpoint)
}

// NewProviderUnavailable builds a ProviderUnavailable error for endpoint.
func NewProviderUnavailable(endpoint string) error {
	return trace.Wrap(&ProviderUnavailable{Endpoint: endpoint})
}

// IsProviderUnavailable reports whether err is (or wraps) a
// ProviderUnavailable error, and returns it if so.
func IsProviderUnavailable(err error) (*ProviderUnavailable, bool) {
	var p *ProviderUnavailable
	if errors.As(err, &p) {
		return p, true
	}
	return nil, false
}

// Remote means the remote agent returned an Err(message) response
// envelope. The message has already been flattened to a string on the
// other end (see Display), so there is no further chain to unwrap.
type Remote struct {
	Message string
}

func (e *Remote) Error() string {
	return fmt.Sprintf("remote: %s", e.Message)
}

// NewRemote builds a Remote error from a decoded Err(message) envelope.
func NewRemote(message string) error {
	return trace.Wrap(&Remote{Message: message})
}

// Regex means a provider's scraping regex failed to compile. This should
// only ever happen with a hand-authored provider whose pattern has a typo.
// The apt and dnf/yum patterns are exercised by unit tests; the homebrew
// package pattern is not.
type Regex struct {
	Cause error
}

func (e *Regex) Error() string {
	return fmt.Sprintf("invalid provider regex: %v", e.Cause)
}

func (e *Regex) Unwrap() error { return e.Cause }

// NewRegex wraps a regexp.Compile failure.
func NewRegex(cause error) error {
	return trace.Wrap(&Regex{Cause: cause})
}

// Display renders the full cause chain of err to a single string, the Go
// analogue of error_chain::ChainedError::display_chain() used throughout
// the original source (e.g. agent/src/main.rs's error_to_msg, every
// provider's `factory()` call site). This is what crosses the wire inside
// an Err(message) response envelope — never a stack trace, per the
// no-stack-traces-on-the-wire rule.
func Display(err error) string {
	if err == nil {
		return ""
	}
	return trace.Wrap(err).Error()
}
