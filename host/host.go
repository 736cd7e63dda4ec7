// Package host implements the two Host types described in spec §4.7: a
// Local host that runs requests directly against this machine's own
// provider table, and a Remote host that forwards them to an agent over
// the wire protocol. Both satisfy the same Host interface, so application
// code (and the request variants' Exec methods, via the narrower Executor
// interface in package request) never needs to know which one it holds.
package host

import (
	"context"

	"github.com/petehayes102/hostagent/request"
)

// Host is the uniform entry point spec §4.7 describes: run a Request and
// get back its Response, whether that means executing it in-process
// (Local) or round-tripping it to a remote agent (Remote).
type Host interface {
	Request(ctx context.Context, req request.Request) (request.Response, error)
}
