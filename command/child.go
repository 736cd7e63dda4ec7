package command

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"github.com/gravitational/trace"

	"github.com/petehayes102/hostagent/hosterrors"
	"github.com/petehayes102/hostagent/protocol"
)

// Line is one chunk of a Child's combined output stream: either stdout or
// stderr, tagged so callers that care can tell them apart (the original
// source's Stream::select merges both into one untagged sequence; we keep
// that as the default view via Lines() while retaining the source tag).
type Line struct {
	Text   string
	Stderr bool
}

// Child represents the status of a running command: a stream of output
// lines and a single ExitStatus delivered once, after the stream is
// exhausted. It is grounded on the original source's command/child.rs
// Child type, generalized from a tokio_process::Child plus a oneshot
// channel into goroutines over os/exec and a buffered Go channel.
//
// Exactly one of two things eventually happens to exitStatus: a value is
// sent, or the channel is closed without a send (the process could not be
// waited on). Callers learn which by checking the ok value from a channel
// receive, exactly like the original's "stream dropped before ExitStatus
// was sent" condition.
type Child struct {
	lines      <-chan Line
	exitStatus <-chan ExitStatus
	waitErr    <-chan error
}

// Lines returns the child's combined stdout/stderr stream. It must be
// drained before ExitStatus can resolve — this mirrors the wire protocol,
// where the ExitStatus sentinel is the final frame of the same body
// stream, and is deliberate: a caller that discards the stream without
// reading it will never learn whether the command succeeded.
func (c *Child) Lines() <-chan Line { return c.lines }

// DiscardAndWait drains Lines() without collecting them and returns the
// resulting ExitStatus. Use this instead of Wait whenever the caller only
// cares about success/failure, not output — Wait alone never reads
// Lines(), so a command that writes any output would otherwise block
// forever on the unbuffered channel with nobody receiving (see spec §5's
// backpressure note on why the line channel must always be drained).
func (c *Child) DiscardAndWait(ctx context.Context) (ExitStatus, error) {
	for {
		select {
		case _, ok := <-c.lines:
			if !ok {
				return c.finishStatus(ctx)
			}
		case <-ctx.Done():
			return ExitStatus{}, trace.Wrap(ctx.Err())
		}
	}
}

// finishStatus is finish without building an output string, used by
// DiscardAndWait.
func (c *Child) finishStatus(ctx context.Context) (ExitStatus, error) {
	select {
	case status, ok := <-c.exitStatus:
		if !ok {
			err := <-c.waitErr
			if err == nil {
				err = trace.Errorf("stream dropped before ExitStatus was sent")
			}
			return ExitStatus{}, err
		}
		return status, nil
	case <-ctx.Done():
		return ExitStatus{}, trace.Wrap(ctx.Err())
	}
}

// Wait blocks until the process exits, returning its ExitStatus. ctx
// cancellation only stops Wait from waiting further — it does not kill the
// underlying process, matching the original source's semantics where the
// stream consumer, not Wait, owns cancellation.
//
// Wait does not drain Lines() itself — call DiscardAndWait instead if the
// output stream has not already been consumed by some other means.
func (c *Child) Wait(ctx context.Context) (ExitStatus, error) {
	select {
	case status, ok := <-c.exitStatus:
		if !ok {
			err := <-c.waitErr
			if err == nil {
				err = trace.Errorf("stream dropped before ExitStatus was sent")
			}
			return ExitStatus{}, err
		}
		return status, nil
	case <-ctx.Done():
		return ExitStatus{}, trace.Wrap(ctx.Err())
	}
}

// Result drains the stream into a single string and resolves to a
// CommandResult the way the original source's Child::result does: success
// yields the collected output, failure yields a hosterrors.Command error
// carrying the same output.
func (c *Child) Result(ctx context.Context) (string, error) {
	var output []byte
	for {
		select {
		case line, ok := <-c.lines:
			if !ok {
				return c.finish(ctx, output)
			}
			output = append(output, line.Text...)
		case <-ctx.Done():
			return "", trace.Wrap(ctx.Err())
		}
	}
}

// LineResult drains the stream like Result, but joins collected lines with
// "\n" instead of concatenating their raw text. Query commands (package
// installed-checks, service enabled-checks) need real line boundaries
// preserved so their ^/$-anchored regexes behave correctly against a
// multi-entry listing — the original source's provider queries (e.g.
// apt.rs's Apt::installed) capture raw process output directly via
// output_async rather than going through the line-folding Child::result
// stream, and this is the Go equivalent for callers built on Child.
func (c *Child) LineResult(ctx context.Context) (string, error) {
	var lines []string
	for {
		select {
		case line, ok := <-c.lines:
			if !ok {
				return c.finishLines(ctx, lines)
			}
			lines = append(lines, line.Text)
		case <-ctx.Done():
			return "", trace.Wrap(ctx.Err())
		}
	}
}

// finishLines is finish's counterpart for LineResult: it joins lines with
// "\n" instead of building a raw concatenated string.
func (c *Child) finishLines(ctx context.Context, lines []string) (string, error) {
	output := strings.Join(lines, "\n")
	select {
	case status, ok := <-c.exitStatus:
		if !ok {
			err := <-c.waitErr
			if err == nil {
				err = trace.Errorf("stream dropped before ExitStatus was sent")
			}
			return "", err
		}
		if !status.Success {
			return "", hosterrors.NewCommand(output)
		}
		return output, nil
	case <-ctx.Done():
		return "", trace.Wrap(ctx.Err())
	}
}

// finish waits for the ExitStatus that follows a fully drained line
// stream, translating a non-zero exit into a hosterrors.Command error
// carrying the output collected so far.
func (c *Child) finish(ctx context.Context, output []byte) (string, error) {
	select {
	case status, ok := <-c.exitStatus:
		if !ok {
			err := <-c.waitErr
			if err == nil {
				err = trace.Errorf("stream dropped before ExitStatus was sent")
			}
			return "", err
		}
		if !status.Success {
			return "", hosterrors.NewCommand(string(output))
		}
		return string(output), nil
	case <-ctx.Done():
		return "", trace.Wrap(ctx.Err())
	}
}

// Spawn starts cmd[0] with cmd[1:] as arguments and returns a Child
// streaming its combined output. It is the Go analogue of the original
// source's Generic command provider (command/providers/generic.rs),
// generalized from tokio_process::Command::spawn_async to os/exec plus two
// reader goroutines fanned into one channel.
func Spawn(ctx context.Context, cmd []string) (*Child, error) {
	if len(cmd) == 0 {
		return nil, trace.BadParameter("command: no executable given")
	}

	proc := exec.CommandContext(ctx, cmd[0], cmd[1:]...)
	// A disconnected client cancels this command's context (see
	// agentsrv's per-connection context), and spec §5 asks for SIGTERM,
	// not the default SIGKILL exec.CommandContext sends on cancellation.
	proc.Cancel = func() error {
		return proc.Process.Signal(syscall.SIGTERM)
	}

	stdout, err := proc.StdoutPipe()
	if err != nil {
		return nil, trace.Wrap(err, "command execution failed")
	}
	stderr, err := proc.StderrPipe()
	if err != nil {
		return nil, trace.Wrap(err, "command execution failed")
	}

	if err := proc.Start(); err != nil {
		return nil, trace.Wrap(err, "command execution failed")
	}

	lines := make(chan Line)
	exitStatus := make(chan ExitStatus, 1)
	waitErr := make(chan error, 1)

	var wg sync.WaitGroup
	wg.Add(2)
	go fanInLines(&wg, lines, stdout, false)
	go fanInLines(&wg, lines, stderr, true)

	go func() {
		wg.Wait()
		close(lines)

		err := proc.Wait()
		status := ExitStatus{Success: proc.ProcessState.Success()}
		if code := proc.ProcessState.ExitCode(); code >= 0 {
			c := code
			status.Code = &c
		}
		if err != nil {
			if _, isExit := err.(*exec.ExitError); !isExit {
				waitErr <- trace.Wrap(err, "command execution failed")
				close(exitStatus)
				return
			}
		}
		exitStatus <- status
		close(exitStatus)
	}()

	return &Child{lines: lines, exitStatus: exitStatus, waitErr: waitErr}, nil
}

func fanInLines(wg *sync.WaitGroup, out chan<- Line, r io.Reader, stderr bool) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		out <- Line{Text: scanner.Text(), Stderr: stderr}
	}
}

// ChildFromBody adapts a message body stream read off the wire into a
// Child, the remote-side counterpart of Spawn. It is grounded on the
// original source's Child::from_msg: the body is a single stream of output
// lines with the ExitStatus sentinel heuristically spliced in as the final
// element, and this function splits the two back apart using a buffered
// channel in place of a oneshot.
func ChildFromBody(body *protocol.BodyReader) *Child {
	lines := make(chan Line)
	exitStatus := make(chan ExitStatus, 1)
	waitErr := make(chan error, 1)

	go func() {
		defer close(lines)
		for {
			chunk, ok, err := body.Next()
			if err != nil {
				waitErr <- trace.Wrap(err, "command execution failed")
				close(exitStatus)
				return
			}
			if !ok {
				waitErr <- trace.Errorf("stream dropped before ExitStatus was sent")
				close(exitStatus)
				return
			}

			text := string(chunk)
			if status, isStatus := decodeExitStatus(text); isStatus {
				// Consume the end-of-body line that follows the sentinel so
				// the Decoder is left at the next message's header.
				if err := body.Drain(); err != nil {
					waitErr <- trace.Wrap(err, "command execution failed")
					close(exitStatus)
					return
				}
				exitStatus <- status
				close(exitStatus)
				return
			}
			lines <- Line{Text: text}
		}
	}()

	return &Child{lines: lines, exitStatus: exitStatus, waitErr: waitErr}
}

// WriteChildBody streams child's output followed by its ExitStatus
// sentinel onto enc, the server-side counterpart of ChildFromBody. This is
// what a listening agent calls once it has Spawned a Child locally and
// needs to relay it to a remote caller over the wire.
func WriteChildBody(enc *protocol.Encoder, child *Child) error {
	for line := range child.Lines() {
		if err := enc.WriteChunk([]byte(line.Text)); err != nil {
			return err
		}
	}

	status, err := child.Wait(context.Background())
	if err != nil {
		return err
	}
	sentinel, err := encodeExitStatus(status)
	if err != nil {
		return trace.Wrap(err, "could not serialize ExitStatus")
	}
	if err := enc.WriteChunk([]byte(sentinel)); err != nil {
		return err
	}
	return enc.WriteEnd()
}
