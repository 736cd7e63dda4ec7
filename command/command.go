package command

import "context"

// DefaultShell is the shell used to run a Command's cmd string when the
// caller does not supply one, matching the original source's
// DEFAULT_SHELL constant. Windows is out of scope, exactly as it was in
// the original source.
var DefaultShell = []string{"/bin/sh", "-c"}

// Command represents a shell command to be executed on a host. It carries
// no host reference of its own — callers exec it through a host.Host,
// which is what decides whether it runs via Spawn (Local) or is shipped
// over the wire as a RequestExec (Remote).
type Command struct {
	Args []string
}

// New builds a Command that runs cmd through shell (or DefaultShell if
// shell is nil).
func New(cmd string, shell []string) Command {
	if shell == nil {
		shell = DefaultShell
	}
	args := make([]string, 0, len(shell)+1)
	args = append(args, shell...)
	args = append(args, cmd)
	return Command{Args: args}
}

// Exec runs the command locally and returns its Child immediately; the
// caller is responsible for draining Lines() (directly, or via Result) to
// learn the ExitStatus.
func (c Command) Exec(ctx context.Context) (*Child, error) {
	return Spawn(ctx, c.Args)
}

// RequestExec is the wire payload for the Command endpoint's only
// operation, matching the original source's RequestExec struct.
type RequestExec struct {
	Cmd []string `json:"cmd"`
}
