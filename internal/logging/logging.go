// Package logging builds the structured logger threaded through
// cmd/hostagentd, agentsrv, and the host layer, generalizing the
// teacher's plain log.Printf call sites (internal/server, cmd/llmrouter)
// into logrus fields the way the original source's env_logger/log! macro
// call sites (info!, debug!, error! throughout host/remote.rs and
// agent/src/main.rs) carry structured context.
package logging

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// New builds a *logrus.Logger at the given level (debug/info/warn/error),
// matching the HOSTAGENT_LOG_LEVEL / --log-level knob from spec §6's CLI
// surface.
func New(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	log := logrus.New()
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log, nil
}
