// Package agentsrv implements the TCP agent described in spec §4.8: one
// goroutine per accepted connection, each serving requests against a
// fresh host.Local over the line-framed wire protocol. Grounded on the
// original source's agent/src/main.rs (Api/NewApi, Tokio's TcpServer),
// generalized from a tokio_proto pipeline service to a plain net.Listener
// accept loop plus per-connection goroutines — Go's natural analogue of
// "one event loop per connection" for a non-reactor runtime (spec §5).
package agentsrv

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/google/uuid"
	"github.com/gravitational/trace"
	"github.com/sirupsen/logrus"

	"github.com/petehayes102/hostagent/host"
	"github.com/petehayes102/hostagent/hosterrors"
	"github.com/petehayes102/hostagent/internal/metrics"
	"github.com/petehayes102/hostagent/protocol"
	"github.com/petehayes102/hostagent/request"
)

// Server accepts connections on a TCP listener and serves the host agent
// protocol on each.
type Server struct {
	log     *logrus.Logger
	metrics *metrics.Metrics

	listener net.Listener
}

// New builds a Server. log and m are attached as fields and threaded
// through every connection handler, matching the teacher's pattern of
// attaching shared dependencies to a Server struct (internal/server's
// Server{cfg, models}).
func New(log *logrus.Logger, m *metrics.Metrics) *Server {
	return &Server{log: log, metrics: m}
}

// ListenAndServe binds addr and serves connections until ctx is
// cancelled or Accept fails. It blocks; callers typically run it in its
// own goroutine or as the last call in main.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return trace.Wrap(err, fmt.Sprintf("could not listen on %s", addr))
	}
	s.listener = ln
	s.log.WithField("addr", addr).Info("hostagent listening")

	return s.serveAccepted(ctx)
}

// serveAccepted runs the accept loop against s.listener, which must
// already be set. Split out from ListenAndServe so tests can bind a
// listener on an ephemeral port themselves and drive the loop directly.
func (s *Server) serveAccepted(ctx context.Context) error {
	ln := s.listener

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return trace.Wrap(err, "accept failed")
		}
		go s.handleConn(ctx, conn)
	}
}

// handleConn serves requests on conn until it errs or the client closes
// it. Each connection gets its own Local host (its own telemetry probe
// and provider table), matching NewApi::new_service's per-connection
// Local::new in the original source.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer conn.Close()

	log := s.log.WithField("conn", uuid.NewString())
	log.Info("connection accepted")
	defer log.Info("connection closed")

	local, err := host.NewLocal(connCtx)
	if err != nil {
		if unavailable, ok := hosterrors.IsProviderUnavailable(err); ok {
			s.metrics.ProviderUnavailable.WithLabelValues(unavailable.Endpoint).Inc()
		}
		log.WithError(err).Error("could not build local host")
		return
	}

	dec := protocol.NewDecoder(conn)
	enc := protocol.NewEncoder(conn)

	for {
		if err := s.serveOne(connCtx, log, local, dec, enc); err != nil {
			if err != io.EOF {
				log.WithError(err).Warn("connection ended")
			}
			return
		}
	}
}

// serveOne reads, dispatches, and answers exactly one request. A
// malformed or failed request is reported as an {"Err": message} envelope
// without returning an error — per spec §5, only a transport-level
// failure (a broken frame, a write that can't be delivered) ends the
// connection.
func (s *Server) serveOne(ctx context.Context, log *logrus.Entry, local *host.Local, dec *protocol.Decoder, enc *protocol.Encoder) error {
	msg, err := protocol.ReadMessage(dec)
	if err != nil {
		return err
	}
	if msg.HasBody {
		// Requests never carry a body (see request.Marshal); a client
		// that claims otherwise is violating the protocol, but draining
		// rather than aborting keeps the codec in a recoverable state.
		_ = msg.Body.Drain()
	}

	req, reqErr := request.Unmarshal(msg.Header)
	var resp request.Response
	var execErr error
	if reqErr != nil {
		execErr = reqErr
	} else {
		resp, execErr = local.Request(ctx, req)
		if execErr == nil && resp.Child != nil {
			s.metrics.CommandsExecuted.WithLabelValues(fmt.Sprintf("%T", req)).Inc()
		}
	}

	if execErr != nil {
		log.WithError(execErr).Warn("request failed")
	}

	return request.WriteResponse(enc, resp, execErr)
}
