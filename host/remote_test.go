package host

import (
	"context"
	"encoding/json"
	"net"
	"testing"

	"github.com/petehayes102/hostagent/protocol"
	"github.com/petehayes102/hostagent/request"
)

// agentLoop is a minimal stand-in for agentsrv.Server: it reads one
// request off conn and writes back a canned envelope, just enough to
// exercise Remote's wire handling without a real listener.
func agentLoop(t *testing.T, conn net.Conn, header []byte, hasBody bool, chunks ...string) {
	t.Helper()
	dec := protocol.NewDecoder(conn)
	enc := protocol.NewEncoder(conn)

	msg, err := protocol.ReadMessage(dec)
	if err != nil {
		t.Errorf("agentLoop: ReadMessage: %v", err)
		return
	}
	if msg.HasBody {
		if err := msg.Body.Drain(); err != nil {
			t.Errorf("agentLoop: Drain: %v", err)
		}
	}

	if err := enc.WriteHeader(json.RawMessage(header), hasBody); err != nil {
		t.Errorf("agentLoop: WriteHeader: %v", err)
		return
	}
	for _, c := range chunks {
		if err := enc.WriteChunk([]byte(c)); err != nil {
			t.Errorf("agentLoop: WriteChunk: %v", err)
			return
		}
	}
	if hasBody {
		if err := enc.WriteEnd(); err != nil {
			t.Errorf("agentLoop: WriteEnd: %v", err)
		}
	}
}

func newTestRemote(conn net.Conn) *Remote {
	return &Remote{conn: conn, enc: protocol.NewEncoder(conn), dec: protocol.NewDecoder(conn)}
}

func TestRemote_Request_ValueResponse(t *testing.T) {
	client, agent := net.Pipe()
	defer client.Close()
	defer agent.Close()

	go agentLoop(t, agent, []byte(`{"Ok":true}`), false)

	r := newTestRemote(client)
	resp, err := r.Request(context.Background(), request.PackageInstalled{Name: "nginx"})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	var installed bool
	if err := json.Unmarshal(resp.Value, &installed); err != nil {
		t.Fatalf("decoding Value: %v", err)
	}
	if !installed {
		t.Errorf("installed = false, want true")
	}
}

func TestRemote_Request_ChildResponse(t *testing.T) {
	client, agent := net.Pipe()
	defer client.Close()
	defer agent.Close()

	go agentLoop(t, agent, []byte(`{"Ok":null}`), true, "hello", `ExitStatus:{"success":true,"code":0}`)

	r := newTestRemote(client)
	resp, err := r.Request(context.Background(), request.CommandExec{Cmd: []string{"/bin/sh", "-c", "echo hello"}})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if resp.Child == nil {
		t.Fatal("expected a non-nil Child")
	}
	out, err := resp.Child.Result(context.Background())
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if out != "hello" {
		t.Errorf("output = %q, want %q", out, "hello")
	}
}

func TestRemote_Request_ErrResponseBecomesRemoteError(t *testing.T) {
	client, agent := net.Pipe()
	defer client.Close()
	defer agent.Close()

	go agentLoop(t, agent, []byte(`{"Err":"provider unavailable: Package"}`), false)

	r := newTestRemote(client)
	_, err := r.Request(context.Background(), request.PackageInstalled{Name: "nginx"})
	if err == nil {
		t.Fatal("expected an error")
	}
}
