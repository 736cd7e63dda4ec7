package host

import (
	"context"
	"testing"

	"github.com/petehayes102/hostagent/request"
)

func TestNewLocal_BuildsAQueryableHost(t *testing.T) {
	local, err := NewLocal(context.Background())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	resp, err := local.Request(context.Background(), request.TelemetryLoad{})
	if err != nil {
		t.Fatalf("Request(TelemetryLoad): %v", err)
	}
	if len(resp.Value) == 0 {
		t.Error("expected a non-empty Telemetry value")
	}
}

func TestLocal_CommandExec(t *testing.T) {
	local, err := NewLocal(context.Background())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	resp, err := local.Request(context.Background(), request.CommandExec{Cmd: []string{"/bin/sh", "-c", "echo hi"}})
	if err != nil {
		t.Fatalf("Request(CommandExec): %v", err)
	}
	out, err := resp.Child.Result(context.Background())
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if out != "hi" {
		t.Errorf("output = %q, want %q", out, "hi")
	}
}
