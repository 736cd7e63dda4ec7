package command

import (
	"bytes"
	"context"
	"testing"

	"github.com/petehayes102/hostagent/hosterrors"
	"github.com/petehayes102/hostagent/protocol"
)

func TestSpawn_ResultSuccess(t *testing.T) {
	cmd := New(`printf 'a\nb\n'`, nil)
	child, err := cmd.Exec(context.Background())
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}

	output, err := child.Result(context.Background())
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if output != "ab" {
		t.Errorf("output = %q, want %q", output, "ab")
	}
}

func TestSpawn_ResultFailureCarriesOutput(t *testing.T) {
	cmd := New(`echo boom; exit 3`, nil)
	child, err := cmd.Exec(context.Background())
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}

	_, err = child.Result(context.Background())
	if err == nil {
		t.Fatal("expected a Command error for a non-zero exit")
	}
	cmdErr, ok := hosterrors.IsCommand(err)
	if !ok {
		t.Fatalf("err = %v, want a hosterrors.Command", err)
	}
	if cmdErr.Output != "boom" {
		t.Errorf("Output = %q, want %q", cmdErr.Output, "boom")
	}
}

func TestSpawn_Lines(t *testing.T) {
	cmd := New(`printf 'one\ntwo\nthree\n'`, nil)
	child, err := cmd.Exec(context.Background())
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}

	var got []string
	for line := range child.Lines() {
		got = append(got, line.Text)
	}
	status, err := child.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !status.Success {
		t.Errorf("Success = false, want true")
	}
	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWriteChildBody_ChildFromBody_RoundTrip(t *testing.T) {
	cmd := New(`printf 'hello\nworld\n'`, nil)
	child, err := cmd.Exec(context.Background())
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}

	var buf bytes.Buffer
	enc := protocol.NewEncoder(&buf)
	if err := enc.WriteHeader(nil, true); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}
	if err := WriteChildBody(enc, child); err != nil {
		t.Fatalf("WriteChildBody: %v", err)
	}

	dec := protocol.NewDecoder(&buf)
	msg, err := protocol.ReadMessage(dec)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if !msg.HasBody {
		t.Fatal("expected a body")
	}

	remote := ChildFromBody(msg.Body)
	var got []string
	for line := range remote.Lines() {
		got = append(got, line.Text)
	}
	status, err := remote.Wait(context.Background())
	if err != nil {
		t.Fatalf("remote Wait: %v", err)
	}
	if !status.Success {
		t.Errorf("Success = false, want true")
	}
	if len(got) != 2 || got[0] != "hello" || got[1] != "world" {
		t.Errorf("got %v, want [hello world]", got)
	}
}

func TestChildFromBody_StreamDroppedBeforeExitStatus(t *testing.T) {
	var buf bytes.Buffer
	enc := protocol.NewEncoder(&buf)
	enc.WriteHeader(nil, true)
	enc.WriteChunk([]byte("partial output"))
	enc.WriteEnd() // no ExitStatus sentinel before end-of-body

	dec := protocol.NewDecoder(&buf)
	msg, err := protocol.ReadMessage(dec)
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}

	child := ChildFromBody(msg.Body)
	for range child.Lines() {
	}
	_, err = child.Wait(context.Background())
	if err == nil {
		t.Fatal("expected an error when the stream ends without an ExitStatus")
	}
}
