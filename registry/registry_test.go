package registry

import (
	"errors"
	"testing"

	"github.com/petehayes102/hostagent/hosterrors"
)

func TestSelect_FirstMatchWins(t *testing.T) {
	var built []string
	candidates := []Candidate[string]{
		{Name: "a", Available: func() bool { return false }, New: func() string { built = append(built, "a"); return "a" }},
		{Name: "b", Available: func() bool { return true }, New: func() string { built = append(built, "b"); return "b" }},
		{Name: "c", Available: func() bool { return true }, New: func() string { built = append(built, "c"); return "c" }},
	}

	got, err := Select("Example", candidates)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got != "b" {
		t.Errorf("Select = %q, want %q", got, "b")
	}
	if len(built) != 1 || built[0] != "b" {
		t.Errorf("built = %v, want only [b] — later candidates must not be constructed", built)
	}
}

func TestSelect_NoneAvailable(t *testing.T) {
	_, err := Select("Example", []Candidate[string]{
		{Name: "a", Available: func() bool { return false }, New: func() string { return "a" }},
	})
	if err == nil {
		t.Fatal("expected a ProviderUnavailable error")
	}
	var unavailable *hosterrors.ProviderUnavailable
	if !errors.As(err, &unavailable) {
		t.Fatalf("err = %v, want *hosterrors.ProviderUnavailable", err)
	}
	if unavailable.Endpoint != "Example" {
		t.Errorf("Endpoint = %q, want %q", unavailable.Endpoint, "Example")
	}
}
