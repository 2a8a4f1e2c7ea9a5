package gamerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	err := NotFound("room %s not found", "r-1")
	if CodeOf(err) != CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", CodeOf(err))
	}
	if err.Error() != "room r-1 not found" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestCodeOfWrapped(t *testing.T) {
	err := fmt.Errorf("handling request: %w", Conflict("room full"))
	if CodeOf(err) != CodeConflict {
		t.Fatalf("code should survive wrapping, got %s", CodeOf(err))
	}
	if !Is(err, CodeConflict) {
		t.Fatal("Is should match through wrapping")
	}
}

func TestCodeOfForeignError(t *testing.T) {
	if CodeOf(errors.New("plain")) != "" {
		t.Fatal("foreign errors carry no code")
	}
	if CodeOf(nil) != "" {
		t.Fatal("nil carries no code")
	}
}
