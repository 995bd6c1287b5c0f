package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/looplab/fsm"
)

func TestWrapGuardCancelsTransition(t *testing.T) {
	stepErr := errors.New("step failed")
	fail := true

	m := fsm.NewFSM("start",
		fsm.Events{{Name: "go", Src: []string{"start"}, Dst: "done"}},
		fsm.Callbacks{
			"before_go": WrapGuard(func(context.Context, *fsm.Event) error {
				if fail {
					return stepErr
				}
				return nil
			}),
		},
	)

	err := m.Event(context.Background(), "go")
	if got := CancelCause(err); !errors.Is(got, stepErr) {
		t.Fatalf("CancelCause() = %v, want %v", got, stepErr)
	}
	if m.Current() != "start" {
		t.Errorf("state = %s after a cancelled transition", m.Current())
	}

	fail = false
	if err := m.Event(context.Background(), "go"); err != nil {
		t.Fatalf("Event() error: %v", err)
	}
	if m.Current() != "done" {
		t.Errorf("state = %s, want done", m.Current())
	}
}

func TestCancelCausePassesOtherErrors(t *testing.T) {
	other := fsm.InvalidEventError{Event: "go", State: "done"}
	if got := CancelCause(other); got != error(other) {
		t.Errorf("CancelCause() = %v", got)
	}
	if CancelCause(nil) != nil {
		t.Error("CancelCause(nil) != nil")
	}
}
