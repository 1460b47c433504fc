package domain

import (
	"errors"
	"testing"
)

func TestMachineFullRoundWalk(t *testing.T) {
	m := NewMachine("p1")
	if m.Phase != PhaseWaitingTurn || m.ActiveID != "p1" {
		t.Fatalf("unexpected initial machine: %+v", m)
	}

	if err := m.BeginTurn(); err != nil {
		t.Fatalf("begin turn: %v", err)
	}
	if err := m.Select(2); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := m.ConfirmToNext("p2"); err != nil {
		t.Fatalf("confirm to next: %v", err)
	}
	if m.ActiveID != "p2" || m.SelectedOption != NoSelection {
		t.Fatalf("expected fresh turn for p2, got %+v", m)
	}

	if err := m.BeginTurn(); err != nil {
		t.Fatalf("begin second turn: %v", err)
	}
	if err := m.Select(0); err != nil {
		t.Fatalf("select second: %v", err)
	}
	if err := m.ConfirmComplete(); err != nil {
		t.Fatalf("confirm complete: %v", err)
	}
	if m.Phase != PhaseAllVoted {
		t.Fatalf("expected ALL_VOTED, got %s", m.Phase)
	}

	if err := m.BeginReveal(); err != nil {
		t.Fatalf("begin reveal: %v", err)
	}
	if err := m.AdvanceToNext("p1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("advance must be blocked while reveal is loading, got %v", err)
	}
	m.FinishReveal()
	if err := m.AdvanceToNext("p1"); err != nil {
		t.Fatalf("advance after reveal: %v", err)
	}
	if m.Phase != PhaseWaitingTurn || m.ActiveID != "p1" {
		t.Fatalf("expected next question waiting for p1, got %+v", m)
	}
}

func TestMachineRevoteFlow(t *testing.T) {
	m := Machine{Phase: PhaseAllVoted, SelectedOption: NoSelection}

	if err := m.StartChange(); err != nil {
		t.Fatalf("start change: %v", err)
	}
	if err := m.CancelChange(); err != nil {
		t.Fatalf("cancel change: %v", err)
	}
	if m.Phase != PhaseAllVoted {
		t.Fatalf("cancel should return to ALL_VOTED, got %s", m.Phase)
	}

	if err := m.StartChange(); err != nil {
		t.Fatalf("start change again: %v", err)
	}
	if err := m.PickRevoter("p2", 1); err != nil {
		t.Fatalf("pick revoter: %v", err)
	}
	if m.Phase != PhaseVoting || m.ActiveID != "p2" || m.SelectedOption != 1 {
		t.Fatalf("expected p2 voting with current option preselected, got %+v", m)
	}
}

func TestMachineFinishAndRestart(t *testing.T) {
	m := Machine{Phase: PhaseRevealing, RevealReady: true}
	if err := m.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if m.Phase != PhaseFinished {
		t.Fatalf("expected FINISHED, got %s", m.Phase)
	}
	if err := m.Restart("p3"); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if m.Phase != PhaseWaitingTurn || m.ActiveID != "p3" {
		t.Fatalf("expected fresh waiting state, got %+v", m)
	}
}

func TestMachineRejectsInvalidActions(t *testing.T) {
	m := NewMachine("p1")

	if err := m.Select(0); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("select outside voting should fail, got %v", err)
	}
	if err := m.ConfirmComplete(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("confirm outside voting should fail, got %v", err)
	}
	if err := m.BeginReveal(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("reveal outside all-voted should fail, got %v", err)
	}
	if err := m.Restart("p1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("restart outside finished should fail, got %v", err)
	}
}

func TestPhaseTransitionTable(t *testing.T) {
	cases := []struct {
		from, to Phase
		ok       bool
	}{
		{PhaseWaitingTurn, PhaseVoting, true},
		{PhaseWaitingTurn, PhaseAllVoted, false},
		{PhaseVoting, PhaseWaitingTurn, true},
		{PhaseVoting, PhaseAllVoted, true},
		{PhaseVoting, PhaseRevealing, false},
		{PhaseAllVoted, PhaseChangingVote, true},
		{PhaseAllVoted, PhaseRevealing, true},
		{PhaseChangingVote, PhaseVoting, true},
		{PhaseChangingVote, PhaseAllVoted, true},
		{PhaseRevealing, PhaseWaitingTurn, true},
		{PhaseRevealing, PhaseFinished, true},
		{PhaseFinished, PhaseWaitingTurn, true},
		{PhaseFinished, PhaseRevealing, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.ok {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}
