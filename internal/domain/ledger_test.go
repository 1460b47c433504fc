package domain

import (
	"math/rand"
	"testing"
)

func TestCastReplacesExistingVote(t *testing.T) {
	var ledger Ledger
	ledger = ledger.Cast("p1", 0)
	ledger = ledger.Cast("p2", 1)
	ledger = ledger.Cast("p1", 2)

	if len(ledger) != 2 {
		t.Fatalf("expected 2 votes after replacement, got %d", len(ledger))
	}
	vote, ok := ledger.VoteOf("p1")
	if !ok || vote.OptionIndex != 2 {
		t.Fatalf("expected p1 vote replaced with option 2, got %+v", vote)
	}
}

func TestCastNeverDuplicates(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ids := []string{"p1", "p2", "p3", "p4"}

	var ledger Ledger
	for i := 0; i < 200; i++ {
		ledger = ledger.Cast(ids[rng.Intn(len(ids))], rng.Intn(3))
		seen := make(map[string]int)
		for _, v := range ledger {
			seen[v.ParticipantID]++
		}
		for id, count := range seen {
			if count != 1 {
				t.Fatalf("participant %s has %d entries after cast %d", id, count, i)
			}
		}
	}
}

func TestRetractVote(t *testing.T) {
	ledger := Ledger{}.Cast("p1", 0).Cast("p2", 1)

	ledger = ledger.Retract("p1")
	if _, ok := ledger.VoteOf("p1"); ok {
		t.Fatalf("expected p1 vote removed")
	}
	if len(ledger) != 1 {
		t.Fatalf("expected 1 vote left, got %d", len(ledger))
	}

	// Retracting an absent vote is a no-op.
	if got := ledger.Retract("p3"); len(got) != 1 {
		t.Fatalf("retract of absent vote changed ledger: %d votes", len(got))
	}
}

func TestIsCompleteOverPermutations(t *testing.T) {
	participants := []Participant{{ID: "p1"}, {ID: "p2"}, {ID: "p3"}}
	orders := [][]string{
		{"p1", "p2", "p3"},
		{"p3", "p1", "p2"},
		{"p2", "p3", "p1"},
	}

	for _, order := range orders {
		var ledger Ledger
		for i, id := range order {
			if ledger.IsComplete(participants) {
				t.Fatalf("ledger complete with only %d votes (order %v)", i, order)
			}
			ledger = ledger.Cast(id, 0)
		}
		if !ledger.IsComplete(participants) {
			t.Fatalf("ledger should be complete after order %v", order)
		}
	}
}

func TestIsCompleteIgnoresStrangers(t *testing.T) {
	participants := []Participant{{ID: "p1"}}
	ledger := Ledger{}.Cast("ghost", 0)
	if ledger.IsComplete(participants) {
		t.Fatalf("vote from unknown id should not complete the ledger")
	}
}

func TestVotesForPreservesOrder(t *testing.T) {
	ledger := Ledger{}.Cast("p1", 0).Cast("p2", 1).Cast("p3", 0).Cast("p4", 0)

	got := ledger.VotesFor(0)
	want := []string{"p1", "p3", "p4"}
	if len(got) != len(want) {
		t.Fatalf("expected %d voters, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected voter order %v, got %v", want, got)
		}
	}
}

func TestCastDoesNotMutateSnapshot(t *testing.T) {
	base := Ledger{}.Cast("p1", 0)
	snapshot := base

	_ = base.Cast("p2", 1)
	_ = base.Retract("p1")

	if len(snapshot) != 1 || snapshot[0].ParticipantID != "p1" {
		t.Fatalf("earlier snapshot changed: %+v", snapshot)
	}
}
