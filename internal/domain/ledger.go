package domain

// Ledger holds the votes cast for the current question. All operations are
// value-level: they return a fresh ledger and never mutate the receiver's
// backing array, so callers can keep old snapshots safely.
type Ledger []Vote

// Cast replaces any existing vote by the participant and appends the new
// one. Option indexes are not range-checked here; out-of-range votes simply
// score as incorrect.
func (l Ledger) Cast(participantID string, optionIndex int) Ledger {
	next := make(Ledger, 0, len(l)+1)
	for _, v := range l {
		if v.ParticipantID != participantID {
			next = append(next, v)
		}
	}
	return append(next, Vote{ParticipantID: participantID, OptionIndex: optionIndex})
}

// Retract removes the participant's vote, if present.
func (l Ledger) Retract(participantID string) Ledger {
	next := make(Ledger, 0, len(l))
	for _, v := range l {
		if v.ParticipantID != participantID {
			next = append(next, v)
		}
	}
	return next
}

// VoteOf returns the participant's vote, if any.
func (l Ledger) VoteOf(participantID string) (Vote, bool) {
	for _, v := range l {
		if v.ParticipantID == participantID {
			return v, true
		}
	}
	return Vote{}, false
}

// IsComplete reports whether every given participant has exactly one vote.
func (l Ledger) IsComplete(participants []Participant) bool {
	for _, p := range participants {
		count := 0
		for _, v := range l {
			if v.ParticipantID == p.ID {
				count++
			}
		}
		if count != 1 {
			return false
		}
	}
	return true
}

// VotesFor returns, in cast order, the ids of participants who chose the option.
func (l Ledger) VotesFor(optionIndex int) []string {
	ids := make([]string, 0, len(l))
	for _, v := range l {
		if v.OptionIndex == optionIndex {
			ids = append(ids, v.ParticipantID)
		}
	}
	return ids
}
