package domain

import "math/rand"

// NextParticipant picks, uniformly at random, a participant who has not yet
// voted in the current round. The second return is false exactly when the
// ledger is complete. Randomness is the "pass the device" mechanism, so the
// source is injected for deterministic tests.
func NextParticipant(rng *rand.Rand, participants []Participant, ledger Ledger) (Participant, bool) {
	candidates := make([]Participant, 0, len(participants))
	for _, p := range participants {
		if _, voted := ledger.VoteOf(p.ID); !voted {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return Participant{}, false
	}
	return candidates[rng.Intn(len(candidates))], true
}
