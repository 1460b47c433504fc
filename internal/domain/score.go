package domain

import "strings"

// ScoreRound maps a participant's prior streak and this round's correctness
// to the points earned and the updated streak. Points scale with an already
// established streak and cap at 3; the streak itself is uncapped.
func ScoreRound(currentStreak int, correct bool) (points, newStreak int) {
	if !correct {
		return 0, 0
	}
	newStreak = currentStreak + 1
	switch {
	case currentStreak == 0:
		points = 1
	case currentStreak == 1:
		points = 2
	default:
		points = 3
	}
	return points, newStreak
}

// ResolveRound applies one round's outcome to every participant and returns
// the updated slice. Correctness is trimmed, case-sensitive text comparison
// of the voted option against the revealed answer text; a missing vote or an
// out-of-range option index counts as incorrect.
func ResolveRound(participants []Participant, ledger Ledger, options []string, correctText string) []Participant {
	want := strings.TrimSpace(correctText)

	resolved := make([]Participant, len(participants))
	for i, p := range participants {
		correct := false
		if vote, ok := ledger.VoteOf(p.ID); ok {
			if vote.OptionIndex >= 0 && vote.OptionIndex < len(options) {
				correct = strings.TrimSpace(options[vote.OptionIndex]) == want
			}
		}

		points, streak := ScoreRound(p.Streak, correct)
		p.Score += points
		p.Streak = streak
		if streak > p.BestStreak {
			p.BestStreak = streak
		}
		if correct {
			p.Correct++
		} else {
			p.Incorrect++
		}
		resolved[i] = p
	}
	return resolved
}
