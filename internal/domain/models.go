package domain

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// MaxParticipants caps the size of a party; matches the host screen layout.
const MaxParticipants = 25

// MaxNameLength caps display names in runes.
const MaxNameLength = 25

// Participant is one player and their accumulated stats for the session.
type Participant struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Correct    int    `json:"correct"`
	Incorrect  int    `json:"incorrect"`
	Score      int    `json:"score"`
	Streak     int    `json:"streak"`
	BestStreak int    `json:"bestStreak"`
}

// Vote pairs a participant with the option index they chose for the current
// question. Indexes are 0-based into the question's option list.
type Vote struct {
	ParticipantID string `json:"participantId"`
	OptionIndex   int    `json:"optionIndex"`
}

// Question is the public, answer-redacted view served to the host screen.
// Options arrive pre-shuffled from the question source.
type Question struct {
	ID       string   `json:"id"`
	Prompt   string   `json:"prompt"`
	Options  []string `json:"options"`
	Category string   `json:"category,omitempty"`
}

// RevealedAnswer carries the correct option text plus context, fetched
// lazily per question once a round finishes voting.
type RevealedAnswer struct {
	CorrectText string `json:"correctText"`
	Explanation string `json:"explanation"`
	SourceURL   string `json:"sourceUrl,omitempty"`
}

// Session is the durable game state for one group of participants. It is
// the exact shape persisted by session stores; screen state and the loaded
// question batch are rebuilt on resume.
type Session struct {
	Participants    []Participant `json:"participants"`
	CurrentQuestion int           `json:"currentQuestion"`
	Votes           Ledger        `json:"votes"`
	Finished        bool          `json:"finished"`
	TotalQuestions  int           `json:"totalQuestions"`
	CompletedRounds int           `json:"completedRounds"`
}

// Valid reports whether a stored session is structurally usable. Records
// that fail this check are treated as absent, not as errors.
func (s Session) Valid() bool {
	if len(s.Participants) == 0 || s.TotalQuestions <= 0 {
		return false
	}
	if s.CurrentQuestion < 0 || s.CurrentQuestion >= s.TotalQuestions {
		return false
	}
	seen := make(map[string]struct{}, len(s.Participants))
	for _, p := range s.Participants {
		if p.ID == "" {
			return false
		}
		if _, dup := seen[p.ID]; dup {
			return false
		}
		seen[p.ID] = struct{}{}
	}
	voted := make(map[string]struct{}, len(s.Votes))
	for _, v := range s.Votes {
		if _, dup := voted[v.ParticipantID]; dup {
			return false
		}
		voted[v.ParticipantID] = struct{}{}
	}
	return true
}

// ParticipantByID returns the participant with the given id, if present.
func (s Session) ParticipantByID(id string) (Participant, bool) {
	for _, p := range s.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// NewParticipants validates the submitted display names and builds fresh
// participants with zeroed stats. Names must be 1-25 characters of letters,
// digits and spaces, unique ignoring case.
func NewParticipants(names []string) ([]Participant, error) {
	if len(names) == 0 {
		return nil, ErrNoParticipants
	}
	if len(names) > MaxParticipants {
		return nil, ErrTooManyParticipants
	}

	participants := make([]Participant, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if err := validateName(name); err != nil {
			return nil, err
		}
		folded := strings.ToLower(name)
		if _, dup := seen[folded]; dup {
			return nil, ErrDuplicateName
		}
		seen[folded] = struct{}{}
		participants = append(participants, Participant{
			ID:   uuid.NewString(),
			Name: name,
		})
	}
	return participants, nil
}

func validateName(name string) error {
	runes := []rune(name)
	if len(runes) == 0 || len(runes) > MaxNameLength {
		return ErrInvalidName
	}
	for _, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' {
			return ErrInvalidName
		}
	}
	return nil
}

// ResetStats zeroes every participant counter while keeping identities,
// for a fresh game with the same group.
func ResetStats(participants []Participant) []Participant {
	reset := make([]Participant, len(participants))
	for i, p := range participants {
		reset[i] = Participant{ID: p.ID, Name: p.Name}
	}
	return reset
}
