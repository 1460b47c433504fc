package domain

import "fmt"

// Phase represents the current screen of a round.
type Phase string

const (
	PhaseWaitingTurn  Phase = "WAITING_TURN"  // Device waiting to be passed to the active participant
	PhaseVoting       Phase = "VOTING"        // Active participant picking an option
	PhaseAllVoted     Phase = "ALL_VOTED"     // Every participant has voted, confirm or revise
	PhaseChangingVote Phase = "CHANGING_VOTE" // Selecting which participant revotes
	PhaseRevealing    Phase = "REVEALING"     // Answer being fetched, then shown
	PhaseFinished     Phase = "FINISHED"      // All questions exhausted
)

// NoSelection marks the absence of a pending option selection.
const NoSelection = -1

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// CanTransitionTo checks whether moving from the current phase to target is valid.
func (p Phase) CanTransitionTo(target Phase) bool {
	validTransitions := map[Phase][]Phase{
		PhaseWaitingTurn:  {PhaseVoting},
		PhaseVoting:       {PhaseWaitingTurn, PhaseAllVoted},
		PhaseAllVoted:     {PhaseChangingVote, PhaseRevealing},
		PhaseChangingVote: {PhaseVoting, PhaseAllVoted},
		PhaseRevealing:    {PhaseWaitingTurn, PhaseFinished},
		PhaseFinished:     {PhaseWaitingTurn},
	}

	for _, allowed := range validTransitions[p] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Machine is the round state machine: the current phase plus the pieces of
// per-phase state (whose turn it is, the pending selection, whether the
// reveal has resolved). It has no dependency on any rendering layer; a
// transport drives it with discrete actions and renders the result.
type Machine struct {
	Phase          Phase  `json:"phase"`
	ActiveID       string `json:"activeParticipantId,omitempty"`
	SelectedOption int    `json:"selectedOption"`
	RevealReady    bool   `json:"revealReady"`
}

// NewMachine returns a machine waiting for the given participant's turn.
func NewMachine(activeID string) Machine {
	return Machine{
		Phase:          PhaseWaitingTurn,
		ActiveID:       activeID,
		SelectedOption: NoSelection,
	}
}

func (m *Machine) transition(target Phase) error {
	if !m.Phase.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.Phase, target)
	}
	m.Phase = target
	return nil
}

// BeginTurn moves from waiting to voting, clearing any pending selection.
func (m *Machine) BeginTurn() error {
	if err := m.transition(PhaseVoting); err != nil {
		return err
	}
	m.SelectedOption = NoSelection
	return nil
}

// Select records the active participant's pending option choice.
func (m *Machine) Select(optionIndex int) error {
	if m.Phase != PhaseVoting {
		return fmt.Errorf("%w: select while %s", ErrInvalidTransition, m.Phase)
	}
	m.SelectedOption = optionIndex
	return nil
}

// ConfirmToNext hands the device to the next unvoted participant.
func (m *Machine) ConfirmToNext(nextID string) error {
	if err := m.transition(PhaseWaitingTurn); err != nil {
		return err
	}
	m.ActiveID = nextID
	m.SelectedOption = NoSelection
	return nil
}

// ConfirmComplete moves to the all-voted screen once the ledger is full.
func (m *Machine) ConfirmComplete() error {
	if err := m.transition(PhaseAllVoted); err != nil {
		return err
	}
	m.ActiveID = ""
	m.SelectedOption = NoSelection
	return nil
}

// StartChange opens the revote selector.
func (m *Machine) StartChange() error {
	return m.transition(PhaseChangingVote)
}

// PickRevoter puts the chosen participant back into voting with their
// current choice preselected.
func (m *Machine) PickRevoter(participantID string, currentOption int) error {
	if err := m.transition(PhaseVoting); err != nil {
		return err
	}
	m.ActiveID = participantID
	m.SelectedOption = currentOption
	return nil
}

// CancelChange returns from the revote selector to the all-voted screen.
func (m *Machine) CancelChange() error {
	return m.transition(PhaseAllVoted)
}

// BeginReveal enters the loading sub-state of the reveal. Advancing is
// blocked until FinishReveal, which guards against double-triggering the
// reveal call or the scoring pass.
func (m *Machine) BeginReveal() error {
	if err := m.transition(PhaseRevealing); err != nil {
		return err
	}
	m.RevealReady = false
	return nil
}

// FinishReveal marks the reveal resolved, successfully or not.
func (m *Machine) FinishReveal() {
	m.RevealReady = true
}

// AdvanceToNext moves to the next question's waiting screen.
func (m *Machine) AdvanceToNext(nextID string) error {
	if m.Phase == PhaseRevealing && !m.RevealReady {
		return fmt.Errorf("%w: reveal still loading", ErrInvalidTransition)
	}
	if err := m.transition(PhaseWaitingTurn); err != nil {
		return err
	}
	m.ActiveID = nextID
	m.SelectedOption = NoSelection
	m.RevealReady = false
	return nil
}

// Finish ends the session after the last question's reveal.
func (m *Machine) Finish() error {
	if m.Phase == PhaseRevealing && !m.RevealReady {
		return fmt.Errorf("%w: reveal still loading", ErrInvalidTransition)
	}
	if err := m.transition(PhaseFinished); err != nil {
		return err
	}
	m.ActiveID = ""
	m.SelectedOption = NoSelection
	m.RevealReady = false
	return nil
}

// Restart starts a fresh game from the finished screen.
func (m *Machine) Restart(firstID string) error {
	if m.Phase != PhaseFinished {
		return fmt.Errorf("%w: restart while %s", ErrInvalidTransition, m.Phase)
	}
	if err := m.transition(PhaseWaitingTurn); err != nil {
		return err
	}
	m.ActiveID = firstID
	m.SelectedOption = NoSelection
	m.RevealReady = false
	return nil
}
