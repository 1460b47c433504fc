package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"party-trivia-service/internal/domain"
)

// SessionStore persists one session record per device key. Load reports
// false for absent or structurally unreadable records; it never fails a
// resume with a parse error.
type SessionStore interface {
	Load(ctx context.Context, key string) (domain.Session, bool, error)
	Save(ctx context.Context, key string, session domain.Session) error
	Delete(ctx context.Context, key string) error
}

// QuestionSource fetches a fixed batch of questions with pre-shuffled,
// answer-redacted options.
type QuestionSource interface {
	FetchQuestions(ctx context.Context) ([]domain.Question, error)
}

// AnswerRevealer resolves the correct answer for a single question id.
type AnswerRevealer interface {
	Reveal(ctx context.Context, questionID string) (domain.RevealedAnswer, error)
}

// GameService drives the round state machine for each hosting device and
// keeps the stored session in sync after every state-affecting transition.
// The in-memory state stays authoritative when persistence fails.
type GameService struct {
	store     SessionStore
	questions QuestionSource
	revealer  AnswerRevealer

	rngMu sync.Mutex
	rng   *rand.Rand

	mu    sync.Mutex
	games map[string]*game
}

// game is the live state for one hosting device: the durable session plus
// everything rebuilt on resume (machine, question batch, reveal cache).
type game struct {
	mu           sync.Mutex
	session      domain.Session
	machine      domain.Machine
	questions    []domain.Question
	answers      map[string]domain.RevealedAnswer
	revealFailed bool
}

func NewGameService(store SessionStore, questions QuestionSource, revealer AnswerRevealer) *GameService {
	return NewGameServiceWithRand(store, questions, revealer, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewGameServiceWithRand allows deterministic turn order in tests.
func NewGameServiceWithRand(store SessionStore, questions QuestionSource, revealer AnswerRevealer, rng *rand.Rand) *GameService {
	return &GameService{
		store:     store,
		questions: questions,
		revealer:  revealer,
		rng:       rng,
		games:     make(map[string]*game),
	}
}

// Snapshot is the render-ready view of a game after an action. The
// transport sends it verbatim; it carries no hidden state.
type Snapshot struct {
	Phase             domain.Phase           `json:"phase"`
	ActiveParticipant *domain.Participant    `json:"activeParticipant,omitempty"`
	SelectedOption    int                    `json:"selectedOption"`
	Question          *domain.Question       `json:"question,omitempty"`
	QuestionNumber    int                    `json:"questionNumber"`
	TotalQuestions    int                    `json:"totalQuestions"`
	Participants      []domain.Participant   `json:"participants"`
	OptionVotes       [][]string             `json:"optionVotes,omitempty"`
	Answer            *domain.RevealedAnswer `json:"answer,omitempty"`
	AnswerUnavailable bool                   `json:"answerUnavailable,omitempty"`
	Finished          bool                   `json:"finished"`
	CompletedRounds   int                    `json:"completedRounds"`
}

// StartSession validates the submitted names, fetches a fresh question
// batch, and begins a new game for the device key. A batch fetch failure is
// fatal to starting.
func (s *GameService) StartSession(ctx context.Context, key string, names []string) (Snapshot, error) {
	participants, err := domain.NewParticipants(names)
	if err != nil {
		return Snapshot{}, err
	}
	return s.startWith(ctx, key, participants, 0)
}

// ContinueSession starts a new game under the same device key, carrying the
// completed-rounds counter forward from any stored session.
func (s *GameService) ContinueSession(ctx context.Context, key string, names []string) (Snapshot, error) {
	participants, err := domain.NewParticipants(names)
	if err != nil {
		return Snapshot{}, err
	}

	completedRounds := 0
	if stored, ok, err := s.store.Load(ctx, key); err != nil {
		log.Printf("load session %q: %v (starting fresh)", key, err)
	} else if ok && stored.Valid() {
		completedRounds = stored.CompletedRounds + 1
	}
	return s.startWith(ctx, key, participants, completedRounds)
}

func (s *GameService) startWith(ctx context.Context, key string, participants []domain.Participant, completedRounds int) (Snapshot, error) {
	batch, err := s.questions.FetchQuestions(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch questions: %w", err)
	}

	first, _ := s.pick(participants, nil)
	g := &game{
		session: domain.Session{
			Participants:    participants,
			TotalQuestions:  len(batch),
			CompletedRounds: completedRounds,
		},
		machine:   domain.NewMachine(first.ID),
		questions: batch,
		answers:   make(map[string]domain.RevealedAnswer),
	}

	s.mu.Lock()
	s.games[key] = g
	s.mu.Unlock()

	g.mu.Lock()
	defer g.mu.Unlock()
	s.persist(ctx, key, g.session)
	return s.snapshotLocked(g), nil
}

// ResumeSession rehydrates a game from the stored session record. Absent or
// malformed records surface as ErrSessionNotFound so the host is routed to
// a new game; a question batch failure is fatal, as on start.
func (s *GameService) ResumeSession(ctx context.Context, key string) (Snapshot, error) {
	s.mu.Lock()
	if g, ok := s.games[key]; ok {
		s.mu.Unlock()
		g.mu.Lock()
		defer g.mu.Unlock()
		return s.snapshotLocked(g), nil
	}
	s.mu.Unlock()

	stored, ok, err := s.store.Load(ctx, key)
	if err != nil {
		log.Printf("load session %q: %v (treating as absent)", key, err)
		return Snapshot{}, domain.ErrSessionNotFound
	}
	if !ok || !stored.Valid() {
		return Snapshot{}, domain.ErrSessionNotFound
	}

	batch, err := s.questions.FetchQuestions(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch questions: %w", err)
	}
	if stored.CurrentQuestion >= len(batch) {
		return Snapshot{}, domain.ErrSessionNotFound
	}

	var machine domain.Machine
	switch {
	case stored.Finished:
		machine = domain.Machine{Phase: domain.PhaseFinished, SelectedOption: domain.NoSelection}
	default:
		if next, more := s.pick(stored.Participants, stored.Votes); more {
			machine = domain.NewMachine(next.ID)
		} else {
			// Mid-round reload after everyone voted: back to the confirm screen.
			machine = domain.Machine{Phase: domain.PhaseAllVoted, SelectedOption: domain.NoSelection}
		}
	}

	g := &game{
		session:   stored,
		machine:   machine,
		questions: batch,
		answers:   make(map[string]domain.RevealedAnswer),
	}
	s.mu.Lock()
	s.games[key] = g
	s.mu.Unlock()

	g.mu.Lock()
	defer g.mu.Unlock()
	return s.snapshotLocked(g), nil
}

// ResetSession discards both the live game and the stored record.
func (s *GameService) ResetSession(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.games, key)
	s.mu.Unlock()

	if err := s.store.Delete(ctx, key); err != nil {
		log.Printf("delete session %q: %v", key, err)
	}
	return nil
}

// BeginTurn starts the active participant's voting turn.
func (s *GameService) BeginTurn(ctx context.Context, key string) (Snapshot, error) {
	return s.withGame(key, func(g *game) error {
		return g.machine.BeginTurn()
	})
}

// SelectOption records the active participant's pending choice.
func (s *GameService) SelectOption(ctx context.Context, key string, optionIndex int) (Snapshot, error) {
	return s.withGame(key, func(g *game) error {
		return g.machine.Select(optionIndex)
	})
}

// ConfirmVote commits the pending selection to the ledger and either hands
// the device to the next unvoted participant or closes the round's voting.
func (s *GameService) ConfirmVote(ctx context.Context, key string) (Snapshot, error) {
	return s.withGame(key, func(g *game) error {
		if g.machine.Phase != domain.PhaseVoting {
			return fmt.Errorf("%w: confirm while %s", domain.ErrInvalidTransition, g.machine.Phase)
		}
		if g.machine.SelectedOption == domain.NoSelection {
			return domain.ErrNoSelection
		}

		g.session.Votes = g.session.Votes.Cast(g.machine.ActiveID, g.machine.SelectedOption)

		var err error
		if next, more := s.pick(g.session.Participants, g.session.Votes); more {
			err = g.machine.ConfirmToNext(next.ID)
		} else {
			err = g.machine.ConfirmComplete()
		}
		if err != nil {
			return err
		}
		s.persist(ctx, key, g.session)
		return nil
	})
}

// RetractVote withdraws a participant's vote while the round is still in
// the waiting phase; the sequencer may then pick them again.
func (s *GameService) RetractVote(ctx context.Context, key, participantID string) (Snapshot, error) {
	return s.withGame(key, func(g *game) error {
		if g.machine.Phase != domain.PhaseWaitingTurn {
			return fmt.Errorf("%w: retract while %s", domain.ErrInvalidTransition, g.machine.Phase)
		}
		if _, ok := g.session.ParticipantByID(participantID); !ok {
			return domain.ErrParticipantNotFound
		}
		g.session.Votes = g.session.Votes.Retract(participantID)
		s.persist(ctx, key, g.session)
		return nil
	})
}

// StartChangingVote opens the revote selector from the all-voted screen.
func (s *GameService) StartChangingVote(ctx context.Context, key string) (Snapshot, error) {
	return s.withGame(key, func(g *game) error {
		return g.machine.StartChange()
	})
}

// PickRevoter sends the chosen participant back to voting. Only their own
// vote needs re-confirming; the rest of the ledger stands.
func (s *GameService) PickRevoter(ctx context.Context, key, participantID string) (Snapshot, error) {
	return s.withGame(key, func(g *game) error {
		if _, ok := g.session.ParticipantByID(participantID); !ok {
			return domain.ErrParticipantNotFound
		}
		current := domain.NoSelection
		if vote, ok := g.session.Votes.VoteOf(participantID); ok {
			current = vote.OptionIndex
		}
		return g.machine.PickRevoter(participantID, current)
	})
}

// CancelChangingVote returns to the all-voted screen without a revote.
func (s *GameService) CancelChangingVote(ctx context.Context, key string) (Snapshot, error) {
	return s.withGame(key, func(g *game) error {
		return g.machine.CancelChange()
	})
}

// RevealAnswer resolves the current question: it fetches the correct answer,
// scores every participant on success, and degrades to an unavailable
// answer on failure so the host can still advance.
func (s *GameService) RevealAnswer(ctx context.Context, key string) (Snapshot, error) {
	return s.withGame(key, func(g *game) error {
		if err := g.machine.BeginReveal(); err != nil {
			return err
		}

		question := g.questions[g.session.CurrentQuestion]
		answer, cached := g.answers[question.ID]
		if !cached {
			var err error
			answer, err = s.revealer.Reveal(ctx, question.ID)
			if err != nil {
				log.Printf("reveal question %s: %v (skipping scoring)", question.ID, err)
				g.revealFailed = true
				g.machine.FinishReveal()
				return nil
			}
			g.answers[question.ID] = answer
		}

		g.revealFailed = false
		g.session.Participants = domain.ResolveRound(g.session.Participants, g.session.Votes, question.Options, answer.CorrectText)
		g.machine.FinishReveal()
		s.persist(ctx, key, g.session)
		return nil
	})
}

// NextQuestion advances past a revealed question, finishing the game after
// the last one.
func (s *GameService) NextQuestion(ctx context.Context, key string) (Snapshot, error) {
	return s.withGame(key, func(g *game) error {
		if g.session.CurrentQuestion < g.session.TotalQuestions-1 {
			next, _ := s.pick(g.session.Participants, nil)
			if err := g.machine.AdvanceToNext(next.ID); err != nil {
				return err
			}
			g.session.CurrentQuestion++
			g.session.Votes = nil
			g.revealFailed = false
		} else {
			if err := g.machine.Finish(); err != nil {
				return err
			}
			// The last round's ledger stays on the session, informational only.
			g.session.Finished = true
		}
		s.persist(ctx, key, g.session)
		return nil
	})
}

// RestartGame plays another batch with the same group: counters zeroed,
// completed-rounds incremented, fresh questions.
func (s *GameService) RestartGame(ctx context.Context, key string) (Snapshot, error) {
	return s.withGame(key, func(g *game) error {
		if g.machine.Phase != domain.PhaseFinished {
			return fmt.Errorf("%w: restart while %s", domain.ErrInvalidTransition, g.machine.Phase)
		}

		batch, err := s.questions.FetchQuestions(ctx)
		if err != nil {
			return fmt.Errorf("fetch questions: %w", err)
		}

		participants := domain.ResetStats(g.session.Participants)
		first, _ := s.pick(participants, nil)
		if err := g.machine.Restart(first.ID); err != nil {
			return err
		}

		g.session = domain.Session{
			Participants:    participants,
			TotalQuestions:  len(batch),
			CompletedRounds: g.session.CompletedRounds + 1,
		}
		g.questions = batch
		g.answers = make(map[string]domain.RevealedAnswer)
		g.revealFailed = false
		s.persist(ctx, key, g.session)
		return nil
	})
}

func (s *GameService) withGame(key string, fn func(g *game) error) (Snapshot, error) {
	s.mu.Lock()
	g, ok := s.games[key]
	s.mu.Unlock()
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := fn(g); err != nil {
		return Snapshot{}, err
	}
	return s.snapshotLocked(g), nil
}

func (s *GameService) pick(participants []domain.Participant, ledger domain.Ledger) (domain.Participant, bool) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return domain.NextParticipant(s.rng, participants, ledger)
}

// persist writes the session after a state-affecting transition. Failures
// are logged only; the in-memory state stays authoritative.
func (s *GameService) persist(ctx context.Context, key string, session domain.Session) {
	if err := s.store.Save(ctx, key, session); err != nil {
		log.Printf("persist session %q: %v (continuing in memory)", key, err)
	}
}

func (s *GameService) snapshotLocked(g *game) Snapshot {
	snap := Snapshot{
		Phase:           g.machine.Phase,
		SelectedOption:  g.machine.SelectedOption,
		QuestionNumber:  g.session.CurrentQuestion + 1,
		TotalQuestions:  g.session.TotalQuestions,
		Finished:        g.session.Finished,
		CompletedRounds: g.session.CompletedRounds,
	}

	snap.Participants = make([]domain.Participant, len(g.session.Participants))
	copy(snap.Participants, g.session.Participants)

	if active, ok := g.session.ParticipantByID(g.machine.ActiveID); ok {
		snap.ActiveParticipant = &active
	}

	if !g.session.Finished && g.session.CurrentQuestion < len(g.questions) {
		question := g.questions[g.session.CurrentQuestion]
		snap.Question = &question

		snap.OptionVotes = make([][]string, len(question.Options))
		for i := range question.Options {
			names := make([]string, 0)
			for _, id := range g.session.Votes.VotesFor(i) {
				if p, ok := g.session.ParticipantByID(id); ok {
					names = append(names, p.Name)
				}
			}
			snap.OptionVotes[i] = names
		}

		if g.machine.Phase == domain.PhaseRevealing && g.machine.RevealReady {
			if answer, ok := g.answers[question.ID]; ok && !g.revealFailed {
				snap.Answer = &answer
			} else {
				snap.AnswerUnavailable = true
			}
		}
	}

	return snap
}
