// Package game implements the word-guessing mini-game that two paired
// participants can play inside an active call session. The engine owns all
// game and invite state; sessions reference games by id only.
package game

import (
	"errors"
	"strings"
	"sync"
	"unicode"

	"callgogo/backend/internal/config"
	"callgogo/backend/internal/models"

	"github.com/google/uuid"
)

var (
	// ErrGameAlreadyActive rejects a new invite while the session already has
	// a pending invite or a running game.
	ErrGameAlreadyActive = errors.New("game: a game is already active in this session")
	// ErrUnknownGame is returned for actions on a finished or never-created game.
	ErrUnknownGame = errors.New("game: unknown game")
	// ErrUnknownInvite is returned for responses to an invite that does not exist.
	ErrUnknownInvite = errors.New("game: unknown invite")
	// ErrNotYourTurn rejects an action by the wrong role (setter guessing,
	// guesser setting the word, responding to your own invite).
	ErrNotYourTurn = errors.New("game: action not allowed for this participant")
	// ErrWrongState rejects an action outside the state that allows it.
	ErrWrongState = errors.New("game: action not allowed in current state")
	// ErrDuplicateGuess rejects a letter that was already guessed; it does not
	// consume an attempt.
	ErrDuplicateGuess = errors.New("game: letter already guessed")
	// ErrInvalidGuess rejects anything that is not a single letter.
	ErrInvalidGuess = errors.New("game: guess must be a single letter")
	// ErrInvalidWord rejects an unusable secret word.
	ErrInvalidWord = errors.New("game: invalid secret word")
)

// Engine manages every invite and game across all sessions.
type Engine struct {
	mu        sync.Mutex
	games     map[string]*models.HangmanGame // by game id
	invites   map[string]*models.GameInvite  // by invite id
	bySession map[string]string              // session id -> game or invite id

	// MaxAttempts is the wrong-guess budget granted to the guesser.
	MaxAttempts int
}

// NewEngine creates an empty game engine with the default attempt budget.
func NewEngine() *Engine {
	return &Engine{
		games:       make(map[string]*models.HangmanGame),
		invites:     make(map[string]*models.GameInvite),
		bySession:   make(map[string]string),
		MaxAttempts: config.HangmanMaxAttempts,
	}
}

// Invite creates a pending game invite from one session member to the other.
// The inviter becomes the setter if the invite is accepted.
func (e *Engine) Invite(sessionID, fromID, toID string) (*models.GameInvite, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, busy := e.bySession[sessionID]; busy {
		return nil, ErrGameAlreadyActive
	}
	inv := &models.GameInvite{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		FromID:    fromID,
		ToID:      toID,
	}
	e.invites[inv.ID] = inv
	e.bySession[sessionID] = inv.ID
	return inv, nil
}

// Respond resolves a pending invite. Accepting creates the game in
// word_setting state with the inviter as setter; declining clears the
// session slot so a new invite can follow. The invite is returned either
// way so the caller can tell the inviter.
func (e *Engine) Respond(inviteID, byID string, accept bool) (*models.HangmanGame, *models.GameInvite, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inv, ok := e.invites[inviteID]
	if !ok {
		return nil, nil, ErrUnknownInvite
	}
	if byID != inv.ToID {
		return nil, nil, ErrNotYourTurn
	}

	delete(e.invites, inviteID)
	if !accept {
		delete(e.bySession, inv.SessionID)
		return nil, inv, nil
	}

	g := &models.HangmanGame{
		ID:           uuid.New().String(),
		SessionID:    inv.SessionID,
		SetterID:     inv.FromID,
		GuesserID:    inv.ToID,
		State:        models.GameWordSetting,
		AttemptsLeft: e.MaxAttempts,
	}
	e.games[g.ID] = g
	e.bySession[inv.SessionID] = g.ID
	return e.snapshot(g), inv, nil
}

// SetWord supplies the secret word and moves the game to guessing.
// Only the setter may do this, and only once.
func (e *Engine) SetWord(gameID, byID, word, category string) (*models.HangmanGame, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.games[gameID]
	if !ok {
		return nil, ErrUnknownGame
	}
	if g.State != models.GameWordSetting {
		return nil, ErrWrongState
	}
	if byID != g.SetterID {
		return nil, ErrNotYourTurn
	}

	word = strings.TrimSpace(word)
	if !validWord(word) {
		return nil, ErrInvalidWord
	}

	g.Word = word
	g.Category = category
	g.MaskedWord = maskWord(word, nil)
	g.State = models.GameGuessing
	return e.snapshot(g), nil
}

// Guess submits one letter from the guesser. A repeated letter is rejected
// without consuming an attempt; a wrong letter decrements attempts; fully
// revealing the word finishes the game in the guesser's favor, running out
// of attempts in the setter's.
func (e *Engine) Guess(gameID, byID, letter string) (*models.GuessResult, *models.GameOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.games[gameID]
	if !ok {
		return nil, nil, ErrUnknownGame
	}
	if g.State != models.GameGuessing {
		return nil, nil, ErrWrongState
	}
	if byID != g.GuesserID {
		return nil, nil, ErrNotYourTurn
	}

	l, ok := normalizeLetter(letter)
	if !ok {
		return nil, nil, ErrInvalidGuess
	}
	for _, prev := range g.GuessedLetters {
		if prev == l {
			return nil, nil, ErrDuplicateGuess
		}
	}
	for _, prev := range g.WrongGuesses {
		if prev == l {
			return nil, nil, ErrDuplicateGuess
		}
	}

	correct := strings.Contains(strings.ToLower(g.Word), l)
	if correct {
		g.GuessedLetters = append(g.GuessedLetters, l)
		g.MaskedWord = maskWord(g.Word, g.GuessedLetters)
		if g.MaskedWord == g.Word {
			g.State = models.GameFinished
			g.WinnerID = g.GuesserID
		}
	} else {
		g.WrongGuesses = append(g.WrongGuesses, l)
		g.AttemptsLeft--
		if g.AttemptsLeft <= 0 {
			g.State = models.GameFinished
			g.WinnerID = g.SetterID
		}
	}

	res := &models.GuessResult{
		GameID:         g.ID,
		Guess:          l,
		IsCorrect:      correct,
		MaskedWord:     g.MaskedWord,
		GuessedLetters: append([]string(nil), g.GuessedLetters...),
		WrongGuesses:   append([]string(nil), g.WrongGuesses...),
		AttemptsLeft:   g.AttemptsLeft,
		IsGameOver:     g.State == models.GameFinished,
		WinnerID:       g.WinnerID,
	}
	var outcome *models.GameOutcome
	if res.IsGameOver {
		reason := models.GameEndWon
		if g.WinnerID == g.SetterID {
			reason = models.GameEndLost
		}
		outcome = &models.GameOutcome{
			GameID:   g.ID,
			WinnerID: g.WinnerID,
			Word:     g.Word,
			Reason:   reason,
		}
		e.finishLocked(g)
	}
	return res, outcome, nil
}

// Quit forces the game to finished with no winner, usable at any
// non-terminal state. Either participant may quit.
func (e *Engine) Quit(gameID, byID string) (*models.GameOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.games[gameID]
	if !ok {
		return nil, ErrUnknownGame
	}
	if byID != "" && byID != g.SetterID && byID != g.GuesserID {
		return nil, ErrNotYourTurn
	}
	g.State = models.GameFinished
	out := &models.GameOutcome{
		GameID: g.ID,
		Word:   g.Word,
		Reason: models.GameEndQuit,
	}
	e.finishLocked(g)
	return out, nil
}

// QuitBySession terminates whatever invite or unfinished game the session
// holds. Called by the session manager on teardown; returns the outcome of
// a quit game, if there was one to quit.
func (e *Engine) QuitBySession(sessionID string) (*models.GameOutcome, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, ok := e.bySession[sessionID]
	if !ok {
		return nil, false
	}
	if _, isInvite := e.invites[id]; isInvite {
		delete(e.invites, id)
		delete(e.bySession, sessionID)
		return nil, false
	}
	g, ok := e.games[id]
	if !ok || g.State == models.GameFinished {
		delete(e.bySession, sessionID)
		return nil, false
	}
	g.State = models.GameFinished
	out := &models.GameOutcome{
		GameID: g.ID,
		Word:   g.Word,
		Reason: models.GameEndQuit,
	}
	e.finishLocked(g)
	return out, true
}

// Get returns a snapshot of the game.
func (e *Engine) Get(gameID string) (*models.HangmanGame, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, ok := e.games[gameID]
	if !ok {
		return nil, false
	}
	return e.snapshot(g), true
}

// GameForSession returns the id of the session's active game, if any.
func (e *Engine) GameForSession(sessionID string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := e.bySession[sessionID]
	if !ok {
		return "", false
	}
	if _, isGame := e.games[id]; !isGame {
		return "", false
	}
	return id, true
}

// finishLocked drops a terminal game from the indexes. Caller holds e.mu.
func (e *Engine) finishLocked(g *models.HangmanGame) {
	delete(e.games, g.ID)
	delete(e.bySession, g.SessionID)
}

// snapshot copies the game so callers never share the engine's mutable state.
func (e *Engine) snapshot(g *models.HangmanGame) *models.HangmanGame {
	cp := *g
	cp.GuessedLetters = append([]string(nil), g.GuessedLetters...)
	cp.WrongGuesses = append([]string(nil), g.WrongGuesses...)
	return &cp
}

// normalizeLetter lower-cases the guess and requires a single letter rune.
func normalizeLetter(s string) (string, bool) {
	r := []rune(strings.ToLower(strings.TrimSpace(s)))
	if len(r) != 1 || !unicode.IsLetter(r[0]) {
		return "", false
	}
	return string(r[0]), true
}

// maskWord renders the word with unguessed letters hidden. Non-letter runes
// (spaces, hyphens) are always shown.
func maskWord(word string, guessed []string) string {
	guessedSet := make(map[rune]bool, len(guessed))
	for _, g := range guessed {
		for _, r := range g {
			guessedSet[r] = true
		}
	}
	var b strings.Builder
	for _, r := range word {
		if !unicode.IsLetter(r) || guessedSet[unicode.ToLower(r)] {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// validWord requires a word of sane length containing at least one letter
// and nothing beyond letters, spaces and hyphens.
func validWord(word string) bool {
	n := len([]rune(word))
	if n < config.HangmanMinWordLen || n > config.HangmanMaxWordLen {
		return false
	}
	hasLetter := false
	for _, r := range word {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case r == ' ' || r == '-':
		default:
			return false
		}
	}
	return hasLetter
}
