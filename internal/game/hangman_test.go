package game_test

import (
	"testing"

	"callgogo/backend/internal/config"
	"callgogo/backend/internal/game"
	"callgogo/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startGame walks a fresh engine through invite, accept and word setting.
func startGame(t *testing.T, e *game.Engine, word string) *models.HangmanGame {
	t.Helper()
	inv, err := e.Invite("sess1", "setter", "guesser")
	require.NoError(t, err)

	g, gotInv, err := e.Respond(inv.ID, "guesser", true)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, inv.ID, gotInv.ID)
	assert.Equal(t, models.GameWordSetting, g.State)
	assert.Equal(t, "setter", g.SetterID)
	assert.Equal(t, "guesser", g.GuesserID)

	g, err = e.SetWord(g.ID, "setter", word, "")
	require.NoError(t, err)
	assert.Equal(t, models.GameGuessing, g.State)
	return g
}

func TestInviteAcceptDecline(t *testing.T) {
	e := game.NewEngine()

	inv, err := e.Invite("sess1", "setter", "guesser")
	require.NoError(t, err)

	// Only the invited side may respond.
	_, _, err = e.Respond(inv.ID, "setter", true)
	assert.ErrorIs(t, err, game.ErrNotYourTurn)

	// Declining frees the session slot for a new invite.
	g, gotInv, err := e.Respond(inv.ID, "guesser", false)
	require.NoError(t, err)
	assert.Nil(t, g)
	assert.Equal(t, "setter", gotInv.FromID)

	_, err = e.Invite("sess1", "guesser", "setter")
	assert.NoError(t, err)
}

func TestSecondInviteRejectedWhileActive(t *testing.T) {
	e := game.NewEngine()
	_, err := e.Invite("sess1", "setter", "guesser")
	require.NoError(t, err)

	_, err = e.Invite("sess1", "guesser", "setter")
	assert.ErrorIs(t, err, game.ErrGameAlreadyActive)
}

func TestSetWordRules(t *testing.T) {
	e := game.NewEngine()
	inv, _ := e.Invite("sess1", "setter", "guesser")
	g, _, err := e.Respond(inv.ID, "guesser", true)
	require.NoError(t, err)

	// The guesser cannot set the word.
	_, err = e.SetWord(g.ID, "guesser", "ocean", "")
	assert.ErrorIs(t, err, game.ErrNotYourTurn)

	// Garbage words are rejected.
	_, err = e.SetWord(g.ID, "setter", "x", "")
	assert.ErrorIs(t, err, game.ErrInvalidWord)
	_, err = e.SetWord(g.ID, "setter", "no1se", "")
	assert.ErrorIs(t, err, game.ErrInvalidWord)

	g, err = e.SetWord(g.ID, "setter", "deep sea", "nature")
	require.NoError(t, err)
	assert.Equal(t, "____ ___", g.MaskedWord)

	// Guessing has begun; the word cannot change.
	_, err = e.SetWord(g.ID, "setter", "other", "")
	assert.ErrorIs(t, err, game.ErrWrongState)
}

// TestGuesserWinsOcean follows the OCEAN scenario: five distinct correct
// guesses reveal the word with the attempt budget untouched.
func TestGuesserWinsOcean(t *testing.T) {
	e := game.NewEngine()
	g := startGame(t, e, "OCEAN")

	letters := []string{"O", "C", "E", "A"}
	for _, l := range letters {
		res, outcome, err := e.Guess(g.ID, "guesser", l)
		require.NoError(t, err)
		assert.True(t, res.IsCorrect)
		assert.False(t, res.IsGameOver)
		assert.Nil(t, outcome)
	}

	res, outcome, err := e.Guess(g.ID, "guesser", "N")
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.True(t, res.IsGameOver)
	assert.Equal(t, "OCEAN", res.MaskedWord)
	assert.Equal(t, "guesser", res.WinnerID)
	assert.Equal(t, config.HangmanMaxAttempts, res.AttemptsLeft)

	require.NotNil(t, outcome)
	assert.Equal(t, "OCEAN", outcome.Word)
	assert.Equal(t, models.GameEndWon, outcome.Reason)
	assert.Equal(t, "guesser", outcome.WinnerID)
}

// TestGuesserWinsAnyOrder verifies that letter order does not matter.
func TestGuesserWinsAnyOrder(t *testing.T) {
	e := game.NewEngine()
	g := startGame(t, e, "OCEAN")

	var won bool
	for _, l := range []string{"n", "a", "e", "c", "o"} {
		res, _, err := e.Guess(g.ID, "guesser", l)
		require.NoError(t, err)
		won = res.IsGameOver && res.WinnerID == "guesser"
	}
	assert.True(t, won)
}

// TestSetterWinsSky follows the SKY scenario with a budget of two wrong
// guesses: attempts go 2 -> 1 -> 0 and the setter wins.
func TestSetterWinsSky(t *testing.T) {
	e := game.NewEngine()
	e.MaxAttempts = 2
	g := startGame(t, e, "SKY")
	assert.Equal(t, 2, g.AttemptsLeft)

	res, outcome, err := e.Guess(g.ID, "guesser", "A")
	require.NoError(t, err)
	assert.False(t, res.IsCorrect)
	assert.Equal(t, 1, res.AttemptsLeft)
	assert.False(t, res.IsGameOver)
	assert.Nil(t, outcome)

	res, outcome, err = e.Guess(g.ID, "guesser", "B")
	require.NoError(t, err)
	assert.Equal(t, 0, res.AttemptsLeft)
	assert.True(t, res.IsGameOver)
	assert.Equal(t, "setter", res.WinnerID)

	require.NotNil(t, outcome)
	assert.Equal(t, "SKY", outcome.Word)
	assert.Equal(t, models.GameEndLost, outcome.Reason)
}

// TestDuplicateGuessConsumesNothing checks that repeating a letter, correct
// or wrong, is rejected without touching the attempt budget.
func TestDuplicateGuessConsumesNothing(t *testing.T) {
	e := game.NewEngine()
	g := startGame(t, e, "OCEAN")

	_, _, err := e.Guess(g.ID, "guesser", "O")
	require.NoError(t, err)
	_, _, err = e.Guess(g.ID, "guesser", "o")
	assert.ErrorIs(t, err, game.ErrDuplicateGuess)

	_, _, err = e.Guess(g.ID, "guesser", "Z")
	require.NoError(t, err)
	_, _, err = e.Guess(g.ID, "guesser", "z")
	assert.ErrorIs(t, err, game.ErrDuplicateGuess)

	got, ok := e.Get(g.ID)
	require.True(t, ok)
	assert.Equal(t, config.HangmanMaxAttempts-1, got.AttemptsLeft)
}

func TestGuessValidation(t *testing.T) {
	e := game.NewEngine()
	g := startGame(t, e, "OCEAN")

	_, _, err := e.Guess(g.ID, "setter", "o")
	assert.ErrorIs(t, err, game.ErrNotYourTurn)

	for _, bad := range []string{"", "ab", "1", "!"} {
		_, _, err := e.Guess(g.ID, "guesser", bad)
		assert.ErrorIs(t, err, game.ErrInvalidGuess, "guess %q", bad)
	}
}

func TestCorrectGuessRevealsAllOccurrences(t *testing.T) {
	e := game.NewEngine()
	g := startGame(t, e, "banana")

	res, _, err := e.Guess(g.ID, "guesser", "a")
	require.NoError(t, err)
	assert.Equal(t, "_a_a_a", res.MaskedWord)
}

func TestQuitAtAnyState(t *testing.T) {
	e := game.NewEngine()
	g := startGame(t, e, "OCEAN")

	out, err := e.Quit(g.ID, "setter")
	require.NoError(t, err)
	assert.Equal(t, models.GameEndQuit, out.Reason)
	assert.Empty(t, out.WinnerID)
	assert.Equal(t, "OCEAN", out.Word)

	// The game is gone; further actions fail.
	_, _, err = e.Guess(g.ID, "guesser", "o")
	assert.ErrorIs(t, err, game.ErrUnknownGame)
}

func TestQuitBySession(t *testing.T) {
	e := game.NewEngine()
	g := startGame(t, e, "OCEAN")

	out, quit := e.QuitBySession("sess1")
	require.True(t, quit)
	assert.Equal(t, g.ID, out.GameID)
	assert.Equal(t, models.GameEndQuit, out.Reason)

	// Idempotent: nothing left to quit.
	_, quit = e.QuitBySession("sess1")
	assert.False(t, quit)
}

func TestQuitBySessionClearsPendingInvite(t *testing.T) {
	e := game.NewEngine()
	inv, err := e.Invite("sess1", "setter", "guesser")
	require.NoError(t, err)

	out, quit := e.QuitBySession("sess1")
	assert.False(t, quit)
	assert.Nil(t, out)

	_, _, err = e.Respond(inv.ID, "guesser", true)
	assert.ErrorIs(t, err, game.ErrUnknownInvite)
}

func TestGameForSession(t *testing.T) {
	e := game.NewEngine()
	g := startGame(t, e, "OCEAN")

	id, ok := e.GameForSession("sess1")
	assert.True(t, ok)
	assert.Equal(t, g.ID, id)

	_, ok = e.GameForSession("other")
	assert.False(t, ok)
}
