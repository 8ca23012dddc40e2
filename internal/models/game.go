package models

// GameState is the lifecycle state of a word-guessing game.
type GameState string

const (
	GameWordSetting GameState = "word_setting" // setter supplies the secret word
	GameGuessing    GameState = "guessing"     // guesser submits letters
	GameFinished    GameState = "finished"     // terminal
)

// Game end reasons.
const (
	GameEndWon  = "won"
	GameEndLost = "lost"
	GameEndQuit = "quit"
)

// HangmanGame is a turn-based word-guessing game scoped to one active call
// session. The setter picks the secret word, the guesser reveals it letter
// by letter within a bounded number of wrong guesses.
type HangmanGame struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	SetterID  string    `json:"setter_id"`
	GuesserID string    `json:"guesser_id"`
	State     GameState `json:"state"`

	// Word is the secret word as submitted by the setter.
	Word     string `json:"-"`
	Category string `json:"category,omitempty"`
	// MaskedWord shows revealed letters and underscores for the rest.
	MaskedWord string `json:"masked_word"`
	// GuessedLetters and WrongGuesses preserve submission order.
	GuessedLetters []string `json:"guessed_letters"`
	WrongGuesses   []string `json:"wrong_guesses"`
	AttemptsLeft   int      `json:"attempts_left"`
	// WinnerID is set when the game finishes with a winner; empty on quit.
	WinnerID string `json:"winner_id,omitempty"`
}

// GameInvite is a pending offer to start a game inside a session.
type GameInvite struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	FromID    string `json:"from_id"`
	ToID      string `json:"to_id"`
}

// GuessResult summarizes the effect of one letter guess, in the shape the
// client renders from.
type GuessResult struct {
	GameID         string   `json:"game_id"`
	Guess          string   `json:"guess"`
	IsCorrect      bool     `json:"is_correct"`
	MaskedWord     string   `json:"masked_word"`
	GuessedLetters []string `json:"guessed_letters"`
	WrongGuesses   []string `json:"wrong_guesses"`
	AttemptsLeft   int      `json:"attempts_left"`
	IsGameOver     bool     `json:"is_game_over"`
	WinnerID       string   `json:"winner_id,omitempty"`
}

// GameOutcome describes a finished game for the game_ended event.
type GameOutcome struct {
	GameID   string `json:"game_id"`
	WinnerID string `json:"winner_id,omitempty"`
	Word     string `json:"word"`
	Reason   string `json:"reason"`
}
