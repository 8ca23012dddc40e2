package models

import (
	"encoding/json"
	"log"
)

// Envelope is the wire frame for every realtime message, both directions.
// Type selects the payload shape; Payload is decoded by the dispatcher.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client -> server event types.
const (
	EvJoin             = "join"
	EvLeaveQueue       = "leave_queue"
	EvSignal           = "signal"
	EvEndCall          = "end_call"
	EvGameInvite       = "game_invite"
	EvGameResponse     = "game_invite_response"
	EvSetWord          = "set_word"
	EvGuess            = "guess"
	EvQuitGame         = "quit_game"
	EvBlockUser        = "block_user"
	EvReportUser       = "report_user"
	EvCallbackRequest  = "callback_request"
	EvCallbackResponse = "callback_response"
)

// Server -> client event types.
const (
	EvQueued            = "queued"
	EvPaired            = "paired"
	EvCallEnded         = "call_ended"
	EvGameInvited       = "game_invited"
	EvGameStarted       = "game_started"
	EvWordSet           = "word_set"
	EvGuessResult       = "guess_result"
	EvGameEnded         = "game_ended"
	EvCallbackRequested = "callback_requested"
	EvCallbackStatus    = "callback_status"
	EvAck               = "ack"
	EvError             = "error"
)

// NewEnvelope marshals payload into an Envelope. Payload shapes are plain
// structs from this package, so a marshal failure is a programming error;
// it is logged and an empty payload is sent rather than dropping the event.
func NewEnvelope(eventType string, payload any) Envelope {
	if payload == nil {
		return Envelope{Type: eventType}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error encoding %s payload: %v", eventType, err)
		return Envelope{Type: eventType}
	}
	return Envelope{Type: eventType, Payload: raw}
}

// JoinPayload enters the matchmaking queue with optional constraints.
type JoinPayload struct {
	Filter Filter `json:"filter"`
}

// PairedPayload announces a new call session to both sides.
type PairedPayload struct {
	SessionID string      `json:"session_id"`
	Partner   PartnerInfo `json:"partner"`
}

// EndCallPayload is an explicit hang-up, optionally asking the partner for
// a later callback.
type EndCallPayload struct {
	SessionID       string `json:"session_id"`
	RequestCallback bool   `json:"request_callback,omitempty"`
}

// CallEndedPayload notifies the remaining side of a teardown.
type CallEndedPayload struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

// GameResponsePayload accepts or declines a pending game invite.
type GameResponsePayload struct {
	InviteID string `json:"invite_id"`
	Accept   bool   `json:"accept"`
}

// SetWordPayload supplies the secret word for a game in word_setting state.
type SetWordPayload struct {
	GameID   string `json:"game_id"`
	Word     string `json:"word"`
	Category string `json:"category,omitempty"`
}

// GuessPayload submits one letter guess.
type GuessPayload struct {
	GameID string `json:"game_id"`
	Letter string `json:"letter"`
}

// QuitGamePayload abandons the game at any non-terminal state.
type QuitGamePayload struct {
	GameID string `json:"game_id"`
}

// GameInvitedPayload is delivered to the invited session partner.
type GameInvitedPayload struct {
	InviteID string `json:"invite_id"`
	FromID   string `json:"from_id"`
}

// GameStartedPayload announces the accepted game to both sides.
type GameStartedPayload struct {
	Game *HangmanGame `json:"game"`
}

// WordSetPayload announces that guessing may begin.
type WordSetPayload struct {
	GameID       string `json:"game_id"`
	MaskedWord   string `json:"masked_word"`
	Category     string `json:"category,omitempty"`
	AttemptsLeft int    `json:"attempts_left"`
}

// BlockUserPayload blocks the given participant; combined with a report when
// the client issues "block and report".
type BlockUserPayload struct {
	BlockedUserID string `json:"blocked_user_id"`
	SessionID     string `json:"session_id,omitempty"`
}

// ReportUserPayload files a report against the given participant.
type ReportUserPayload struct {
	ReportedUserID string `json:"reported_user_id"`
	Reason         string `json:"reason"`
	Description    string `json:"description,omitempty"`
	SessionID      string `json:"session_id,omitempty"`
	// Block additionally records a block atomically with the report.
	Block bool `json:"block,omitempty"`
}

// CallbackRequestPayload asks a previous partner for reconnection.
type CallbackRequestPayload struct {
	ToUserID string       `json:"to_user_id"`
	Snapshot CallSnapshot `json:"snapshot"`
}

// CallbackResponsePayload resolves a pending callback request.
type CallbackResponsePayload struct {
	RequestID string `json:"request_id"`
	Accept    bool   `json:"accept"`
}

// CallbackRequestedPayload is delivered to the target of a callback request.
type CallbackRequestedPayload struct {
	RequestID string       `json:"request_id"`
	FromID    string       `json:"from_id"`
	Snapshot  CallSnapshot `json:"snapshot"`
}

// CallbackStatusPayload reports a request's resolution to the requester.
type CallbackStatusPayload struct {
	RequestID string         `json:"request_id"`
	Status    CallbackStatus `json:"status"`
}

// AckPayload confirms an action that produces no broadcast (block/report).
type AckPayload struct {
	Action string `json:"action"`
}

// ErrorPayload rejects one action with a stable machine-readable code.
// The offending action is rejected with no state mutation.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
