package config

import "time"

const (
	// Hangman
	HangmanMaxAttempts = 6
	HangmanMinWordLen  = 2
	HangmanMaxWordLen  = 32

	// Callback
	CallbackTTL = 5 * time.Minute

	// WebSocket pumps
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	MaxMessageSize = 4096
	SendBufferSize = 256

	// Moderation
	DefaultBanDuration = 24 * time.Hour
)

// SeverityWeights maps a report severity class to its triage weight.
var SeverityWeights = map[string]int{
	"Low":      5,
	"Medium":   50,
	"Critical": 250,
}

// ReasonSeverity groups report reasons into severity classes for admin triage.
var ReasonSeverity = map[string]string{
	"spam":        "Low",
	"underage":    "Critical",
	"nudity":      "Critical",
	"harassment":  "Medium",
	"hate_speech": "Medium",
	"illegal":     "Critical",
	"other":       "Low",
}

// Severity returns the severity class for a report reason, defaulting to Low.
func Severity(reason string) string {
	if s, ok := ReasonSeverity[reason]; ok {
		return s
	}
	return "Low"
}
