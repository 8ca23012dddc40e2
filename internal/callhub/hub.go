// Package callhub is the transport hub: it owns the set of connected
// clients, decodes inbound realtime envelopes and drives the pairing,
// signaling, game, moderation and callback services. One Run goroutine
// serializes registration, disconnects and action dispatch.
package callhub

import (
	"encoding/json"
	"errors"
	"log"
	"sync"

	"callgogo/backend/internal/callback"
	"callgogo/backend/internal/game"
	"callgogo/backend/internal/matchmaking"
	"callgogo/backend/internal/models"
	"callgogo/backend/internal/moderation"
	"callgogo/backend/internal/registry"
	"callgogo/backend/internal/session"
	"callgogo/backend/internal/signaling"
)

// Inbound is one decoded client action awaiting dispatch.
type Inbound struct {
	UserID string
	Env    models.Envelope
}

// Hub routes between transports and services.
type Hub struct {
	clientsMu sync.RWMutex
	clients   map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client
	InboundCh    chan Inbound
	quit         chan struct{}

	Registry *registry.Service
	Queue    *matchmaking.Service
	Sessions *session.Manager
	Relay    *signaling.Relay
	Games    *game.Engine
	Ledger   *moderation.Ledger
	Broker   *callback.Broker
}

// NewHub creates a hub. The relay and the notifier wiring on the session
// manager and callback broker are completed here because they point back at
// the hub.
func NewHub(reg *registry.Service, queue *matchmaking.Service, sessions *session.Manager,
	games *game.Engine, ledger *moderation.Ledger, broker *callback.Broker) *Hub {

	h := &Hub{
		clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		InboundCh:    make(chan Inbound, 64),
		quit:         make(chan struct{}),
		Registry:     reg,
		Queue:        queue,
		Sessions:     sessions,
		Games:        games,
		Ledger:       ledger,
		Broker:       broker,
	}
	h.Relay = signaling.NewRelay(sessions, h)
	sessions.SetNotifier(h)
	sessions.SetGameEngine(games)
	broker.SetNotifier(h)
	return h
}

// Run is the hub's main loop. It owns the clients map mutations and
// serializes all action dispatch; block events from the moderation ledger
// are consumed here to end any live session between a freshly blocked pair.
func (h *Hub) Run() {
	log.Println("Call hub started.")
	for {
		select {
		case client := <-h.RegisterCh:
			h.addClient(client)

		case client := <-h.UnregisterCh:
			h.disconnect(client)

		case in := <-h.InboundCh:
			h.dispatch(in.UserID, in.Env)

		case ev := <-h.Ledger.Events():
			if h.Sessions.EndSessionBetween(ev.BlockerID, ev.BlockedID, models.EndReasonBlocked) {
				log.Printf("Session between %s and %s ended by block", ev.BlockerID, ev.BlockedID)
			}

		case <-h.quit:
			return
		}
	}
}

// Stop terminates the Run loop.
func (h *Hub) Stop() { close(h.quit) }

// Notify delivers an event to a connected participant. Safe from any
// goroutine; delivery to a gone participant is a no-op. A slow client's
// full buffer drops the event rather than blocking the hub.
func (h *Hub) Notify(userID string, env models.Envelope) {
	h.clientsMu.RLock()
	client, ok := h.clients[userID]
	h.clientsMu.RUnlock()
	if !ok {
		return
	}
	select {
	case client.GetSendChannel() <- env:
	default:
		log.Printf("WARNING: send buffer full for %s, dropping %s", userID, env.Type)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(client Client) {
	h.clientsMu.Lock()
	h.clients[client.GetUserID()] = client
	h.clientsMu.Unlock()
	log.Printf("Client %s registered", client.GetUserID())
}

// disconnect runs the full departure flow: out of the queue, out of any
// active session (the partner is told the reason), out of the registry.
func (h *Hub) disconnect(client Client) {
	id := client.GetUserID()

	h.clientsMu.Lock()
	current, ok := h.clients[id]
	if !ok || current != client {
		// A reconnect already replaced this client.
		h.clientsMu.Unlock()
		return
	}
	delete(h.clients, id)
	h.clientsMu.Unlock()

	h.Queue.Remove(id)
	h.Sessions.EndSessionFor(id, models.EndReasonDisconnect)
	h.Registry.Remove(id)
	client.Close()
	log.Printf("Client %s disconnected", id)
}

// dispatch decodes and executes one client action. A rejected action
// produces an error event and mutates nothing.
func (h *Hub) dispatch(userID string, env models.Envelope) {
	var err error
	switch env.Type {
	case models.EvJoin:
		err = h.handleJoin(userID, env.Payload)
	case models.EvLeaveQueue:
		h.Queue.Remove(userID)
		h.ack(userID, models.EvLeaveQueue)
	case models.EvSignal:
		err = h.handleSignal(userID, env.Payload)
	case models.EvEndCall:
		err = h.handleEndCall(userID, env.Payload)
	case models.EvGameInvite:
		err = h.handleGameInvite(userID)
	case models.EvGameResponse:
		err = h.handleGameResponse(userID, env.Payload)
	case models.EvSetWord:
		err = h.handleSetWord(userID, env.Payload)
	case models.EvGuess:
		err = h.handleGuess(userID, env.Payload)
	case models.EvQuitGame:
		err = h.handleQuitGame(userID, env.Payload)
	case models.EvBlockUser:
		err = h.handleBlockUser(userID, env.Payload)
	case models.EvReportUser:
		err = h.handleReportUser(userID, env.Payload)
	case models.EvCallbackRequest:
		err = h.handleCallbackRequest(userID, env.Payload)
	case models.EvCallbackResponse:
		err = h.handleCallbackResponse(userID, env.Payload)
	default:
		err = errBadPayload
	}
	if err != nil {
		h.sendError(userID, err)
	}
}

var errBadPayload = errors.New("hub: malformed action payload")

func (h *Hub) handleJoin(userID string, raw json.RawMessage) error {
	var p models.JoinPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return errBadPayload
		}
	}
	if err := h.Queue.Enqueue(userID, p.Filter); err != nil {
		return err
	}
	// The participant may already be paired by the time this is sent; the
	// queued event is informational.
	h.Notify(userID, models.NewEnvelope(models.EvQueued, nil))
	return nil
}

func (h *Hub) handleSignal(userID string, raw json.RawMessage) error {
	var msg models.SignalMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return errBadPayload
	}
	msg.From = userID // the transport identity wins over the claimed one
	return h.Relay.Forward(msg)
}

func (h *Hub) handleEndCall(userID string, raw json.RawMessage) error {
	var p models.EndCallPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return errBadPayload
		}
	}

	sess, ok := h.Sessions.SessionFor(userID)
	if !ok {
		return session.ErrNotInSession
	}
	// A stale or fabricated session id must not end the caller's current call.
	if p.SessionID != "" && p.SessionID != sess.ID {
		return session.ErrNotInSession
	}
	peer := sess.Peer(userID)
	peerInfo, _ := h.Registry.Info(peer)

	if err := h.Sessions.EndSession(sess.ID, models.EndReasonHangup); err != nil {
		return err
	}

	if p.RequestCallback {
		_, err := h.Broker.Request(userID, peer, models.CallSnapshot{
			SessionID: sess.ID,
			CalledAt:  sess.StartedAt,
			Country:   peerInfo.Country,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *Hub) handleGameInvite(userID string) error {
	sess, ok := h.Sessions.SessionFor(userID)
	if !ok {
		return session.ErrNotInSession
	}
	inv, err := h.Games.Invite(sess.ID, userID, sess.Peer(userID))
	if err != nil {
		return err
	}
	h.Notify(inv.ToID, models.NewEnvelope(models.EvGameInvited, models.GameInvitedPayload{
		InviteID: inv.ID,
		FromID:   inv.FromID,
	}))
	h.ack(userID, models.EvGameInvite)
	return nil
}

func (h *Hub) handleGameResponse(userID string, raw json.RawMessage) error {
	var p models.GameResponsePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return errBadPayload
	}
	g, inv, err := h.Games.Respond(p.InviteID, userID, p.Accept)
	if err != nil {
		return err
	}
	if g == nil {
		// Declined; only the inviter needs to know.
		h.Notify(inv.FromID, models.NewEnvelope(models.EvGameEnded, models.GameOutcome{
			Reason: models.GameEndQuit,
		}))
		return nil
	}
	started := models.NewEnvelope(models.EvGameStarted, models.GameStartedPayload{Game: g})
	h.Notify(g.SetterID, started)
	h.Notify(g.GuesserID, started)
	return nil
}

func (h *Hub) handleSetWord(userID string, raw json.RawMessage) error {
	var p models.SetWordPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return errBadPayload
	}
	g, err := h.Games.SetWord(p.GameID, userID, p.Word, p.Category)
	if err != nil {
		return err
	}
	env := models.NewEnvelope(models.EvWordSet, models.WordSetPayload{
		GameID:       g.ID,
		MaskedWord:   g.MaskedWord,
		Category:     g.Category,
		AttemptsLeft: g.AttemptsLeft,
	})
	h.Notify(g.SetterID, env)
	h.Notify(g.GuesserID, env)
	return nil
}

func (h *Hub) handleGuess(userID string, raw json.RawMessage) error {
	var p models.GuessPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return errBadPayload
	}
	sess, ok := h.Sessions.SessionFor(userID)
	if !ok {
		return session.ErrNotInSession
	}
	res, outcome, err := h.Games.Guess(p.GameID, userID, p.Letter)
	if err != nil {
		return err
	}
	env := models.NewEnvelope(models.EvGuessResult, res)
	h.Notify(sess.UserAID, env)
	h.Notify(sess.UserBID, env)
	if outcome != nil {
		ended := models.NewEnvelope(models.EvGameEnded, outcome)
		h.Notify(sess.UserAID, ended)
		h.Notify(sess.UserBID, ended)
	}
	return nil
}

func (h *Hub) handleQuitGame(userID string, raw json.RawMessage) error {
	var p models.QuitGamePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return errBadPayload
	}
	sess, ok := h.Sessions.SessionFor(userID)
	if !ok {
		return session.ErrNotInSession
	}
	out, err := h.Games.Quit(p.GameID, userID)
	if err != nil {
		return err
	}
	ended := models.NewEnvelope(models.EvGameEnded, out)
	h.Notify(sess.UserAID, ended)
	h.Notify(sess.UserBID, ended)
	return nil
}

func (h *Hub) handleBlockUser(userID string, raw json.RawMessage) error {
	var p models.BlockUserPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return errBadPayload
	}
	sessionID := p.SessionID
	if sessionID == "" {
		if sess, ok := h.Sessions.SessionFor(userID); ok {
			sessionID = sess.ID
		}
	}
	if err := h.Ledger.Block(userID, p.BlockedUserID, sessionID); err != nil {
		return err
	}
	// Acknowledgment only; the blocked party is never told.
	h.ack(userID, models.EvBlockUser)
	return nil
}

func (h *Hub) handleReportUser(userID string, raw json.RawMessage) error {
	var p models.ReportUserPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return errBadPayload
	}
	sessionID := p.SessionID
	if sessionID == "" {
		if sess, ok := h.Sessions.SessionFor(userID); ok {
			sessionID = sess.ID
		}
	}
	var err error
	if p.Block {
		err = h.Ledger.BlockAndReport(userID, p.ReportedUserID, p.Reason, p.Description, sessionID)
	} else {
		_, err = h.Ledger.Report(userID, p.ReportedUserID, p.Reason, p.Description, sessionID)
	}
	if err != nil {
		return err
	}
	h.ack(userID, models.EvReportUser)
	return nil
}

func (h *Hub) handleCallbackRequest(userID string, raw json.RawMessage) error {
	var p models.CallbackRequestPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return errBadPayload
	}
	if _, err := h.Broker.Request(userID, p.ToUserID, p.Snapshot); err != nil {
		return err
	}
	h.ack(userID, models.EvCallbackRequest)
	return nil
}

func (h *Hub) handleCallbackResponse(userID string, raw json.RawMessage) error {
	var p models.CallbackResponsePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return errBadPayload
	}
	return h.Broker.Respond(p.RequestID, userID, p.Accept)
}

func (h *Hub) ack(userID, action string) {
	h.Notify(userID, models.NewEnvelope(models.EvAck, models.AckPayload{Action: action}))
}

// sendError maps a service error to its stable wire code and delivers it.
func (h *Hub) sendError(userID string, err error) {
	h.Notify(userID, models.NewEnvelope(models.EvError, models.ErrorPayload{
		Code:    ErrorCode(err),
		Message: err.Error(),
	}))
}

// ErrorCode maps service errors to the wire-level error kinds.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, session.ErrNotInSession), errors.Is(err, signaling.ErrNotInSession):
		return "NotInSession"
	case errors.Is(err, signaling.ErrWrongPartner):
		return "WrongPartner"
	case errors.Is(err, game.ErrGameAlreadyActive):
		return "GameAlreadyActive"
	case errors.Is(err, game.ErrDuplicateGuess):
		return "DuplicateGuess"
	case errors.Is(err, models.ErrInvalidFilterRange):
		return "InvalidFilterRange"
	case errors.Is(err, callback.ErrBlockedPairing):
		return "BlockedPairing"
	case errors.Is(err, callback.ErrRequestExpired):
		return "RequestExpired"
	default:
		return "InvalidAction"
	}
}
