package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"voice-quiz/internal/app"
	"voice-quiz/internal/domain"
	"voice-quiz/internal/playback"
)

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type completedPayload struct {
	Token   uint64 `json:"token"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

type answerPayload struct {
	Response string `json:"response"`
}

type controlPayload struct {
	Action string `json:"action"`
}

type playPayload struct {
	Token  uint64              `json:"token"`
	Slot   domain.PlaybackSlot `json:"slot"`
	Asset  domain.AssetRef     `json:"asset"`
	Volume float64             `json:"volume"`
}

type slotPayload struct {
	Slot   domain.PlaybackSlot `json:"slot"`
	Volume *float64            `json:"volume,omitempty"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and runs one quiz session whose audio is
// played by the connected device. The device reports each finished clip
// back with a completed message carrying the play token.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 64)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	var closeOnce sync.Once
	shutdown := func() { closeOnce.Do(func() { close(closeSignals) }) }

	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-send:
				if err := conn.WriteJSON(msg); err != nil {
					log.Printf("ws write error: %v", err)
					shutdown()
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	enqueue := func(msg outboundMessage[any]) bool {
		select {
		case send <- msg:
			return true
		case <-closeSignals:
			return false
		}
	}

	port := newRemotePort(enqueue)
	ctx := context.Background()
	session, err := h.service.StartSession(ctx, quizID, port)
	if err != nil {
		shutdown()
		<-writerDone
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	sessionID := session.ID()
	defer h.service.Close(ctx, sessionID)

	updates, cancel, err := h.service.Subscribe(ctx, sessionID)
	if err != nil {
		enqueue(errorMessage(err))
	} else {
		defer cancel()
		go func() {
			for update := range updates {
				if !enqueue(outboundMessage[any]{Type: update.Type, Payload: updatePayload(update)}) {
					return
				}
			}
		}()
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "completed":
			var payload completedPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				enqueue(errorText("invalid completed payload"))
				continue
			}
			port.complete(payload)
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				enqueue(errorText("invalid answer payload"))
				continue
			}
			if err := h.service.Submit(ctx, sessionID, payload.Response); err != nil {
				enqueue(errorMessage(err))
			}
		case "control":
			var payload controlPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				enqueue(errorText("invalid control payload"))
				continue
			}
			if err := h.service.Control(ctx, sessionID, payload.Action); err != nil {
				enqueue(errorMessage(err))
			}
		default:
			enqueue(errorText("unsupported message type"))
		}
	}

	shutdown()
	<-writerDone
}

func updatePayload(u app.Update) any {
	switch u.Type {
	case app.UpdateScore:
		return u.Score
	case app.UpdateError:
		return errorPayload{Message: u.Error}
	default:
		return u.Snapshot
	}
}

func errorMessage(err error) outboundMessage[any] {
	return errorText(err.Error())
}

func errorText(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

var errConnectionClosed = errors.New("device connection closed")

// remotePort is a playback.Port whose backend is the websocket client.
type remotePort struct {
	send func(outboundMessage[any]) bool

	mu      sync.Mutex
	handler func(playback.Completion)
	slots   map[playback.Token]domain.PlaybackSlot
}

func newRemotePort(send func(outboundMessage[any]) bool) *remotePort {
	return &remotePort{send: send, slots: make(map[playback.Token]domain.PlaybackSlot)}
}

func (p *remotePort) Play(_ context.Context, req playback.Request) error {
	p.mu.Lock()
	p.slots[req.Token] = req.Slot
	p.mu.Unlock()

	msg := outboundMessage[any]{Type: "play", Payload: playPayload{
		Token:  uint64(req.Token),
		Slot:   req.Slot,
		Asset:  req.Asset,
		Volume: req.Volume,
	}}
	if !p.send(msg) {
		p.mu.Lock()
		delete(p.slots, req.Token)
		p.mu.Unlock()
		return errConnectionClosed
	}
	return nil
}

func (p *remotePort) Stop(slot domain.PlaybackSlot) error {
	p.mu.Lock()
	for token, s := range p.slots {
		if s == slot {
			delete(p.slots, token)
		}
	}
	p.mu.Unlock()
	if !p.send(outboundMessage[any]{Type: "stop", Payload: slotPayload{Slot: slot}}) {
		return errConnectionClosed
	}
	return nil
}

func (p *remotePort) SetVolume(slot domain.PlaybackSlot, level float64) error {
	if !p.send(outboundMessage[any]{Type: "volume", Payload: slotPayload{Slot: slot, Volume: &level}}) {
		return errConnectionClosed
	}
	return nil
}

func (p *remotePort) OnCompletion(handler func(playback.Completion)) {
	p.mu.Lock()
	p.handler = handler
	p.mu.Unlock()
}

// complete forwards a device report. Tokens the port no longer tracks are
// still forwarded so the coordinator can log them as stale.
func (p *remotePort) complete(payload completedPayload) {
	token := playback.Token(payload.Token)
	p.mu.Lock()
	slot := p.slots[token]
	delete(p.slots, token)
	handler := p.handler
	p.mu.Unlock()
	if handler == nil {
		return
	}

	done := playback.Completion{Token: token, Slot: slot, Outcome: playback.OutcomeFinished}
	if payload.Outcome == string(playback.OutcomeFailed) {
		done.Outcome = playback.OutcomeFailed
		if payload.Error != "" {
			done.Err = errors.New(payload.Error)
		}
	}
	handler(done)
}
