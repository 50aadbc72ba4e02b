package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"care-companion/internal/app"
	"care-companion/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const recordTimeout = 5 * time.Second

type WSHandler struct {
	service     *app.CompanionService
	idleTimeout time.Duration
	upgrader    websocket.Upgrader
}

func NewWSHandler(service *app.CompanionService, idleTimeout time.Duration) *WSHandler {
	return &WSHandler{
		service:     service,
		idleTimeout: idleTimeout,
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

type transcriptPayload struct {
	Text string `json:"text"`
}

type selectPayload struct {
	Label string `json:"label"`
}

type submitPayload struct {
	Answer string `json:"answer"`
}

type navigatePayload struct {
	Screen domain.Screen `json:"screen"`
}

type idlePayload struct {
	Visible bool `json:"visible"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

const (
	sendBuffer = 32
	writeWait  = 10 * time.Second
)

// deviceConn is the websocket side of a device. Every write goes through
// send and never blocks the caller: when the buffer is full the socket is
// kicked, and once done or gone is closed further messages are dropped.
type deviceConn struct {
	id   string
	send chan outboundMessage[any]
	done chan struct{}
	gone chan struct{}

	kickOnce sync.Once
	kick     func()
}

func newDeviceConn(kick func()) *deviceConn {
	return &deviceConn{
		id:   uuid.NewString(),
		send: make(chan outboundMessage[any], sendBuffer),
		done: make(chan struct{}),
		gone: make(chan struct{}),
		kick: kick,
	}
}

func (c *deviceConn) ID() string { return c.id }

// Navigate implements app.Connection.
func (c *deviceConn) Navigate(screen domain.Screen) {
	c.push("navigate", navigatePayload{Screen: screen})
}

func (c *deviceConn) push(typ string, payload any) bool {
	select {
	case <-c.done:
		return false
	case <-c.gone:
		return false
	default:
	}
	select {
	case c.send <- outboundMessage[any]{Type: typ, Payload: payload}:
		return true
	default:
		c.kickOnce.Do(func() {
			log.Printf("ws send buffer full (%s), closing", c.id)
			if c.kick != nil {
				c.kick()
			}
		})
		return false
	}
}

// writeLoop drains send until done is closed or a write fails.
func (c *deviceConn) writeLoop(ws *websocket.Conn) {
	defer close(c.gone)
	for {
		select {
		case msg := <-c.send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(msg); err != nil {
				log.Printf("ws write error (%s): %v", c.id, err)
				c.kickOnce.Do(func() {
					if c.kick != nil {
						c.kick()
					}
				})
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *deviceConn) fail(message string) {
	c.push("error", errorPayload{Message: message})
}

// ServeWS upgrades the request and binds the socket to the subject's device
// and to a fresh game session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	subjectID := r.URL.Query().Get("subjectId")
	token := r.URL.Query().Get("token")
	if subjectID == "" {
		http.Error(w, "missing subjectId", http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn := newDeviceConn(func() { _ = ws.Close() })
	go conn.writeLoop(ws)

	h.service.Connect(subjectID, conn)
	log.Printf("device %s connected (%s)", subjectID, conn.id)

	game := h.service.NewGame(subjectID, token,
		app.WithOnChange(func(s app.State) { conn.push("state", s) }),
		app.WithOnFinish(func(s domain.Summary) {
			conn.push("finished", app.Evaluate(s))
			recordCtx, done := context.WithTimeout(context.Background(), recordTimeout)
			defer done()
			if err := h.service.RecordResult(recordCtx, subjectID, s); err != nil {
				log.Printf("record result for %s: %v", subjectID, err)
			}
		}),
	)
	idle := app.NewIdleWatcher(h.idleTimeout, nil, func(visible bool) {
		conn.push("idle", idlePayload{Visible: visible})
	})

	var inflight sync.WaitGroup
	async := func(fn func()) {
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			fn()
		}()
	}

	conn.push("state", game.State())

	for {
		var inbound inboundMessage
		if err := ws.ReadJSON(&inbound); err != nil {
			break
		}
		idle.Touch()
		h.service.Heartbeat(subjectID)

		switch inbound.Type {
		case "ready":
			if err := h.service.Ready(subjectID, conn); err != nil {
				conn.fail(err.Error())
			}
		case "load":
			async(func() {
				if err := game.Load(ctx); err != nil {
					log.Printf("load game for %s: %v", subjectID, err)
				}
			})
		case "transcript":
			var payload transcriptPayload
			if err := decodePayload(inbound.Payload, &payload); err != nil {
				conn.fail("invalid transcript payload")
				continue
			}
			game.SetTranscript(payload.Text)
		case "select":
			var payload selectPayload
			if err := decodePayload(inbound.Payload, &payload); err != nil {
				conn.fail("invalid select payload")
				continue
			}
			if !game.Select(payload.Label) {
				conn.fail("choice not available")
			}
		case "submit":
			var payload submitPayload
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
					conn.fail("invalid submit payload")
					continue
				}
			}
			async(func() {
				if payload.Answer != "" {
					game.Submit(ctx, payload.Answer)
				} else {
					game.SubmitCurrent(ctx)
				}
			})
		case "skip":
			game.Skip()
		case "hint":
			game.ToggleHint()
		case "touch":
		default:
			conn.fail("unsupported message type")
		}
	}

	game.Close()
	idle.Stop()
	cancel()
	h.service.Disconnect(subjectID, conn)
	close(conn.done)
	inflight.Wait()
	<-conn.gone
	log.Printf("device %s disconnected (%s)", subjectID, conn.id)
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.New("missing payload")
	}
	return json.Unmarshal(raw, v)
}
