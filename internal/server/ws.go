package server

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/roach88/mentu/internal/apperr"
	"github.com/roach88/mentu/internal/model"
	"github.com/roach88/mentu/internal/workspace"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client actions.
const (
	actionAuth      = "auth"
	actionSubscribe = "subscribe"
)

// Server events.
const (
	eventAuthenticated = "authenticated"
	eventSubscribed    = "subscribed"
	eventOperation     = "operation"
	eventError         = "error"
)

type clientMessage struct {
	Action  string          `json:"action"`
	Token   string          `json:"token,omitempty"`
	Filters SubscribeFilter `json:"filters,omitempty"`
}

type serverEvent struct {
	Event   string           `json:"event"`
	Actor   string           `json:"actor,omitempty"`
	Filters *SubscribeFilter `json:"filters,omitempty"`
	Data    *model.Operation `json:"data,omitempty"`
	Error   apperr.Code      `json:"error,omitempty"`
	Message string           `json:"message,omitempty"`
}

// SubscribeFilter selects the operations delivered to a subscription. Empty
// fields do not constrain.
type SubscribeFilter struct {
	Ops         []model.Kind `json:"ops,omitempty"`
	Actors      []string     `json:"actors,omitempty"`
	Commitments []string     `json:"commitments,omitempty"`
	Memories    []string     `json:"memories,omitempty"`
}

// Match reports whether op passes every set field of f. The commitments
// filter admits the commit that created a listed commitment and every
// operation transitioning one; the memories filter admits the capture of a
// listed memory and annotations on it.
func (f *SubscribeFilter) Match(op *model.Operation) bool {
	if len(f.Ops) > 0 && !slices.Contains(f.Ops, op.Op) {
		return false
	}
	if len(f.Actors) > 0 && !slices.Contains(f.Actors, op.Actor) {
		return false
	}
	if len(f.Commitments) > 0 {
		ref := op.CommitmentRef()
		if op.Op == model.KindCommit {
			ref = op.ID
		}
		if ref == "" || !slices.Contains(f.Commitments, ref) {
			return false
		}
	}
	if len(f.Memories) > 0 {
		var ref string
		switch p := op.Payload.(type) {
		case *model.CapturePayload:
			ref = op.ID
		case *model.AnnotatePayload:
			ref = p.Target
		}
		if ref == "" || !slices.Contains(f.Memories, ref) {
			return false
		}
	}
	return true
}

// subscriber is one websocket client. Writes come from both the read loop
// and the ledger watcher, so they share a mutex.
type subscriber struct {
	conn *websocket.Conn

	mu      sync.Mutex
	actor   string
	authed  bool
	filters []SubscribeFilter
}

func (c *subscriber) send(ev serverEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(ev)
}

func (c *subscriber) wants(op *model.Operation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.authed {
		return false
	}
	for i := range c.filters {
		if c.filters[i].Match(op) {
			return true
		}
	}
	return false
}

// subscribe upgrades to a websocket. The first message must be
// {"action":"auth","token":...}; each later {"action":"subscribe"} adds a
// filter. Operations appended after the connection opened are pushed as
// {"event":"operation","data":...} when any filter matches.
func (s *Server) subscribe(w http.ResponseWriter, r *http.Request) {
	ops, err := s.ws.ReadAll()
	if err != nil {
		writeError(w, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()
	subscribers.Inc()
	defer subscribers.Dec()

	c := &subscriber{conn: conn}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := s.ws.Ledger().Watch(ctx, len(ops), s.logger, func(_ int, op model.Operation) {
			if !c.wants(&op) {
				return
			}
			if err := c.send(serverEvent{Event: eventOperation, Data: &op}); err != nil {
				s.logger.Debug("websocket send failed", slog.String("error", err.Error()))
			}
		})
		if err != nil {
			s.logger.Error("ledger watch failed", slog.String("error", err.Error()))
		}
	}()
	defer func() {
		cancel()
		<-done
	}()

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			s.logger.Debug("websocket client disconnected", slog.String("error", err.Error()))
			return
		}
		if !s.handleMessage(c, &msg) {
			return
		}
	}
}

// handleMessage processes one client message and reports whether the
// connection stays open.
func (s *Server) handleMessage(c *subscriber, msg *clientMessage) bool {
	switch msg.Action {
	case actionAuth:
		keys, err := s.ws.APIKeys()
		if err != nil {
			s.logger.Error("reading api keys", slog.String("error", err.Error()))
			return false
		}
		key, ok := workspace.LookupAPIKey(keys, msg.Token)
		if !ok || !key.Can(workspace.PermRead) {
			_ = c.send(serverEvent{Event: eventError, Error: apperr.CodeUnauthorized, Message: "Invalid API key"})
			c.mu.Lock()
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Unauthorized"))
			c.mu.Unlock()
			return false
		}
		c.mu.Lock()
		c.authed = true
		c.actor = key.Actor
		c.mu.Unlock()
		_ = c.send(serverEvent{Event: eventAuthenticated, Actor: key.Actor})
	case actionSubscribe:
		c.mu.Lock()
		authed := c.authed
		if authed {
			c.filters = append(c.filters, msg.Filters)
		}
		c.mu.Unlock()
		if !authed {
			_ = c.send(serverEvent{Event: eventError, Error: apperr.CodeUnauthorized, Message: "Must authenticate first"})
			return true
		}
		f := msg.Filters
		_ = c.send(serverEvent{Event: eventSubscribed, Filters: &f})
	default:
		_ = c.send(serverEvent{Event: eventError, Error: apperr.CodeInvalidOp, Message: "Unknown action: " + msg.Action})
	}
	return true
}
