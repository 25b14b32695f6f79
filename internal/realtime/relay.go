package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-connect-api/internal/models"
	appErrors "github.com/noah-isme/campus-connect-api/pkg/errors"
)

const (
	writeTimeout = 5 * time.Second
	readLimit    = 64 << 10
)

// Processor authorises participants and turns inbound messages into persisted, publishable events.
type Processor interface {
	Authorize(ctx context.Context, sessionID string, actor models.Actor) error
	Process(ctx context.Context, sessionID string, actor models.Actor, in Inbound) (*Event, error)
}

// Relay upgrades participants to websockets and wires them to the hub and bus.
type Relay struct {
	hub       *Hub
	bus       Bus
	processor Processor
	origins   []string
	logger    *zap.Logger
}

// NewRelay constructs a Relay.
func NewRelay(hub *Hub, bus Bus, processor Processor, origins []string, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{hub: hub, bus: bus, processor: processor, origins: origins, logger: logger}
}

// Start forwards bus events into the local hub until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	return r.bus.StartForwarder(ctx, func(evt Event) {
		r.hub.Broadcast(evt)
	})
}

// Authorize checks that actor may join the session. Call it before Serve so failures use the JSON envelope.
func (r *Relay) Authorize(ctx context.Context, sessionID string, actor models.Actor) error {
	return r.processor.Authorize(ctx, sessionID, actor)
}

// Serve upgrades the request and runs the participant until either side closes.
func (r *Relay) Serve(w http.ResponseWriter, req *http.Request, sessionID string, actor models.Actor) error {
	opts := &websocket.AcceptOptions{}
	if len(r.origins) > 0 {
		opts.OriginPatterns = r.origins
	}
	conn, err := websocket.Accept(w, req, opts)
	if err != nil {
		return err
	}
	conn.SetReadLimit(readLimit)

	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()

	client := r.hub.Join(sessionID, actor.UserID)
	defer r.hub.Leave(client)
	r.announce(ctx, EventJoin, sessionID, actor)
	defer r.announce(context.Background(), EventLeave, sessionID, actor)

	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				readErr <- err
				return
			}
			r.handleInbound(ctx, client, sessionID, actor, data)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return nil
		case err := <-readErr:
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				_ = conn.Close(websocket.StatusNormalClosure, "closed")
				return nil
			}
			_ = conn.Close(websocket.StatusPolicyViolation, "read_failed")
			return nil
		case evt, ok := <-client.Outbound:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "closed")
				return nil
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, evt)
			cancelWrite()
			if err != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "write_failed")
				return nil
			}
		}
	}
}

func (r *Relay) handleInbound(ctx context.Context, client *Client, sessionID string, actor models.Actor, data []byte) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		r.replyError(client, sessionID, appErrors.Clone(appErrors.ErrValidation, "malformed message"))
		return
	}
	evt, err := r.processor.Process(ctx, sessionID, actor, in)
	if err != nil {
		r.replyError(client, sessionID, err)
		return
	}
	if evt == nil {
		return
	}
	if err := r.bus.Publish(ctx, *evt); err != nil {
		r.logger.Warn("publish relay event", zap.String("session_id", sessionID), zap.Error(err))
		r.replyError(client, sessionID, appErrors.Clone(appErrors.ErrInternal, "event could not be delivered"))
	}
}

func (r *Relay) announce(ctx context.Context, typ EventType, sessionID string, actor models.Actor) {
	evt, err := NewEvent(typ, sessionID, actor.UserID, actor.FullName, nil)
	if err != nil {
		return
	}
	if err := r.bus.Publish(ctx, evt); err != nil {
		r.logger.Warn("publish presence", zap.String("session_id", sessionID), zap.String("type", string(typ)), zap.Error(err))
	}
}

func (r *Relay) replyError(client *Client, sessionID string, err error) {
	appErr := appErrors.FromError(err)
	body := map[string]string{"code": appErr.Code, "message": appErr.Message}
	if appErr.Kind == appErrors.KindInternal {
		body = map[string]string{"code": appErrors.ErrInternal.Code, "message": appErrors.ErrInternal.Message}
	}
	evt, mErr := NewEvent(EventError, sessionID, "", "", body)
	if mErr != nil {
		return
	}
	r.hub.Send(client, evt)
}
