package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/DoyleJ11/bida-club-backend/internal/engine"
	"github.com/DoyleJ11/bida-club-backend/internal/hub"
	"github.com/DoyleJ11/bida-club-backend/internal/room"
	"github.com/DoyleJ11/bida-club-backend/internal/types"
	pub "github.com/DoyleJ11/bida-club-backend/pkg/types"
)

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 5 * time.Minute
	actionWait   = 5 * time.Second
)

var ErrRateLimited = errors.New("too many messages")

type Options struct {
	OriginPatterns []string
	RateLimit      float64 // messages per second per connection
	RateBurst      int
	Logger         *zap.Logger
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		rm := h.Get(code)
		if rm == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		log := log.With(zap.String("room", code), zap.String("client", clientID))
		out := make(chan room.Snapshot, 8)

		if !rm.Send(room.Join{ClientID: clientID, Outbox: out}) {
			conn.Close(websocket.StatusGoingAway, "room closed")
			return
		}
		defer rm.Send(room.Leave{ClientID: clientID})
		log.Debug("client connected")

		// Writer goroutine. The room closes out when it lets go of this client.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				view := snap.Room
				if err := writeJSON(writeCtx, conn, types.ServerMessage{Type: snap.Type, Version: snap.Version, Room: &view}); err != nil {
					log.Debug("write failed", zap.Error(err))
					writeCancel()
					return
				}
			}
			// the room let go of us; end the read loop too
			conn.Close(websocket.StatusGoingAway, "room closed")
		}()

		limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst)
		if opts.RateLimit <= 0 {
			limiter = rate.NewLimiter(rate.Inf, 0)
		}

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(writeCtx, readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Debug("client disconnected")
				default:
					log.Debug("read failed", zap.Error(err))
				}
				return
			}

			if !limiter.Allow() {
				_ = writeError(writeCtx, conn, ErrRateLimited.Error())
				continue
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = writeError(writeCtx, conn, "bad json")
				continue
			}

			action, ok := ToAction(cm)
			if !ok {
				_ = writeError(writeCtx, conn, "unknown type")
				continue
			}

			actx, acancel := context.WithTimeout(writeCtx, actionWait)
			res, err := rm.Do(actx, clientID, action)
			acancel()
			if err != nil {
				if errors.Is(err, room.ErrRoomClosed) {
					return
				}
				_ = writeError(writeCtx, conn, err.Error())
				continue
			}
			if res.Err != nil {
				_ = writeError(writeCtx, conn, res.Err.Error())
			}
		}
	}
}

// ToAction maps a wire message onto a room action. Field values that are not
// recognised are passed through as zero or invalid values so the room can
// ignore them.
func ToAction(m types.ClientMessage) (room.Action, bool) {
	a := room.Action{
		Type:      room.ActionType(m.Type),
		Name:      m.Name,
		Mode:      engine.Mode(m.Mode),
		GameType:  engine.GameType(m.GameType),
		FirstTurn: engine.PlayerID(m.FirstTurn),
		Ball:      m.Ball,
	}
	switch m.Type {
	case pub.MsgSetHostName, pub.MsgSelectMode, pub.MsgSelectGameType,
		pub.MsgConfirmDetails, pub.MsgSetGuestName, pub.MsgRecordHit,
		pub.MsgUndo, pub.MsgEndTurn, pub.MsgPause, pub.MsgResume,
		pub.MsgLeaveRoom:
		return a, true
	default:
		return room.Action{}, false
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, msg string) error {
	return writeJSON(ctx, conn, types.ServerMessage{Type: pub.MsgError, Error: msg})
}

func writeJSON(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
