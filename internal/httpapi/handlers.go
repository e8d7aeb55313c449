package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/bida-club-backend/internal/archive"
	"github.com/DoyleJ11/bida-club-backend/internal/hub"
	"github.com/DoyleJ11/bida-club-backend/internal/room"
	"github.com/DoyleJ11/bida-club-backend/internal/types"
	"github.com/DoyleJ11/bida-club-backend/internal/ws"
	pub "github.com/DoyleJ11/bida-club-backend/pkg/types"
)

const (
	codeLength     = 6
	maxCodeRetries = 10
	roomWait       = 5 * time.Second
)

type MatchLister interface {
	Recent(ctx context.Context, limit int) ([]archive.MatchRecord, error)
}

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, codeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func CreateRoom(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var code string
		for range maxCodeRetries {
			c, err := GenerateCode()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to generate code")
				return
			}
			if h.Get(c) == nil {
				code = c
				break
			}
			log.Debug("collision on code, regenerating", zap.String("room", c))
		}
		if code == "" {
			writeError(w, http.StatusServiceUnavailable, "no free room code")
			return
		}

		if h.Ensure(code) == nil {
			writeError(w, http.StatusInternalServerError, "failed to create room")
			return
		}

		writeJSON(w, http.StatusCreated, struct {
			Code string `json:"code"`
		}{Code: code})
	}
}

func ListRooms(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			Rooms []string `json:"rooms"`
		}{Rooms: h.List()})
	}
}

func GetRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm := lookup(w, r, h)
		if rm == nil {
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), roomWait)
		defer cancel()
		v, err := rm.State(ctx)
		if err != nil {
			writeRoomErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, v.Room)
	}
}

// PostAction applies one client message. An action the room ignores still
// answers 200 with applied=false; only refusals are 409.
func PostAction(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm := lookup(w, r, h)
		if rm == nil {
			return
		}

		var cm types.ClientMessage
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<12)).Decode(&cm); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		action, ok := ws.ToAction(cm)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown type")
			return
		}
		do(w, r, rm, action)
	}
}

// DeleteRoom is leave_room for clients without a socket.
func DeleteRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm := lookup(w, r, h)
		if rm == nil {
			return
		}
		do(w, r, rm, room.Action{Type: room.ActLeave})
	}
}

func ListMatches(store MatchLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			writeError(w, http.StatusServiceUnavailable, archive.ErrDisabled.Error())
			return
		}
		limit := 20
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "bad limit")
				return
			}
			limit = n
		}
		recs, err := store.Recent(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list matches")
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Matches []archive.MatchRecord `json:"matches"`
		}{Matches: recs})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func lookup(w http.ResponseWriter, r *http.Request, h *hub.Hub) *room.Room {
	rm := h.Get(chi.URLParam(r, "code"))
	if rm == nil {
		writeError(w, http.StatusNotFound, "room not found")
	}
	return rm
}

func do(w http.ResponseWriter, r *http.Request, rm *room.Room, a room.Action) {
	ctx, cancel := context.WithTimeout(r.Context(), roomWait)
	defer cancel()
	res, err := rm.Do(ctx, "http", a)
	if err != nil {
		writeRoomErr(w, err)
		return
	}
	if res.Err != nil {
		writeError(w, http.StatusConflict, res.Err.Error())
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Applied bool         `json:"applied"`
		Room    pub.RoomView `json:"room"`
	}{Applied: res.Applied, Room: res.Room})
}

func writeRoomErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, room.ErrRoomClosed):
		writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "room busy")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: msg})
}
