package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/bida-club-backend/internal/archive"
	"github.com/DoyleJ11/bida-club-backend/internal/flow"
	"github.com/DoyleJ11/bida-club-backend/internal/hub"
	"github.com/DoyleJ11/bida-club-backend/internal/room"
	"github.com/DoyleJ11/bida-club-backend/internal/types"
	"github.com/DoyleJ11/bida-club-backend/internal/ws"
	pub "github.com/DoyleJ11/bida-club-backend/pkg/types"
)

type stubMatches struct {
	recs  []archive.MatchRecord
	err   error
	limit int
}

func (s *stubMatches) Recent(_ context.Context, limit int) ([]archive.MatchRecord, error) {
	s.limit = limit
	return s.recs, s.err
}

func setupTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	h := hub.NewHub(context.Background(), room.Config{Flow: flow.Config{TurnLimit: 60, WinScore: 60}})
	if opts.AllowedOrigins == nil {
		opts.AllowedOrigins = []string{"*"}
	}
	srv := httptest.NewServer(SetupRoutes(h, opts))
	t.Cleanup(func() {
		srv.Close()
		h.Shutdown()
	})
	return srv
}

func createRoom(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, err := http.Post(srv.URL+"/rooms", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Code
}

type actionResponse struct {
	Applied bool         `json:"applied"`
	Room    pub.RoomView `json:"room"`
	Error   string       `json:"error"`
}

func postAction(t *testing.T, srv *httptest.Server, code string, msg types.ClientMessage) (int, actionResponse) {
	t.Helper()
	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+"/rooms/"+code+"/actions", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out actionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestGenerateCode(t *testing.T) {
	for range 50 {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, c := range code {
			if !strings.ContainsRune("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", c) {
				t.Fatalf("unexpected rune %q in %s", c, code)
			}
		}
	}
}

func TestHealthz(t *testing.T) {
	srv := setupTestServer(t, Options{})
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateAndGetRoom(t *testing.T) {
	srv := setupTestServer(t, Options{})
	code := createRoom(t, srv)

	resp, err := http.Get(srv.URL + "/rooms/" + code)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view pub.RoomView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, code, view.Code)
	assert.Equal(t, string(flow.StateEnteringHostName), view.State)
	assert.Equal(t, "/", view.Screen)
	assert.Nil(t, view.Match)

	resp, err = http.Get(srv.URL + "/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	var list struct {
		Rooms []string `json:"rooms"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Contains(t, list.Rooms, code)
}

func TestGetRoom_Unknown(t *testing.T) {
	srv := setupTestServer(t, Options{})
	resp, err := http.Get(srv.URL + "/rooms/NOPE00")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPostAction_FullFlowAndHit(t *testing.T) {
	srv := setupTestServer(t, Options{})
	code := createRoom(t, srv)

	steps := []types.ClientMessage{
		{Type: pub.MsgSetHostName, Name: "Alice"},
		{Type: pub.MsgSelectMode, Mode: "solo"},
		{Type: pub.MsgSelectGameType, GameType: "carom"},
		{Type: pub.MsgConfirmDetails},
		{Type: pub.MsgSetGuestName, Name: "Bob", FirstTurn: 2},
	}
	for _, msg := range steps {
		status, out := postAction(t, srv, code, msg)
		require.Equal(t, http.StatusOK, status, msg.Type)
		require.True(t, out.Applied, msg.Type)
	}

	status, out := postAction(t, srv, code, types.ClientMessage{Type: pub.MsgRecordHit, Ball: 7})
	require.Equal(t, http.StatusOK, status)
	require.True(t, out.Applied)
	require.NotNil(t, out.Room.Match)
	assert.Equal(t, "/GamePlay", out.Room.Screen)
	assert.Equal(t, 2, out.Room.Match.ActivePlayer)
	assert.Equal(t, 7, out.Room.Match.Players[1].Score)
	assert.NotContains(t, out.Room.Match.Remaining, 7)

	// same ball again is ignored, not refused
	status, out = postAction(t, srv, code, types.ClientMessage{Type: pub.MsgRecordHit, Ball: 7})
	assert.Equal(t, http.StatusOK, status)
	assert.False(t, out.Applied)
}

func TestPostAction_Errors(t *testing.T) {
	srv := setupTestServer(t, Options{})
	code := createRoom(t, srv)

	status, out := postAction(t, srv, code, types.ClientMessage{Type: pub.MsgRecordHit, Ball: 1})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, room.ErrNotInPlay.Error(), out.Error)

	status, out = postAction(t, srv, code, types.ClientMessage{Type: "dance"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "unknown type", out.Error)

	resp, err := http.Post(srv.URL+"/rooms/"+code+"/actions", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteRoom_ResetsSessionAndClosesRoom(t *testing.T) {
	srv := setupTestServer(t, Options{})
	code := createRoom(t, srv)
	postAction(t, srv, code, types.ClientMessage{Type: pub.MsgSetHostName, Name: "Alice"})

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/rooms/"+code, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out actionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Applied)
	assert.Empty(t, out.Room.HostName)
	assert.Equal(t, string(flow.StateEnteringHostName), out.Room.State)

	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL + "/rooms/" + code)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusNotFound
	}, time.Second, 10*time.Millisecond)
}

func TestListMatches(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		srv := setupTestServer(t, Options{})
		resp, err := http.Get(srv.URL + "/matches")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("limit", func(t *testing.T) {
		stub := &stubMatches{recs: []archive.MatchRecord{{RoomCode: "ABC123", GameType: "bida"}}}
		srv := setupTestServer(t, Options{Matches: stub})

		resp, err := http.Get(srv.URL + "/matches?limit=5")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 5, stub.limit)

		var body struct {
			Matches []archive.MatchRecord `json:"matches"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body.Matches, 1)
		assert.Equal(t, "ABC123", body.Matches[0].RoomCode)
	})

	t.Run("bad limit", func(t *testing.T) {
		srv := setupTestServer(t, Options{Matches: &stubMatches{}})
		resp, err := http.Get(srv.URL + "/matches?limit=-1")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("store error", func(t *testing.T) {
		srv := setupTestServer(t, Options{Matches: &stubMatches{err: errors.New("db down")}})
		resp, err := http.Get(srv.URL + "/matches")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func readServerMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) types.ServerMessage {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg types.ServerMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestWebSocket_RoundTrip(t *testing.T) {
	srv := setupTestServer(t, Options{})
	code := createRoom(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?code=" + code
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	first := readServerMessage(t, ctx, conn)
	assert.Equal(t, pub.MsgRoomUpdate, first.Type)
	require.NotNil(t, first.Room)
	assert.Equal(t, code, first.Room.Code)

	payload, _ := json.Marshal(types.ClientMessage{Type: pub.MsgSetHostName, Name: "Alice"})
	require.NoError(t, conn.Write(ctx, websocket.MessageText, payload))

	update := readServerMessage(t, ctx, conn)
	assert.Equal(t, pub.MsgRoomUpdate, update.Type)
	assert.Equal(t, 1, update.Version)
	assert.Equal(t, "Alice", update.Room.HostName)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"type":"dance"}`)))
	bad := readServerMessage(t, ctx, conn)
	assert.Equal(t, pub.MsgError, bad.Type)
	assert.Equal(t, "unknown type", bad.Error)

	// REST actions reach socket clients too
	postAction(t, srv, code, types.ClientMessage{Type: pub.MsgSelectMode, Mode: "team"})
	update = readServerMessage(t, ctx, conn)
	assert.Equal(t, "team", update.Room.Mode)
}

func TestWebSocket_UnknownRoom(t *testing.T) {
	srv := setupTestServer(t, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?code=NOPE00"
	_, resp, err := websocket.Dial(ctx, url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocket_RateLimited(t *testing.T) {
	srv := setupTestServer(t, Options{WS: ws.Options{RateLimit: 0.001, RateBurst: 1}})
	code := createRoom(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?code=" + code
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")
	readServerMessage(t, ctx, conn)

	payload, _ := json.Marshal(types.ClientMessage{Type: pub.MsgSetHostName, Name: "Alice"})
	require.NoError(t, conn.Write(ctx, websocket.MessageText, payload))
	assert.Equal(t, pub.MsgRoomUpdate, readServerMessage(t, ctx, conn).Type)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, payload))
	limited := readServerMessage(t, ctx, conn)
	assert.Equal(t, pub.MsgError, limited.Type)
	assert.Equal(t, ws.ErrRateLimited.Error(), limited.Error)
}
