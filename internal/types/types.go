package types

import "github.com/DoyleJ11/bida-club-backend/pkg/types"

type ClientMessage struct {
	Type      string `json:"type"`
	Name      string `json:"name,omitempty"`
	Mode      string `json:"mode,omitempty"`
	GameType  string `json:"game_type,omitempty"`
	FirstTurn int    `json:"first_turn,omitempty"`
	Ball      int    `json:"ball,omitempty"`
}

type ServerMessage struct {
	Type    string          `json:"type"` // "room_update" | "end_match" | "error"
	Version int             `json:"version,omitempty"`
	Room    *types.RoomView `json:"room,omitempty"`
	Error   string          `json:"error,omitempty"`
}
