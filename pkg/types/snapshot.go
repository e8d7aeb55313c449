package types

// RoomView is the JSON snapshot sent in every room_update and returned by GET /rooms/{code}.
type RoomView struct {
	Code       string     `json:"code"`
	Version    int        `json:"version"`
	State      string     `json:"state"`
	Screen     string     `json:"screen"`
	HostName   string     `json:"host_name,omitempty"`
	GuestName  string     `json:"guest_name,omitempty"`
	Mode       string     `json:"mode,omitempty"`
	GameType   string     `json:"game_type,omitempty"`
	CanConfirm bool       `json:"can_confirm"`
	Match      *MatchView `json:"match,omitempty"`
}

type MatchView struct {
	Players          [2]PlayerView `json:"players"`
	Remaining        []int         `json:"remaining"`
	History          []MoveView    `json:"history"`
	ActivePlayer     int           `json:"active_player"`
	SecondsRemaining int           `json:"seconds_remaining"`
	TurnLimit        int           `json:"turn_limit"`
	Paused           bool          `json:"paused"`
	WinScore         int           `json:"win_score"`
	Outcome          *OutcomeView  `json:"outcome,omitempty"`
}

type PlayerView struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Balls  int    `json:"balls"`
	Active bool   `json:"active"`
}

type MoveView struct {
	Player int `json:"player"`
	Ball   int `json:"ball"`
}

// OutcomeView is present only once the match is decided. Winner is 0 on a draw.
type OutcomeView struct {
	Winner     int    `json:"winner"`
	WinnerName string `json:"winner_name,omitempty"`
	Draw       bool   `json:"draw"`
}
