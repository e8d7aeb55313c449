package engine

type ClockState string

const (
	ClockRunning ClockState = "running"
	ClockPaused  ClockState = "paused"
)

// TurnClock counts down the active player's turn one second per Tick.
// It holds no timer itself; the owner decides when a second has passed.
type TurnClock struct {
	State            ClockState `json:"state"`
	ActivePlayer     PlayerID   `json:"active_player"`
	SecondsRemaining int        `json:"seconds_remaining"`
	Limit            int        `json:"limit"`
}

func NewTurnClock(limit int, first PlayerID) TurnClock {
	if limit <= 0 {
		limit = DefaultTurnLimit
	}
	if !first.Valid() {
		first = Player1
	}
	return TurnClock{
		State:            ClockRunning,
		ActivePlayer:     first,
		SecondsRemaining: limit,
		Limit:            limit,
	}
}

// Tick consumes one second. Reports whether the turn advanced.
func (c *TurnClock) Tick() bool {
	if c.State != ClockRunning {
		return false
	}
	c.SecondsRemaining--
	if c.SecondsRemaining <= 0 {
		c.advance()
		return true
	}
	return false
}

func (c *TurnClock) Pause() bool {
	if c.State == ClockPaused {
		return false
	}
	c.State = ClockPaused
	return true
}

func (c *TurnClock) Resume() bool {
	if c.State == ClockRunning {
		return false
	}
	c.State = ClockRunning
	return true
}

// EndTurn hands the table to the other player, even while paused.
func (c *TurnClock) EndTurn() {
	c.advance()
}

func (c *TurnClock) advance() {
	c.ActivePlayer = c.ActivePlayer.Other()
	c.SecondsRemaining = c.Limit
	c.State = ClockRunning
}
