package engine

import (
	"slices"

	"github.com/samber/lo"
)

const (
	NumBalls         = 15
	DefaultWinScore  = 60
	DefaultTurnLimit = 60
)

type Move struct {
	Player PlayerID `json:"player"`
	Ball   int      `json:"ball"`
}

// Ledger tracks the rack, the per-player score and the hit history of one game.
// history is append-only; n is the live length, so undo never reslices the backing array.
type Ledger struct {
	gameType  GameType
	winScore  int
	remaining []int
	scores    map[PlayerID]int
	history   []Move
	n         int
}

func NewLedger(gameType GameType, winScore int) *Ledger {
	if winScore <= 0 {
		winScore = DefaultWinScore
	}
	return &Ledger{
		gameType:  gameType,
		winScore:  winScore,
		remaining: lo.RangeFrom(1, NumBalls),
		scores:    map[PlayerID]int{Player1: 0, Player2: 0},
		history:   make([]Move, 0, NumBalls),
	}
}

// RecordHit pockets ball for player. Returns false and changes nothing if the
// ball is not on the table.
func (l *Ledger) RecordHit(player PlayerID, ball int) bool {
	idx, found := slices.BinarySearch(l.remaining, ball)
	if !found || !player.Valid() {
		return false
	}
	l.remaining = slices.Delete(l.remaining, idx, idx+1)

	l.history = append(l.history[:l.n], Move{Player: player, Ball: ball})
	l.n++

	if l.gameType == GameCarom {
		l.scores[player] += ball
	}
	return true
}

// UndoLast reverts the most recent hit. Returns false on an empty history.
func (l *Ledger) UndoLast() bool {
	if l.n == 0 {
		return false
	}
	l.n--
	last := l.history[l.n]

	// rack is shown sorted, not in pocketing order
	idx, _ := slices.BinarySearch(l.remaining, last.Ball)
	l.remaining = slices.Insert(l.remaining, idx, last.Ball)

	if l.gameType == GameCarom {
		l.scores[last.Player] -= last.Ball
	}
	return true
}

func (l *Ledger) IsGameOver() bool {
	if len(l.remaining) == 0 {
		return true
	}
	if l.gameType == GameCarom {
		return l.scores[Player1] >= l.winScore || l.scores[Player2] >= l.winScore
	}
	return false
}

type Outcome struct {
	Over   bool     `json:"over"`
	Winner PlayerID `json:"winner,omitempty"`
	Draw   bool     `json:"draw"`
}

// Outcome reports who won, if anyone. Carom with both players at or past the
// threshold is a draw only when the scores are equal; otherwise the higher
// score wins. Bida goes to whoever pocketed the last ball.
func (l *Ledger) Outcome() Outcome {
	if !l.IsGameOver() {
		return Outcome{}
	}

	if l.gameType == GameBida {
		return Outcome{Over: true, Winner: l.history[l.n-1].Player}
	}

	s1, s2 := l.scores[Player1], l.scores[Player2]
	switch {
	case s1 == s2:
		return Outcome{Over: true, Draw: true}
	case s1 > s2:
		return Outcome{Over: true, Winner: Player1}
	default:
		return Outcome{Over: true, Winner: Player2}
	}
}

func (l *Ledger) GameType() GameType { return l.gameType }

func (l *Ledger) WinScore() int { return l.winScore }

func (l *Ledger) Remaining() []int { return slices.Clone(l.remaining) }

func (l *Ledger) Moves() []Move { return slices.Clone(l.history[:l.n]) }

func (l *Ledger) Score(p PlayerID) int { return l.scores[p] }

func (l *Ledger) BallsPocketed(p PlayerID) int {
	return lo.CountBy(l.history[:l.n], func(m Move) bool { return m.Player == p })
}

func (l *Ledger) clone() *Ledger {
	c := *l
	c.remaining = slices.Clone(l.remaining)
	c.history = slices.Clone(l.history[:l.n])
	c.scores = map[PlayerID]int{Player1: l.scores[Player1], Player2: l.scores[Player2]}
	return &c
}
