package engine

import (
	"errors"
	"time"
)

var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrGameAlreadyCompleted = errors.New("game already completed")

type PlayerID int

const (
	Player1 PlayerID = 1
	Player2 PlayerID = 2
)

func (p PlayerID) Valid() bool { return p == Player1 || p == Player2 }

func (p PlayerID) Other() PlayerID {
	if p == Player1 {
		return Player2
	}
	return Player1
}

type GameType string

const (
	GameBida  GameType = "bida"
	GameCarom GameType = "carom"
)

func (g GameType) Valid() bool { return g == GameBida || g == GameCarom }

type Mode string

const (
	ModeSolo Mode = "solo"
	ModeTeam Mode = "team"
)

func (m Mode) Valid() bool { return m == ModeSolo || m == ModeTeam }

type Settings struct {
	GameType  GameType
	Mode      Mode
	TurnLimit int
	WinScore  int
	FirstTurn PlayerID
}

type Match struct {
	Players   [2]string
	Mode      Mode
	Ledger    *Ledger
	Clock     TurnClock
	StartedAt time.Time
}

func NewMatch(host, guest string, s Settings) Match {
	return Match{
		Players:   [2]string{host, guest},
		Mode:      s.Mode,
		Ledger:    NewLedger(s.GameType, s.WinScore),
		Clock:     NewTurnClock(s.TurnLimit, s.FirstTurn),
		StartedAt: time.Now(),
	}
}

func (m Match) PlayerName(p PlayerID) string {
	if !p.Valid() {
		return ""
	}
	return m.Players[p-1]
}

type CommandType string

const (
	CmdRecordHit CommandType = "RecordHit"
	CmdUndo      CommandType = "Undo"
	CmdEndTurn   CommandType = "EndTurn"
	CmdPause     CommandType = "Pause"
	CmdResume    CommandType = "Resume"
	CmdTick      CommandType = "Tick"
)

type Command struct {
	Type CommandType
	Ball int
}

type EventType string

const (
	EvtBallPocketed  EventType = "BallPocketed"
	EvtHitUndone     EventType = "HitUndone"
	EvtTurnAdvanced  EventType = "TurnAdvanced"
	EvtTimerTicked   EventType = "TimerTicked"
	EvtTimerPaused   EventType = "TimerPaused"
	EvtTimerResumed  EventType = "TimerResumed"
	EvtGameCompleted EventType = "GameCompleted"
)

type Event struct {
	Type   EventType
	Player PlayerID
	Ball   int
}

/*
	CmdRecordHit -> EvtBallPocketed -> EvtGameCompleted (if the rack or the score settles it)
	CmdUndo      -> EvtHitUndone
	CmdEndTurn   -> EvtTurnAdvanced
	CmdTick      -> EvtTimerTicked, or EvtTurnAdvanced when the countdown runs out
	CmdPause     -> EvtTimerPaused
	CmdResume    -> EvtTimerResumed

	A command the ledger or clock ignores (ball already pocketed, undo on an empty
	history, pausing twice) returns no events and no error.
*/

func Apply(m Match, cmd Command) ([]Event, Match, error) {
	if m.Ledger.IsGameOver() {
		return nil, m, ErrGameAlreadyCompleted
	}

	next := m
	next.Ledger = m.Ledger.clone()
	player := m.Clock.ActivePlayer

	switch cmd.Type {
	case CmdRecordHit:
		if !next.Ledger.RecordHit(player, cmd.Ball) {
			return nil, m, nil
		}
		events := []Event{{Type: EvtBallPocketed, Player: player, Ball: cmd.Ball}}
		if next.Ledger.IsGameOver() {
			events = append(events, Event{Type: EvtGameCompleted})
		}
		return events, next, nil

	case CmdUndo:
		moves := m.Ledger.Moves()
		if !next.Ledger.UndoLast() {
			return nil, m, nil
		}
		last := moves[len(moves)-1]
		return []Event{{Type: EvtHitUndone, Player: last.Player, Ball: last.Ball}}, next, nil

	case CmdEndTurn:
		next.Clock.EndTurn()
		return []Event{{Type: EvtTurnAdvanced, Player: next.Clock.ActivePlayer}}, next, nil

	case CmdPause:
		if !next.Clock.Pause() {
			return nil, m, nil
		}
		return []Event{{Type: EvtTimerPaused, Player: player}}, next, nil

	case CmdResume:
		if !next.Clock.Resume() {
			return nil, m, nil
		}
		return []Event{{Type: EvtTimerResumed, Player: player}}, next, nil

	case CmdTick:
		if next.Clock.State != ClockRunning {
			return nil, m, nil
		}
		if next.Clock.Tick() {
			return []Event{{Type: EvtTurnAdvanced, Player: next.Clock.ActivePlayer}}, next, nil
		}
		return []Event{{Type: EvtTimerTicked, Player: player}}, next, nil

	default:
		return nil, m, ErrUnsupportedCommand
	}
}
