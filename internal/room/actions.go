package room

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/DoyleJ11/bida-club-backend/internal/archive"
	"github.com/DoyleJ11/bida-club-backend/internal/engine"
	"github.com/DoyleJ11/bida-club-backend/internal/flow"
	"github.com/DoyleJ11/bida-club-backend/pkg/types"
)

var ErrRoomClosed = errors.New("room closed")
var ErrNotInPlay = errors.New("match has not started")
var ErrUnknownAction = errors.New("unknown action")

type ActionType string

const (
	ActSetHostName    ActionType = types.MsgSetHostName
	ActSelectMode     ActionType = types.MsgSelectMode
	ActSelectGameType ActionType = types.MsgSelectGameType
	ActConfirm        ActionType = types.MsgConfirmDetails
	ActSetGuestName   ActionType = types.MsgSetGuestName
	ActRecordHit      ActionType = types.MsgRecordHit
	ActUndo           ActionType = types.MsgUndo
	ActEndTurn        ActionType = types.MsgEndTurn
	ActPause          ActionType = types.MsgPause
	ActResume         ActionType = types.MsgResume
	ActLeave          ActionType = types.MsgLeaveRoom
)

type Action struct {
	Type      ActionType
	Name      string
	Mode      engine.Mode
	GameType  engine.GameType
	FirstTurn engine.PlayerID
	Ball      int
}

var matchCommands = map[ActionType]engine.CommandType{
	ActRecordHit: engine.CmdRecordHit,
	ActUndo:      engine.CmdUndo,
	ActEndTurn:   engine.CmdEndTurn,
	ActPause:     engine.CmdPause,
	ActResume:    engine.CmdResume,
}

func (r *Room) apply(a Action) Result {
	s := r.session
	var applied bool

	switch a.Type {
	case ActSetHostName:
		applied = s.SubmitHostName(a.Name)
	case ActSelectMode:
		applied = s.SelectMode(a.Mode)
	case ActSelectGameType:
		applied = s.SelectGameType(a.GameType)
	case ActConfirm:
		applied = s.ConfirmDetails()
	case ActSetGuestName:
		applied = s.SubmitGuestName(a.Name, a.FirstTurn)
		if applied {
			r.startTurnTimer()
			r.log.Info("match started",
				zap.String("game_type", string(s.GameType())),
				zap.String("host", s.HostName()),
				zap.String("guest", s.GuestName()))
		}
	case ActLeave:
		r.stopTurnTimer()
		s.Leave()
		applied = true
	default:
		cmd, ok := matchCommands[a.Type]
		if !ok {
			return Result{Err: ErrUnknownAction, Room: r.buildView()}
		}
		events, err := r.applyMatch(engine.Command{Type: cmd, Ball: a.Ball})
		if err != nil {
			return Result{Err: err, Room: r.buildView()}
		}
		r.commitEvents(events)
		return Result{Applied: len(events) > 0, Room: r.buildView()}
	}

	if applied {
		r.commit()
	}
	return Result{Applied: applied, Room: r.buildView()}
}

func (r *Room) tick() {
	events, err := r.applyMatch(engine.Command{Type: engine.CmdTick})
	if err != nil {
		// no live match behind this ticker any more
		r.stopTurnTimer()
		return
	}
	r.commitEvents(events)
}

// applyMatch runs cmd through the engine and keeps the turn ticker in step
// with the clock. No events means the ledger or clock ignored the command.
func (r *Room) applyMatch(cmd engine.Command) ([]engine.Event, error) {
	m := r.session.Match()
	if m == nil || r.session.State() != flow.StateInPlay {
		return nil, ErrNotInPlay
	}

	events, next, err := engine.Apply(*m, cmd)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	r.session.SetMatch(next)

	switch {
	case engine.ContainsEvent(events, engine.EvtGameCompleted):
		r.stopTurnTimer()
	case engine.ContainsEvent(events, engine.EvtTurnAdvanced),
		engine.ContainsEvent(events, engine.EvtTimerResumed):
		r.startTurnTimer()
	case engine.ContainsEvent(events, engine.EvtTimerPaused):
		r.stopTurnTimer()
	}
	return events, nil
}

func (r *Room) commitEvents(events []engine.Event) {
	if len(events) == 0 {
		return
	}
	r.commit()
	if engine.ContainsEvent(events, engine.EvtGameCompleted) {
		r.finish(*r.session.Match())
	}
}

// finish announces the result and archives it. The session stays in play
// until a client leaves.
func (r *Room) finish(m engine.Match) {
	out := m.Ledger.Outcome()
	r.log.Info("match ended",
		zap.Int("winner", int(out.Winner)),
		zap.Bool("draw", out.Draw),
		zap.Int("host_score", m.Ledger.Score(engine.Player1)),
		zap.Int("guest_score", m.Ledger.Score(engine.Player2)))

	r.broadcast(r.snapshot(types.MsgEndMatch))

	if r.cfg.Recorder == nil {
		return
	}
	rec := archive.MatchRecord{
		RoomCode:   r.code,
		GameType:   string(m.Ledger.GameType()),
		Mode:       string(m.Mode),
		HostName:   m.Players[0],
		GuestName:  m.Players[1],
		HostScore:  m.Ledger.Score(engine.Player1),
		GuestScore: m.Ledger.Score(engine.Player2),
		Winner:     int(out.Winner),
		Moves:      len(m.Ledger.Moves()),
		StartedAt:  m.StartedAt,
		EndedAt:    r.clock.Now(),
	}
	r.archiving.Add(1)
	go func() {
		defer r.archiving.Done()
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := r.cfg.Recorder.RecordMatch(ctx, rec); err != nil {
			r.log.Warn("failed to archive match", zap.Error(err))
		}
	}()
}
