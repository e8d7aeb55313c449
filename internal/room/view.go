package room

import (
	"github.com/samber/lo"

	"github.com/DoyleJ11/bida-club-backend/internal/engine"
	"github.com/DoyleJ11/bida-club-backend/pkg/types"
)

func (r *Room) buildView() types.RoomView {
	s := r.session
	v := types.RoomView{
		Code:       r.code,
		Version:    r.version,
		State:      string(s.State()),
		Screen:     s.State().Screen(),
		HostName:   s.HostName(),
		GuestName:  s.GuestName(),
		Mode:       string(s.Mode()),
		GameType:   string(s.GameType()),
		CanConfirm: s.CanConfirm(),
	}
	if m := s.Match(); m != nil {
		v.Match = buildMatchView(*m)
	}
	return v
}

func buildMatchView(m engine.Match) *types.MatchView {
	l := m.Ledger
	mv := &types.MatchView{
		Remaining: l.Remaining(),
		History: lo.Map(l.Moves(), func(mv engine.Move, _ int) types.MoveView {
			return types.MoveView{Player: int(mv.Player), Ball: mv.Ball}
		}),
		ActivePlayer:     int(m.Clock.ActivePlayer),
		SecondsRemaining: m.Clock.SecondsRemaining,
		TurnLimit:        m.Clock.Limit,
		Paused:           m.Clock.State == engine.ClockPaused,
		WinScore:         l.WinScore(),
	}
	for i, p := range []engine.PlayerID{engine.Player1, engine.Player2} {
		mv.Players[i] = types.PlayerView{
			ID:     int(p),
			Name:   m.PlayerName(p),
			Score:  l.Score(p),
			Balls:  l.BallsPocketed(p),
			Active: p == m.Clock.ActivePlayer,
		}
	}
	if out := l.Outcome(); out.Over {
		mv.Outcome = &types.OutcomeView{
			Winner:     int(out.Winner),
			WinnerName: m.PlayerName(out.Winner),
			Draw:       out.Draw,
		}
	}
	return mv
}
