// Package flow walks a walk-up guest from the landing page into a live match.
//
//	EnteringHostName -> AwaitingGuestDetails -> Ready -> InPlay
//
// Every transition method reports whether it applied. Rejected input leaves
// the session untouched.
package flow

import (
	"strings"
	"unicode/utf8"

	"github.com/DoyleJ11/bida-club-backend/internal/engine"
)

const MaxNameLength = 32

type State string

const (
	StateEnteringHostName     State = "entering_host_name"
	StateAwaitingGuestDetails State = "awaiting_guest_details"
	StateReady                State = "ready"
	StateInPlay               State = "in_play"
)

// Screen is the client route that renders a state.
func (s State) Screen() string {
	switch s {
	case StateAwaitingGuestDetails, StateReady:
		return "/WaitingPage"
	case StateInPlay:
		return "/GamePlay"
	default:
		return "/"
	}
}

type Config struct {
	TurnLimit int
	WinScore  int
}

type Session struct {
	cfg       Config
	state     State
	hostName  string
	guestName string
	mode      engine.Mode
	gameType  engine.GameType
	match     *engine.Match
}

func NewSession(cfg Config) *Session {
	return &Session{cfg: cfg, state: StateEnteringHostName}
}

func (s *Session) State() State              { return s.state }
func (s *Session) HostName() string          { return s.hostName }
func (s *Session) GuestName() string         { return s.guestName }
func (s *Session) Mode() engine.Mode         { return s.mode }
func (s *Session) GameType() engine.GameType { return s.gameType }

// Match is nil until the session reaches InPlay.
func (s *Session) Match() *engine.Match { return s.match }

func (s *Session) SubmitHostName(name string) bool {
	if s.state != StateEnteringHostName {
		return false
	}
	name, ok := cleanName(name)
	if !ok {
		return false
	}
	s.hostName = name
	s.state = StateAwaitingGuestDetails
	return true
}

// SelectMode replaces any earlier mode choice.
func (s *Session) SelectMode(m engine.Mode) bool {
	if s.state != StateAwaitingGuestDetails || !m.Valid() {
		return false
	}
	s.mode = m
	return true
}

// SelectGameType replaces any earlier game type choice.
func (s *Session) SelectGameType(g engine.GameType) bool {
	if s.state != StateAwaitingGuestDetails || !g.Valid() {
		return false
	}
	s.gameType = g
	return true
}

func (s *Session) CanConfirm() bool {
	return s.state == StateAwaitingGuestDetails && s.mode != "" && s.gameType != ""
}

func (s *Session) ConfirmDetails() bool {
	if !s.CanConfirm() {
		return false
	}
	s.state = StateReady
	return true
}

// SubmitGuestName starts the match. A firstTurn of zero gives the break to the host.
func (s *Session) SubmitGuestName(name string, firstTurn engine.PlayerID) bool {
	if s.state != StateReady {
		return false
	}
	name, ok := cleanName(name)
	if !ok {
		return false
	}
	if firstTurn == 0 {
		firstTurn = engine.Player1
	}
	if !firstTurn.Valid() {
		return false
	}

	s.guestName = name
	m := engine.NewMatch(s.hostName, s.guestName, engine.Settings{
		GameType:  s.gameType,
		Mode:      s.mode,
		TurnLimit: s.cfg.TurnLimit,
		WinScore:  s.cfg.WinScore,
		FirstTurn: firstTurn,
	})
	s.match = &m
	s.state = StateInPlay
	return true
}

// SetMatch stores the result of an engine.Apply on the live match.
func (s *Session) SetMatch(m engine.Match) bool {
	if s.state != StateInPlay {
		return false
	}
	s.match = &m
	return true
}

// Leave discards everything the guest entered.
func (s *Session) Leave() {
	*s = Session{cfg: s.cfg, state: StateEnteringHostName}
}

func cleanName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return "", false
	}
	return name, true
}
