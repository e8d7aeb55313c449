package room

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/DoyleJ11/bida-club-backend/internal/archive"
	"github.com/DoyleJ11/bida-club-backend/internal/flow"
	"github.com/DoyleJ11/bida-club-backend/pkg/types"
)

const (
	DefaultIdleTTL = 30 * time.Minute
	recordTimeout  = 5 * time.Second
)

type Msg interface{ isRoomMsg() }

type FromClient struct {
	ClientID string
	Action   Action
	Reply    chan Result // optional
}

func (FromClient) isRoomMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isRoomMsg() {}

type Leave struct{ ClientID string }

func (Leave) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

type Snapshot struct {
	Type    string // types.MsgRoomUpdate or types.MsgEndMatch
	Version int
	Room    types.RoomView
}

type View struct {
	Version    int
	NumClients int
	Room       types.RoomView
}

type Result struct {
	Applied bool
	Err     error
	Room    types.RoomView
}

type Recorder interface {
	RecordMatch(ctx context.Context, rec archive.MatchRecord) error
}

type Config struct {
	Flow     flow.Config
	IdleTTL  time.Duration
	Clock    clockwork.Clock
	Logger   *zap.Logger
	Recorder Recorder          // nil disables archiving
	OnClose  func(r *Room)     // called from the room goroutine after it stops
}

type Room struct {
	code    string
	cfg     Config
	log     *zap.Logger
	clock   clockwork.Clock
	inbox   chan Msg
	session *flow.Session
	version int
	clients map[string]chan Snapshot

	// the one live turn ticker; tickC is nil whenever the clock must not run
	turnTicker clockwork.Ticker
	tickC      <-chan time.Time

	lastActivity time.Time
	archiving    sync.WaitGroup
	stopped      chan struct{}
	ctx          context.Context
	cancel       context.CancelFunc
}

func NewRoom(parent context.Context, code string, cfg Config) *Room {
	ctx, cancel := context.WithCancel(parent)
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}

	r := &Room{
		code:         code,
		cfg:          cfg,
		log:          cfg.Logger.With(zap.String("room", code)),
		clock:        cfg.Clock,
		inbox:        make(chan Msg, 64), // Small buffer
		session:      flow.NewSession(cfg.Flow),
		clients:      make(map[string]chan Snapshot),
		lastActivity: cfg.Clock.Now(),
		stopped:      make(chan struct{}),
		ctx:          ctx,
		cancel:       cancel,
	}

	go r.loop()
	return r
}

func (r *Room) Code() string { return r.code }

// Expose the inbox so tests or WS layer can send messages.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Done is closed once the room stops taking messages.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

// Stopped is closed after the loop has exited and every archive write it
// started has returned.
func (r *Room) Stopped() <-chan struct{} { return r.stopped }

// Send delivers m unless the room has already stopped.
func (r *Room) Send(m Msg) bool {
	if r.ctx.Err() != nil {
		return false
	}
	select {
	case r.inbox <- m:
		return true
	case <-r.ctx.Done():
		return false
	}
}

// Do applies a for the caller and waits for the result.
func (r *Room) Do(ctx context.Context, clientID string, a Action) (Result, error) {
	reply := make(chan Result, 1)
	if !r.Send(FromClient{ClientID: clientID, Action: a, Reply: reply}) {
		return Result{}, ErrRoomClosed
	}
	select {
	case res := <-reply:
		return res, nil
	case <-r.ctx.Done():
		return Result{}, ErrRoomClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (r *Room) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if !r.Send(GetState{Reply: reply}) {
		return View{}, ErrRoomClosed
	}
	select {
	case v := <-reply:
		return v, nil
	case <-r.ctx.Done():
		return View{}, ErrRoomClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (r *Room) loop() {
	sweep := r.clock.NewTicker(sweepInterval(r.cfg.IdleTTL))
	defer func() {
		sweep.Stop()
		r.archiving.Wait()
		close(r.stopped)
	}()

	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case <-r.tickC:
			r.tick()

		case <-sweep.Chan():
			if len(r.clients) == 0 && r.clock.Since(r.lastActivity) >= r.cfg.IdleTTL {
				r.log.Info("closing idle room")
				r.shutdown()
				return
			}

		case m := <-r.inbox:
			r.lastActivity = r.clock.Now()

			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				r.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- r.snapshot(types.MsgRoomUpdate)
				r.log.Debug("client joined", zap.String("client", msg.ClientID), zap.Int("clients", len(r.clients)))

			case Leave:
				if ch, ok := r.clients[msg.ClientID]; ok {
					close(ch)
					delete(r.clients, msg.ClientID)
				}
				if len(r.clients) == 0 && r.matchOver() {
					r.log.Info("last client left finished match, closing room")
					r.shutdown()
					return
				}

			case FromClient:
				res := r.apply(msg.Action)
				if res.Err != nil {
					r.log.Debug("action refused",
						zap.String("client", msg.ClientID),
						zap.String("action", string(msg.Action.Type)),
						zap.Error(res.Err))
				}
				if msg.Reply != nil {
					msg.Reply <- res
				}
				if msg.Action.Type == ActLeave {
					r.log.Info("room left, closing")
					r.shutdown()
					return
				}

			case GetState:
				msg.Reply <- View{
					Version:    r.version,
					NumClients: len(r.clients),
					Room:       r.buildView(),
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) shutdown() {
	r.stopTurnTimer()
	for id, ch := range r.clients {
		close(ch) // Tell client no more snapshots
		delete(r.clients, id)
	}
	r.cancel()
	if r.cfg.OnClose != nil {
		r.cfg.OnClose(r)
	}
}

func (r *Room) matchOver() bool {
	m := r.session.Match()
	return m != nil && m.Ledger.IsGameOver()
}

func (r *Room) broadcast(snap Snapshot) {
	for id, ch := range r.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(r.clients, id)
			r.log.Warn("dropped slow client", zap.String("client", id))
		}
	}
}

func (r *Room) snapshot(kind string) Snapshot {
	return Snapshot{Type: kind, Version: r.version, Room: r.buildView()}
}

func (r *Room) commit() {
	r.version++
	r.broadcast(r.snapshot(types.MsgRoomUpdate))
}

// startTurnTimer replaces whatever ticker was running. Ticks still buffered in
// the old ticker's channel are never read because tickC moves to the new one.
func (r *Room) startTurnTimer() {
	r.stopTurnTimer()
	r.turnTicker = r.clock.NewTicker(time.Second)
	r.tickC = r.turnTicker.Chan()
}

func (r *Room) stopTurnTimer() {
	if r.turnTicker != nil {
		r.turnTicker.Stop()
		r.turnTicker = nil
	}
	r.tickC = nil
}

func sweepInterval(ttl time.Duration) time.Duration {
	if ttl < time.Minute {
		return ttl
	}
	return time.Minute
}
