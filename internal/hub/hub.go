package hub

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/bida-club-backend/internal/room"
)

type HubMsg interface{ isHubMsg() }

type CreateRoom struct {
	Code  string
	Reply chan *room.Room
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

type EnsureRoom struct {
	Code  string
	Reply chan *room.Room
}

// RemoveRoom only forgets Code if it still maps to Room.
type RemoveRoom struct {
	Code string
	Room *room.Room
}

type ListRooms struct {
	Reply chan []string
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (EnsureRoom) isHubMsg()  {}
func (RemoveRoom) isHubMsg()  {}
func (ListRooms) isHubMsg()   {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	cfg    room.Config
	log    *zap.Logger
	live   sync.WaitGroup // room loops not yet stopped
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub starts the registry. cfg is the template every room is created with.
func NewHub(parent context.Context, cfg room.Config) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		cfg:    cfg,
		log:    cfg.Logger,
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed after ShutdownHub or when the parent context ends.
func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

// Get returns nil if no room has that code.
func (h *Hub) Get(code string) *room.Room {
	reply := make(chan *room.Room, 1)
	if !h.send(GetRoom{Code: code, Reply: reply}) {
		return nil
	}
	select {
	case r := <-reply:
		return r
	case <-h.ctx.Done():
		return nil
	}
}

func (h *Hub) Ensure(code string) *room.Room {
	reply := make(chan *room.Room, 1)
	if !h.send(EnsureRoom{Code: code, Reply: reply}) {
		return nil
	}
	select {
	case r := <-reply:
		return r
	case <-h.ctx.Done():
		return nil
	}
}

// List returns the codes of every live room, in no particular order.
func (h *Hub) List() []string {
	reply := make(chan []string, 1)
	if !h.send(ListRooms{Reply: reply}) {
		return nil
	}
	select {
	case codes := <-reply:
		return codes
	case <-h.ctx.Done():
		return nil
	}
}

// Shutdown asks the hub to stop. It never blocks on a hub that has already
// stopped.
func (h *Hub) Shutdown() {
	h.send(ShutdownHub{})
}

// Wait blocks until the hub loop and every room it created have stopped,
// including their pending archive writes.
func (h *Hub) Wait() {
	<-h.done
	h.live.Wait()
}

func (h *Hub) send(m HubMsg) bool {
	if h.ctx.Err() != nil {
		return false
	}
	select {
	case h.inbox <- m:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				if r := h.rooms[msg.Code]; r != nil {
					msg.Reply <- r
					break
				}
				msg.Reply <- h.newRoom(msg.Code)

			case GetRoom:
				msg.Reply <- h.rooms[msg.Code] // May be nil

			case EnsureRoom:
				if r := h.rooms[msg.Code]; r != nil {
					msg.Reply <- r
					break
				}
				msg.Reply <- h.newRoom(msg.Code)

			case RemoveRoom:
				if h.rooms[msg.Code] == msg.Room {
					delete(h.rooms, msg.Code)
					h.log.Info("room removed", zap.String("room", msg.Code), zap.Int("rooms", len(h.rooms)))
				}

			case ListRooms:
				codes := make([]string, 0, len(h.rooms))
				for code := range h.rooms {
					codes = append(codes, code)
				}
				msg.Reply <- codes

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) newRoom(code string) *room.Room {
	cfg := h.cfg
	cfg.OnClose = func(r *room.Room) {
		// runs on the room goroutine; never block it on a stopped hub
		h.send(RemoveRoom{Code: r.Code(), Room: r})
	}
	r := room.NewRoom(h.ctx, code, cfg)
	h.rooms[code] = r
	h.live.Add(1)
	go func() {
		<-r.Stopped()
		h.live.Done()
	}()
	h.log.Info("room created", zap.String("room", code), zap.Int("rooms", len(h.rooms)))
	return r
}

func (h *Hub) shutdown() {
	for _, r := range h.rooms {
		r.Send(room.Shutdown{})
	}
	clear(h.rooms)
	h.cancel()
}
