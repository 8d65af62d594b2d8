package app

import (
	"context"
	"encoding/json"
	"sync"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
	"realtime_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// Conn 訂閱 room channel 的連線
type Conn interface {
	ID() string
	UserID() string
	Send(resp domain.WSResponse) error
}

// EventBus cross-node transport for room events
type EventBus interface {
	Publish(ctx context.Context, ev *domain.RoomEvent) error
	Subscribe(ctx context.Context, handler func(ev *domain.RoomEvent)) error
}

// Publisher publish a room event after the store mutation commits
type Publisher interface {
	Publish(ctx context.Context, roomID string, event domain.Event, payload interface{}, origin string) error
}

// Hub room channel -> 已訂閱的連線
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]Conn
	// conns connection id -> rooms, 斷線時一次退訂
	conns map[string]map[string]struct{}

	bus     EventBus
	journal repository.EventJournal
}

// NewHub bus nil 時只在本機投遞, journal nil 時不寫入 kafka
func NewHub(bus EventBus, journal repository.EventJournal) *Hub {
	return &Hub{
		rooms:   make(map[string]map[string]Conn),
		conns:   make(map[string]map[string]struct{}),
		bus:     bus,
		journal: journal,
	}
}

// Run 訂閱 bus, 每個節點(包含發布者自己)都由此投遞
func (h *Hub) Run(ctx context.Context) error {
	if h.bus == nil {
		return nil
	}
	return h.bus.Subscribe(ctx, h.deliver)
}

// Subscribe conn to the room channel
func (h *Hub) Subscribe(roomID string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.rooms[roomID]
	if !ok {
		subs = make(map[string]Conn)
		h.rooms[roomID] = subs
	}
	subs[c.ID()] = c

	joined, ok := h.conns[c.ID()]
	if !ok {
		joined = make(map[string]struct{})
		h.conns[c.ID()] = joined
	}
	joined[roomID] = struct{}{}
}

// Unsubscribe conn from one room
func (h *Hub) Unsubscribe(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unsubscribe(roomID, connID)
}

// UnsubscribeAll conn from every room, called on disconnect
func (h *Hub) UnsubscribeAll(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for roomID := range h.conns[connID] {
		h.unsubscribe(roomID, connID)
	}
	delete(h.conns, connID)
}

func (h *Hub) unsubscribe(roomID, connID string) {
	if subs, ok := h.rooms[roomID]; ok {
		delete(subs, connID)
		if len(subs) == 0 {
			delete(h.rooms, roomID)
		}
	}
	if joined, ok := h.conns[connID]; ok {
		delete(joined, roomID)
		if len(joined) == 0 {
			delete(h.conns, connID)
		}
	}
}

// UnsubscribeUser 退訂 userID 在本機的所有連線, 回傳退訂數
func (h *Hub) UnsubscribeUser(roomID, userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.unsubscribeUser(roomID, userID)
}

func (h *Hub) unsubscribeUser(roomID, userID string) int {
	n := 0
	for id, c := range h.rooms[roomID] {
		if c.UserID() == userID {
			h.unsubscribe(roomID, id)
			n++
		}
	}
	return n
}

// Subscribed conn 目前是否在 room channel
func (h *Hub) Subscribed(roomID, connID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[roomID][connID]
	return ok
}

// Subscribers number of local connections on the room channel
func (h *Hub) Subscribers(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Publish 有 bus 時只寫 bus, 否則直接投遞本機連線
func (h *Hub) Publish(ctx context.Context, roomID string, event domain.Event, payload interface{}, origin string) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	ev := &domain.RoomEvent{RoomID: roomID, Event: event, Payload: raw}
	if event.Transient() {
		ev.Origin = origin
	}

	if !event.Transient() && h.journal != nil {
		if err := h.journal.Append(ctx, ev); err != nil {
			logger.Log.Warn("event journal append failed", zap.String("room", roomID), zap.String("event", string(event)), zap.Error(err))
		}
	}

	if h.bus != nil {
		return h.bus.Publish(ctx, ev)
	}
	h.deliver(ev)
	return nil
}

func (h *Hub) deliver(ev *domain.RoomEvent) {
	payload := map[string]interface{}{}
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			logger.Log.Error("room event payload decode err", zap.String("room", ev.RoomID), zap.Error(err))
			return
		}
	}
	resp := domain.WSResponse{Action: string(ev.Event), Success: true, Payload: payload}

	// 先移除離開者的連線, 其餘成員才收到通知
	if ev.Event == domain.EventMemberRemoved {
		if userID, _ := payload["user_id"].(string); userID != "" {
			h.mu.Lock()
			n := h.unsubscribeUser(ev.RoomID, userID)
			h.mu.Unlock()
			logger.Log.Debug("member removed from room channel", zap.String("room", ev.RoomID), zap.String("userID", userID), zap.Int("conns", n))
		}
	}

	h.mu.RLock()
	targets := make([]Conn, 0, len(h.rooms[ev.RoomID]))
	for id, c := range h.rooms[ev.RoomID] {
		if ev.Origin != "" && id == ev.Origin {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if err := c.Send(resp); err != nil {
			logger.Log.Warn("deliver room event failed", zap.String("conn", c.ID()), zap.String("event", string(ev.Event)), zap.Error(err))
		}
	}
}
