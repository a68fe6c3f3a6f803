package realtime

import (
	"Storefront/internal/pkg/metrics"
	"sync"
)

// Registry 用户 ID -> 在线连接集合，每个用户一个房间
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]map[string]*Client)}
}

func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[c.UserID]
	if !ok {
		room = make(map[string]*Client)
		r.rooms[c.UserID] = room
	}
	if _, exists := room[c.ID]; !exists {
		room[c.ID] = c
		metrics.WSConnections.Inc()
	}
}

func (r *Registry) Unregister(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[c.UserID]
	if !ok {
		return
	}
	if _, exists := room[c.ID]; !exists {
		return
	}
	delete(room, c.ID)
	metrics.WSConnections.Dec()
	if len(room) == 0 {
		delete(r.rooms, c.UserID)
	}
}

// Emit 非阻塞投递到用户的所有连接，队列满则丢弃，返回成功投递数
func (r *Registry) Emit(userID string, payload []byte) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for _, c := range r.rooms[userID] {
		select {
		case <-c.done:
			continue
		default:
		}
		select {
		case c.Send <- payload:
			delivered++
			metrics.RealtimeDeliveries.WithLabelValues("delivered").Inc()
		default:
			metrics.RealtimeDeliveries.WithLabelValues("dropped").Inc()
		}
	}
	return delivered
}

// Online 用户当前连接数
func (r *Registry) Online(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[userID])
}
