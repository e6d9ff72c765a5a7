package notifications

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	EventMealPlanGenerating = "meal_plan_generating"
	EventMealPlanReady      = "meal_plan_ready"
	EventMealPlanFallback   = "meal_plan_fallback"
	EventMealPlanFailed     = "meal_plan_failed"
	EventMealPlanUpdated    = "meal_plan_updated"
)

const subscriberBuffer = 16

type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// PlanEvent is the payload of every meal_plan_* event.
type PlanEvent struct {
	PlanID  uuid.UUID `json:"plan_id"`
	Status  string    `json:"status,omitempty"`
	Message string    `json:"message,omitempty"`
}

type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[chan Event]struct{}
}

// NewHub создает хаб для SSE-подписок.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[uuid.UUID]map[chan Event]struct{}),
	}
}

// Subscribe подписывает пользователя на события и возвращает канал и функцию отписки.
// Функцию отписки можно вызывать повторно.
func (h *Hub) Subscribe(userID uuid.UUID) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	userSubs, ok := h.subscribers[userID]
	if !ok {
		userSubs = make(map[chan Event]struct{})
		h.subscribers[userID] = userSubs
	}
	userSubs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			if subs, exists := h.subscribers[userID]; exists {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(h.subscribers, userID)
				}
			}
			close(ch)
		})
	}
}

// Publish отправляет событие всем подписчикам пользователя.
// Медленный подписчик с заполненным буфером пропускает событие.
func (h *Hub) Publish(userID uuid.UUID, event Event) {
	event.Timestamp = time.Now().UTC()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[userID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// PublishPlan отправляет событие об изменении плана питания.
func (h *Hub) PublishPlan(userID uuid.UUID, eventType string, payload PlanEvent) {
	h.Publish(userID, Event{Type: eventType, Data: payload})
}

// Subscribers возвращает число активных подписок пользователя.
func (h *Hub) Subscribers(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[userID])
}
