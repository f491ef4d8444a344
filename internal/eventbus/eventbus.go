package eventbus

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrClosed возвращается при публикации в закрытую шину
var ErrClosed = errors.New("eventbus: шина закрыта")

// Envelope описывает универсальный контейнер события.
type Envelope struct {
	ID            string            `json:"id"`        // UUID
	Timestamp     time.Time         `json:"timestamp"` // UTC
	Source        string            `json:"source"`
	EventType     string            `json:"event_type"`
	Version       int               `json:"version"` // Схема полезной нагрузки
	CorrelationID string            `json:"correlation_id,omitempty"`
	Priority      int               `json:"priority"` // 0=Low … 9=Critical (для backpressure)
	Payload       []byte            `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewEnvelope создаёт конверт с новым UUID и текущим временем
func NewEnvelope(source, eventType string, priority int, payload []byte) *Envelope {
	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: eventType,
		Version:   1,
		Priority:  priority,
		Payload:   payload,
	}
}

// Filter позволяет подписаться только на нужные события.
type Filter struct {
	Types   []string // Если пусто - все типы.
	Sources []string // Если пусто - все источники.
}

// Subscription возвращается при подписке; позволяет отписаться.
type Subscription interface {
	Unsubscribe()
}

// Handler потребляет события.
type Handler func(ctx context.Context, ev *Envelope)

// Stats агрегированные метрики шины.
type Stats struct {
	Published uint64 `json:"published"`
	Consumed  uint64 `json:"consumed"`
	Dropped   uint64 `json:"dropped"`
	InFlight  int    `json:"in_flight"`
}

// EventBus определяет абстракцию шины событий.
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
	Close() error
}

//================ In-Memory implementation =================//

// highPriority - события с приоритетом не ниже этого не отбрасываются
// при переполнении, публикация ждёт места в очереди.
const highPriority = 5

// memoryBus доставляет события каждому подписчику через его собственную
// очередь, поэтому подписчик получает события в порядке публикации.
type memoryBus struct {
	mu          sync.RWMutex
	subscribers map[int]*subscriber
	nextID      int
	queueSize   int

	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64

	buffer    chan *Envelope
	quit      chan struct{}
	closeOnce sync.Once
}

type subscriber struct {
	filter  Filter
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
	queue   chan *Envelope
}

// NewMemoryBus создаёт in-memory Bus с указанным буфером.
// Такой же размер получает очередь каждого подписчика.
func NewMemoryBus(capacity int) EventBus {
	if capacity < 1 {
		capacity = 1
	}
	mb := &memoryBus{
		subscribers: make(map[int]*subscriber),
		queueSize:   capacity,
		buffer:      make(chan *Envelope, capacity),
		quit:        make(chan struct{}),
	}
	go mb.dispatchLoop()
	return mb
}

func (mb *memoryBus) Publish(ctx context.Context, ev *Envelope) error {
	select {
	case <-mb.quit:
		return ErrClosed
	default:
	}

	select {
	case mb.buffer <- ev:
		mb.published.Add(1)
		return nil
	default:
	}

	if ev.Priority < highPriority {
		mb.dropped.Add(1)
		return nil
	}
	select {
	case mb.buffer <- ev:
		mb.published.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-mb.quit:
		return ErrClosed
	}
}

func (mb *memoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	select {
	case <-mb.quit:
		return nil, ErrClosed
	default:
	}

	cctx, cancel := context.WithCancel(ctx)
	sub := &subscriber{
		filter:  f,
		handler: h,
		ctx:     cctx,
		cancel:  cancel,
		queue:   make(chan *Envelope, mb.queueSize),
	}

	mb.mu.Lock()
	id := mb.nextID
	mb.nextID++
	mb.subscribers[id] = sub
	mb.mu.Unlock()

	go sub.run(&mb.consumed)
	return &memSub{bus: mb, id: id}, nil
}

func (mb *memoryBus) Metrics() Stats {
	inflight := len(mb.buffer)
	mb.mu.RLock()
	for _, sub := range mb.subscribers {
		inflight += len(sub.queue)
	}
	mb.mu.RUnlock()

	return Stats{
		Published: mb.published.Load(),
		Consumed:  mb.consumed.Load(),
		Dropped:   mb.dropped.Load(),
		InFlight:  inflight,
	}
}

// Close останавливает доставку и отменяет контексты подписчиков
func (mb *memoryBus) Close() error {
	mb.closeOnce.Do(func() {
		close(mb.quit)

		mb.mu.Lock()
		for id, sub := range mb.subscribers {
			sub.cancel()
			delete(mb.subscribers, id)
		}
		mb.mu.Unlock()
	})
	return nil
}

// dispatchLoop раскладывает события по очередям подписчиков.
func (mb *memoryBus) dispatchLoop() {
	for {
		var ev *Envelope
		select {
		case ev = <-mb.buffer:
		case <-mb.quit:
			return
		}

		mb.mu.RLock()
		targets := make([]*subscriber, 0, len(mb.subscribers))
		for _, sub := range mb.subscribers {
			if matchFilter(ev, sub.filter) {
				targets = append(targets, sub)
			}
		}
		mb.mu.RUnlock()

		for _, sub := range targets {
			mb.enqueue(sub, ev)
		}
	}
}

// enqueue кладёт событие в очередь подписчика. Медленный подписчик
// теряет события низкого приоритета, а высокий приоритет ждёт его.
func (mb *memoryBus) enqueue(sub *subscriber, ev *Envelope) {
	select {
	case sub.queue <- ev:
		return
	default:
	}

	if ev.Priority < highPriority {
		mb.dropped.Add(1)
		return
	}
	select {
	case sub.queue <- ev:
	case <-sub.ctx.Done():
		mb.dropped.Add(1)
	case <-mb.quit:
	}
}

func (s *subscriber) run(consumed *atomic.Uint64) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.queue:
			s.handler(s.ctx, ev)
			consumed.Add(1)
		}
	}
}

func matchFilter(ev *Envelope, f Filter) bool {
	match := func(val string, arr []string) bool {
		return len(arr) == 0 || slices.Contains(arr, val)
	}
	return match(ev.EventType, f.Types) && match(ev.Source, f.Sources)
}

type memSub struct {
	bus *memoryBus
	id  int
}

func (s *memSub) Unsubscribe() {
	s.bus.mu.Lock()
	if sub, ok := s.bus.subscribers[s.id]; ok {
		sub.cancel()
		delete(s.bus.subscribers, s.id)
	}
	s.bus.mu.Unlock()
}
