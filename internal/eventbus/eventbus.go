package eventbus

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Envelope описывает универсальный контейнер события.
// Все поля фиксированы для версиирования и трассировки.
type Envelope struct {
	ID            string            // Глобально уникальный идентификатор (UUID).
	Timestamp     time.Time         // Время создания события (UTC).
	Source        string            // Имя сервиса-источника.
	EventType     string            // Тип события (AvatarSat, AvatarStood…).
	Version       int               // Схема полезной нагрузки.
	CorrelationID string            // Для связывания цепочек (UUID аватара).
	Tenant        string            // Для мульти-тенанности (пока пусто).
	Priority      int               // 0=Low … 9=Critical (для backpressure).
	Payload       []byte            // Сериализованный JSON.
	Metadata      map[string]string // Произвольные метаданные.
}

// Filter позволяет подписаться только на нужные события.
type Filter struct {
	Types   []string // Если пусто — все типы.
	Sources []string // Если пусто — все источники.
}

// Subscription возвращается при подписке; позволяет отписаться.
type Subscription interface {
	Unsubscribe()
}

// Handler потребляет события.
type Handler func(ctx context.Context, ev *Envelope)

// Stats агрегированные метрики шины.
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	InFlight  int
}

// EventBus определяет абстракцию шины событий.
// Реализации: in-memory (для симуляции) и JetStream (для других сервисов).
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
}

// ErrBusClosed шина закрыта и больше не принимает события.
var ErrBusClosed = errors.New("eventbus: bus closed")

//================ In-Memory implementation =================//

// MemoryBus доставляет события каждому подписчику в порядке публикации:
// у подписчика своя очередь и своя горутина-обработчик.
type MemoryBus struct {
	mu          sync.RWMutex
	subscribers map[int]*subscriber
	nextID      int
	statsLock   sync.Mutex
	stats       Stats
	buffer      chan *Envelope
	capacity    int
	closed      bool
	done        chan struct{} // закрывается в Close
	dispatched  chan struct{} // закрывается, когда dispatchLoop разложил остаток буфера
	consumers   sync.WaitGroup
}

type subscriber struct {
	filter  Filter
	handler Handler
	queue   chan *Envelope
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewMemoryBus создаёт in-memory Bus с указанным буфером (он же размер очереди подписчика).
func NewMemoryBus(capacity int) *MemoryBus {
	if capacity <= 0 {
		capacity = 1
	}
	mb := &MemoryBus{
		subscribers: make(map[int]*subscriber),
		buffer:      make(chan *Envelope, capacity),
		capacity:    capacity,
		done:        make(chan struct{}),
		dispatched:  make(chan struct{}),
	}
	go mb.dispatchLoop()
	return mb
}

// Publish ставит событие в очередь. При заполненном буфере события с приоритетом < 5
// отбрасываются, остальные ждут места, закрытия шины или отмены контекста.
func (mb *MemoryBus) Publish(ctx context.Context, ev *Envelope) error {
	mb.mu.RLock()
	if mb.closed {
		mb.mu.RUnlock()
		return ErrBusClosed
	}

	select {
	case mb.buffer <- ev:
		mb.mu.RUnlock()
		mb.countPublished()
		return nil
	default:
	}
	mb.mu.RUnlock()

	// Буфер заполнен: дропаём низкий приоритет (<5)
	if ev.Priority < 5 {
		mb.countDropped()
		return nil
	}
	// Высокий приоритет ждёт без блокировки шины, иначе Close и dispatchLoop встанут
	select {
	case mb.buffer <- ev:
		mb.countPublished()
		return nil
	case <-mb.done:
		return ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (mb *MemoryBus) countPublished() {
	mb.statsLock.Lock()
	mb.stats.Published++
	mb.statsLock.Unlock()
}

func (mb *MemoryBus) countDropped() {
	mb.statsLock.Lock()
	mb.stats.Dropped++
	mb.statsLock.Unlock()
}

func (mb *MemoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.closed {
		return nil, ErrBusClosed
	}

	id := mb.nextID
	mb.nextID++
	cctx, cancel := context.WithCancel(ctx)
	sub := &subscriber{filter: f, handler: h, queue: make(chan *Envelope, mb.capacity), ctx: cctx, cancel: cancel}
	mb.subscribers[id] = sub
	mb.consumers.Add(1)
	go mb.consume(sub)

	return &memSub{bus: mb, id: id}, nil
}

func (mb *MemoryBus) Metrics() Stats {
	mb.statsLock.Lock()
	defer mb.statsLock.Unlock()
	s := mb.stats
	s.InFlight = len(mb.buffer)
	return s
}

// Close закрывает шину для публикации и дожидается, пока подписчики обработают
// уже принятые события. Отписавшиеся подписчики свои очереди не дочитывают.
func (mb *MemoryBus) Close() {
	mb.mu.Lock()
	if mb.closed {
		mb.mu.Unlock()
		return
	}
	mb.closed = true
	close(mb.done)
	mb.mu.Unlock()

	<-mb.dispatched

	mb.mu.Lock()
	subs := make([]*subscriber, 0, len(mb.subscribers))
	for id, sub := range mb.subscribers {
		close(sub.queue)
		subs = append(subs, sub)
		delete(mb.subscribers, id)
	}
	mb.mu.Unlock()

	mb.consumers.Wait()
	for _, sub := range subs {
		sub.cancel()
	}
}

// dispatchLoop раскладывает события по очередям подписчиков.
// После Close раскладывает то, что осталось в буфере, и завершается.
func (mb *MemoryBus) dispatchLoop() {
	defer close(mb.dispatched)
	for {
		select {
		case ev := <-mb.buffer:
			mb.dispatch(ev)
		case <-mb.done:
			for {
				select {
				case ev := <-mb.buffer:
					mb.dispatch(ev)
				default:
					return
				}
			}
		}
	}
}

func (mb *MemoryBus) dispatch(ev *Envelope) {
	mb.mu.RLock()
	subs := make([]*subscriber, 0, len(mb.subscribers))
	for _, sub := range mb.subscribers {
		subs = append(subs, sub)
	}
	mb.mu.RUnlock()

	for _, sub := range subs {
		if !matchFilter(ev, sub.filter) {
			continue
		}
		select {
		case sub.queue <- ev:
		case <-sub.ctx.Done():
		default:
			// Медленный подписчик: событие для него теряется
			mb.countDropped()
		}
	}
}

// consume вызывает обработчик подписчика последовательно, пока подписка активна
// и очередь не закрыта.
func (mb *MemoryBus) consume(sub *subscriber) {
	defer mb.consumers.Done()
	for {
		select {
		case <-sub.ctx.Done():
			return
		case ev, ok := <-sub.queue:
			if !ok {
				return
			}
			sub.handler(sub.ctx, ev)
			mb.statsLock.Lock()
			mb.stats.Consumed++
			mb.statsLock.Unlock()
		}
	}
}

func matchFilter(ev *Envelope, f Filter) bool {
	match := func(val string, arr []string) bool {
		if len(arr) == 0 {
			return true
		}
		for _, v := range arr {
			if v == val {
				return true
			}
		}
		return false
	}
	return match(ev.EventType, f.Types) && match(ev.Source, f.Sources)
}

type memSub struct {
	bus *MemoryBus
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
