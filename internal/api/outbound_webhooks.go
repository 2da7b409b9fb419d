package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/annel0/mmo-seating/internal/eventbus"
	"github.com/annel0/mmo-seating/internal/logging"
	"github.com/annel0/mmo-seating/internal/scene"
)

// Заголовки исходящих webhook-запросов
const (
	HeaderEventType = "X-Event-Type"
	HeaderServerID  = "X-Server-ID"
	HeaderSignature = "X-Webhook-Signature"
)

// OutboundWebhook представляет исходящий webhook
type OutboundWebhook struct {
	ID           uint64     `json:"id"`
	Name         string     `json:"name"`
	URL          string     `json:"url"`
	Secret       string     `json:"-"`
	Events       []string   `json:"events"` // Типы событий посадки или "*"
	Timeout      int        `json:"timeout"` // Таймаут в секундах
	RetryCount   int        `json:"retry_count"`
	CreatedAt    time.Time  `json:"created_at"`
	LastUsed     *time.Time `json:"last_used,omitempty"`
	FailureCount int        `json:"failure_count"`
}

// OutboundWebhookEvent тело запроса webhook'а
type OutboundWebhookEvent struct {
	ID        string          `json:"id"`
	EventType string          `json:"event_type"`
	Timestamp int64           `json:"timestamp"`
	ServerID  string          `json:"server_id"`
	Data      scene.SeatEvent `json:"data"`
}

// OutboundWebhookManager пересылает события посадки на внешние HTTP endpoint'ы.
// Доставка идёт из собственной очереди, поэтому сцена не ждёт сети.
type OutboundWebhookManager struct {
	webhooks   map[uint64]*OutboundWebhook
	eventQueue chan OutboundWebhookEvent
	mu         sync.RWMutex
	nextID     uint64
	httpClient *http.Client
	serverID   string
	retryDelay time.Duration
	log        *logging.Logger
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

// NewOutboundWebhookManager создает новый менеджер исходящих webhook'ов
func NewOutboundWebhookManager(serverID string, log *logging.Logger) *OutboundWebhookManager {
	if log == nil {
		log = logging.Default()
	}
	manager := &OutboundWebhookManager{
		webhooks:   make(map[uint64]*OutboundWebhook),
		eventQueue: make(chan OutboundWebhookEvent, 1000),
		nextID:     1,
		serverID:   serverID,
		retryDelay: time.Second,
		log:        log,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	manager.wg.Add(1)
	go manager.eventWorker()

	return manager
}

// AddWebhook добавляет новый webhook
func (owm *OutboundWebhookManager) AddWebhook(webhook OutboundWebhook) *OutboundWebhook {
	owm.mu.Lock()
	defer owm.mu.Unlock()

	webhook.ID = owm.nextID
	owm.nextID++
	webhook.CreatedAt = time.Now()

	if webhook.Timeout == 0 {
		webhook.Timeout = 30
	}
	if webhook.RetryCount == 0 {
		webhook.RetryCount = 3
	}

	owm.webhooks[webhook.ID] = &webhook
	return &webhook
}

// GetWebhooks возвращает копии всех webhook'ов
func (owm *OutboundWebhookManager) GetWebhooks() []OutboundWebhook {
	owm.mu.RLock()
	defer owm.mu.RUnlock()

	webhooks := make([]OutboundWebhook, 0, len(owm.webhooks))
	for _, webhook := range owm.webhooks {
		webhooks = append(webhooks, *webhook)
	}
	return webhooks
}

// DeleteWebhook удаляет webhook
func (owm *OutboundWebhookManager) DeleteWebhook(id uint64) bool {
	owm.mu.Lock()
	defer owm.mu.Unlock()

	if _, exists := owm.webhooks[id]; !exists {
		return false
	}
	delete(owm.webhooks, id)
	return true
}

// Attach подписывает менеджер на события посадки шины
func (owm *OutboundWebhookManager) Attach(ctx context.Context, bus eventbus.EventBus) (eventbus.Subscription, error) {
	filter := eventbus.Filter{Types: scene.SeatEvents, Sources: []string{scene.EventSource}}
	return bus.Subscribe(ctx, filter, func(ctx context.Context, ev *eventbus.Envelope) {
		se, err := scene.DecodeSeatEvent(ev)
		if err != nil {
			owm.log.Warn("Webhook: некорректное событие %s: %v", ev.ID, err)
			return
		}
		owm.enqueue(OutboundWebhookEvent{
			ID:        ev.ID,
			EventType: ev.EventType,
			Timestamp: ev.Timestamp.Unix(),
			ServerID:  owm.serverID,
			Data:      se,
		})
	})
}

// Close останавливает воркер; события в очереди будут доставлены
func (owm *OutboundWebhookManager) Close() {
	owm.closeOnce.Do(func() {
		close(owm.eventQueue)
	})
	owm.wg.Wait()
}

func (owm *OutboundWebhookManager) enqueue(event OutboundWebhookEvent) {
	select {
	case owm.eventQueue <- event:
	default:
		owm.log.Warn("⚠️  Очередь webhook'ов переполнена, событие %s пропущено", event.EventType)
	}
}

// eventWorker обрабатывает события из очереди
func (owm *OutboundWebhookManager) eventWorker() {
	defer owm.wg.Done()
	for event := range owm.eventQueue {
		owm.processEvent(event)
	}
}

// processEvent рассылает событие подписанным webhook'ам по порядку
func (owm *OutboundWebhookManager) processEvent(event OutboundWebhookEvent) {
	owm.mu.RLock()
	webhooks := make([]*OutboundWebhook, 0)
	for _, webhook := range owm.webhooks {
		if isSubscribedToEvent(webhook, event.EventType) {
			webhooks = append(webhooks, webhook)
		}
	}
	owm.mu.RUnlock()

	for _, webhook := range webhooks {
		owm.sendToWebhook(webhook, event)
	}
}

func isSubscribedToEvent(webhook *OutboundWebhook, eventType string) bool {
	if len(webhook.Events) == 0 {
		return true
	}
	for _, subscribedEvent := range webhook.Events {
		if subscribedEvent == eventType || subscribedEvent == "*" {
			return true
		}
	}
	return false
}

// sendToWebhook отправляет событие конкретному webhook'у с повторами
func (owm *OutboundWebhookManager) sendToWebhook(webhook *OutboundWebhook, event OutboundWebhookEvent) {
	jsonData, err := json.Marshal(event)
	if err != nil {
		owm.log.Error("❌ Ошибка маршалинга события для webhook %s: %v", webhook.Name, err)
		return
	}

	success := false
	for attempt := 0; attempt <= webhook.RetryCount; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * owm.retryDelay)
		}

		status, err := owm.post(webhook, event, jsonData)
		if err != nil {
			owm.log.Warn("⚠️  Попытка %d/%d для webhook %s: %v", attempt+1, webhook.RetryCount+1, webhook.Name, err)
			continue
		}
		if status >= 200 && status < 300 {
			success = true
			owm.log.Debug("✅ Событие %s отправлено в webhook %s", event.EventType, webhook.Name)
			break
		}
		owm.log.Warn("⚠️  Webhook %s вернул статус %d на попытке %d", webhook.Name, status, attempt+1)
	}

	owm.mu.Lock()
	now := time.Now()
	webhook.LastUsed = &now
	if !success {
		webhook.FailureCount++
	}
	owm.mu.Unlock()
}

func (owm *OutboundWebhookManager) post(webhook *OutboundWebhook, event OutboundWebhookEvent, body []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(webhook.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "MMO-Seating/1.0")
	req.Header.Set(HeaderEventType, event.EventType)
	req.Header.Set(HeaderServerID, event.ServerID)
	if webhook.Secret != "" {
		req.Header.Set(HeaderSignature, SignPayload(body, webhook.Secret))
	}

	resp, err := owm.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// SignPayload возвращает HMAC-SHA256 подпись тела в формате "sha256=<hex>"
func SignPayload(data []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(data)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
