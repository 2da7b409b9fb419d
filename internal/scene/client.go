package scene

import (
	"sync"

	"github.com/annel0/mmo-seating/internal/vec"
	"github.com/google/uuid"
)

// Сообщения, отправляемые клиенту при отказе в посадке
const (
	AlertSitTooFar        = "Sit position too far away."
	AlertSitTargetTaken   = "Sit target already occupied."
	maxBufferedClientMsgs = 32
)

// SitResponse уведомление клиента об успешной посадке
type SitResponse struct {
	TargetID    uuid.UUID     `json:"target_id"`
	Offset      vec.Vec3Float `json:"offset"`
	Orientation vec.Quat      `json:"orientation"`
}

// ClientAPI сессия клиента, управляющего аватаром.
// Идентичность уже проверена уровнем сессий.
type ClientAPI interface {
	AgentID() uuid.UUID
	SendSitResponse(resp SitResponse)
	SendAlertMessage(message string)
}

// BufferedClient хранит последние сообщения для аватара.
// Используется REST API и тестами вместо сетевой сессии.
type BufferedClient struct {
	agentID uuid.UUID

	mu           sync.Mutex
	sitResponses []SitResponse
	alerts       []string
}

// NewBufferedClient создаёт клиента для аватара
func NewBufferedClient(agentID uuid.UUID) *BufferedClient {
	return &BufferedClient{agentID: agentID}
}

func (c *BufferedClient) AgentID() uuid.UUID { return c.agentID }

func (c *BufferedClient) SendSitResponse(resp SitResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sitResponses = appendBounded(c.sitResponses, resp)
}

func (c *BufferedClient) SendAlertMessage(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alerts = appendBounded(c.alerts, message)
}

// SitResponses возвращает копию полученных уведомлений о посадке
func (c *BufferedClient) SitResponses() []SitResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SitResponse(nil), c.sitResponses...)
}

// Alerts возвращает копию полученных предупреждений
func (c *BufferedClient) Alerts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.alerts...)
}

func appendBounded[T any](list []T, item T) []T {
	list = append(list, item)
	if len(list) > maxBufferedClientMsgs {
		list = list[len(list)-maxBufferedClientMsgs:]
	}
	return list
}
