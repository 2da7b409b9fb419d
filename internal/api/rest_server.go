package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/annel0/mmo-seating/internal/logging"
	"github.com/annel0/mmo-seating/internal/middleware"
	"github.com/annel0/mmo-seating/internal/scene"
	"github.com/annel0/mmo-seating/internal/vec"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/annel0/mmo-seating/internal/api"

// RestServer представляет REST API сервер посадки
type RestServer struct {
	router     *gin.Engine
	scene      *scene.Scene
	tokens     middleware.TokenValidator
	metrics    *ServerMetrics
	log        *logging.Logger
	httpServer *http.Server
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Addr        string                    // адрес для запуска сервера (":8088")
	Scene       *scene.Scene              // сцена, которой управляет API
	Tokens      middleware.TokenValidator // проверка bearer-токенов аватаров
	Registerer  prometheus.Registerer     // nil: дефолтный регистр
	Gatherer    prometheus.Gatherer       // nil: дефолтный регистр
	ServiceName string                    // имя сервиса для otelgin и метрик
	Logger      *logging.Logger
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// SitRequest тело POST /api/avatars/:id/sit
type SitRequest struct {
	TargetID string        `json:"target_id" binding:"required"`
	Offset   vec.Vec3Float `json:"offset"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Scene == nil {
		panic("api: scene is required")
	}
	if config.Tokens == nil {
		panic("api: token validator is required")
	}
	if config.Addr == "" {
		config.Addr = ":8088"
	}
	if config.ServiceName == "" {
		config.ServiceName = "seating_api"
	}
	if config.Logger == nil {
		config.Logger = logging.GetAPILogger()
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(middleware.NewRequestLogger(config.Logger).Handler())
	router.Use(otelgin.Middleware(config.ServiceName))

	promMw := middleware.NewPrometheusMiddleware(config.ServiceName, config.Registerer, config.Gatherer)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	server := &RestServer{
		router:  router,
		scene:   config.Scene,
		tokens:  config.Tokens,
		metrics: NewServerMetrics(),
		log:     config.Logger,
		httpServer: &http.Server{
			Addr:              config.Addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}

	server.setupRoutes()
	return server
}

// Handler возвращает http.Handler сервера (для тестов)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	api.GET("/server", rs.handleServerInfo)
	api.GET("/objects/:id", rs.handleGetObject)
	api.GET("/avatars/:id", rs.handleGetAvatar)

	// Изменять состояние аватара может только его владелец
	avatar := api.Group("/avatars/:id")
	avatar.Use(middleware.BearerAuth(rs.tokens, "id"))
	{
		avatar.POST("/sit", rs.handleSit)
		avatar.POST("/sit-ground", rs.handleSitGround)
		avatar.POST("/stand", rs.handleStand)
	}
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleServerInfo возвращает информацию о сервере
func (rs *RestServer) handleServerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Информация о сервере",
		Data:    rs.metrics.Snapshot(rs.scene),
	})
}

func (rs *RestServer) handleGetObject(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	part := rs.scene.GetSceneObjectPart(id)
	if part == nil {
		notFound(c, "Объект не найден")
		return
	}

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Объект", Data: newObjectView(part)})
}

func (rs *RestServer) handleGetAvatar(c *gin.Context) {
	sp, ok := rs.lookupPresence(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Аватар", Data: newAvatarView(sp, nil)})
}

func (rs *RestServer) handleSit(c *gin.Context) {
	sp, ok := rs.lookupPresence(c)
	if !ok {
		return
	}

	var req SitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса: "+err.Error())
		return
	}
	targetID, err := uuid.Parse(req.TargetID)
	if err != nil {
		badRequest(c, "Неверный target_id")
		return
	}

	_, span := otel.Tracer(tracerName).Start(c.Request.Context(), "seating.sit")
	span.SetAttributes(
		attribute.String("avatar.id", sp.UUID().String()),
		attribute.String("object.id", targetID.String()),
	)
	defer span.End()

	outcome, err := sp.HandleAgentRequestSit(nil, sp.UUID(), targetID, req.Offset)
	switch {
	case errors.Is(err, scene.ErrUnknownObject):
		span.SetStatus(codes.Error, err.Error())
		notFound(c, "Объект не найден")
		return
	case err != nil:
		span.SetStatus(codes.Error, err.Error())
		rs.log.Error("Посадка %s на %s: %v", sp.UUID(), targetID, err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: "Внутренняя ошибка сервера"})
		return
	}

	span.SetAttributes(attribute.String("sit.status", outcome.Status.String()))
	if outcome.Warning != nil {
		span.RecordError(outcome.Warning)
	}

	c.JSON(http.StatusOK, GenericResponse{
		Success: outcome.Accepted(),
		Message: fmt.Sprintf("Посадка: %s", outcome.Status),
		Data:    newSitView(outcome),
	})
}

func (rs *RestServer) handleSitGround(c *gin.Context) {
	rs.transition(c, "seating.sit_ground", "Аватар сидит на земле", (*scene.ScenePresence).HandleAgentSitOnGround)
}

func (rs *RestServer) handleStand(c *gin.Context) {
	rs.transition(c, "seating.stand", "Аватар стоит", (*scene.ScenePresence).StandUp)
}

// transition выполняет переход без параметров; предупреждение физики не считается ошибкой
func (rs *RestServer) transition(c *gin.Context, spanName, message string, op func(*scene.ScenePresence) error) {
	sp, ok := rs.lookupPresence(c)
	if !ok {
		return
	}

	_, span := otel.Tracer(tracerName).Start(c.Request.Context(), spanName)
	span.SetAttributes(attribute.String("avatar.id", sp.UUID().String()))
	defer span.End()

	err := op(sp)
	var warning *scene.PhysicsWarning
	if err != nil && !errors.As(err, &warning) {
		span.SetStatus(codes.Error, err.Error())
		rs.log.Error("%s %s: %v", spanName, sp.UUID(), err)
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: "Внутренняя ошибка сервера"})
		return
	}
	if err != nil {
		span.RecordError(err)
	}

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: message, Data: newAvatarView(sp, err)})
}

func (rs *RestServer) lookupPresence(c *gin.Context) (*scene.ScenePresence, bool) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return nil, false
	}
	sp, found := rs.scene.GetScenePresence(id)
	if !found {
		notFound(c, "Аватар не найден")
		return nil, false
	}
	return sp, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "Неверный UUID")
		return uuid.Nil, false
	}
	return id, true
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: message})
}

func notFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: message})
}

// Start запускает REST сервер; блокируется до Stop
func (rs *RestServer) Start() error {
	rs.log.Info("REST API слушает %s", rs.httpServer.Addr)
	if err := rs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop останавливает REST сервер, дожидаясь активных запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.httpServer.Shutdown(ctx)
}
