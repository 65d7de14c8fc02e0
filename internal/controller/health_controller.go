package controller

import (
	"health-agent-be/internal/dto"
	"health-agent-be/internal/pkg/logger"
	"health-agent-be/internal/pkg/serverutils"
	"health-agent-be/internal/service"
	internalWS "health-agent-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	GenerateRecommendation(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	GetMetrics(ctx *fiber.Ctx) error
	StreamRecommendation(ctx *fiber.Ctx) error
}

type healthController struct {
	service service.IRecommendationService
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewHealthController(service service.IRecommendationService, hub *internalWS.Hub, log logger.ILogger) IHealthController {
	return &healthController{
		service: service,
		hub:     hub,
		logger:  log,
	}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/health/v1")
	h.Post("/recommendation", c.GenerateRecommendation)
	h.Get("/recommendation/stream", c.StreamRecommendation)
	h.Get("/metrics", c.GetMetrics)
	h.Get("/sessions/:id", c.GetSession)
}

// GenerateRecommendation runs a full pipeline pass and returns the result.
// An empty body is allowed; the synthetic telemetry source is used then.
func (c *healthController) GenerateRecommendation(ctx *fiber.Ctx) error {
	var req dto.RecommendationRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := serverutils.ValidateRequest(req); err != nil {
			return err
		}
	}

	res, err := c.service.Generate(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success generate recommendation", res))
}

func (c *healthController) GetSession(ctx *fiber.Ctx) error {
	res, err := c.service.GetSession(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}

// GetMetrics returns the current telemetry snapshot from the data source.
func (c *healthController) GetMetrics(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get health metrics", c.service.GetMetrics(ctx.UserContext())))
}

// StreamRecommendation upgrades to a websocket that receives the streaming
// partials and the completion frame for one session. The session_id query
// parameter selects which run to watch.
func (c *healthController) StreamRecommendation(ctx *fiber.Ctx) error {
	sessionID := ctx.Query("session_id")
	if sessionID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "session_id query parameter is required")
	}

	if websocket.IsWebSocketUpgrade(ctx) {
		return websocket.New(func(conn *websocket.Conn) {
			c.logger.Info("HealthController", "Starting stream session", map[string]interface{}{"session_id": sessionID})
			internalWS.ServeWs(c.hub, conn, sessionID)
			c.logger.Info("HealthController", "Stream session ended", map[string]interface{}{"session_id": sessionID})
		})(ctx)
	}
	return fiber.ErrUpgradeRequired
}
