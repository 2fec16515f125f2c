package server

import (
	"net/http"
	"time"

	"github.com/nvelasco/homeline/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type commandResponse struct {
	Status       string         `json:"status"`
	Message      string         `json:"message"`
	DeviceStates map[string]any `json:"device_states,omitempty"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/devices", s.DevicesHandler)
	e.POST("/voice-command", s.VoiceCommandHandler)
	e.POST("/command", s.CommandHandler)

	return e
}

// VoiceCommandHandler takes free text, runs it through the language
// model and applies the resulting update.
func (s *Server) VoiceCommandHandler(c echo.Context) error {
	command := c.FormValue("command")
	if command == "" {
		return c.JSON(http.StatusBadRequest, commandResponse{
			Status:  "error",
			Message: "No command received",
		})
	}

	doc, err := s.parser.Parse(c.Request().Context(), command)
	if err != nil {
		return c.JSON(http.StatusBadGateway, commandResponse{
			Status:  "error",
			Message: "Command could not be interpreted",
		})
	}

	return s.applyCommand(c, *doc)
}

// CommandHandler takes an already-structured update document, no
// language model involved.
func (s *Server) CommandHandler(c echo.Context) error {
	var doc domain.UpdateDocument
	if err := c.Bind(&doc); err != nil {
		return c.JSON(http.StatusBadRequest, commandResponse{
			Status:  "error",
			Message: "No state data received",
		})
	}
	return s.applyCommand(c, doc)
}

func (s *Server) applyCommand(c echo.Context, doc domain.UpdateDocument) error {
	res, err := s.rootContext.RequestFuture(s.controllerActor, domain.ApplyCommandRequest{Document: doc}, 10*time.Second).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, commandResponse{
			Status:  "error",
			Message: "Controller unavailable",
		})
	}
	response, ok := res.(domain.ApplyCommandResponse)
	if !ok || response.HasResponseError() {
		return c.JSON(http.StatusInternalServerError, commandResponse{
			Status:  "error",
			Message: "Error processing command",
		})
	}
	return c.JSON(http.StatusOK, commandResponse{
		Status:       "success",
		Message:      response.Outcome.Message,
		DeviceStates: response.Outcome.DeviceStates,
	})
}

func (s *Server) DevicesHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.controllerActor, domain.GetSnapshotRequest{}, 5*time.Second).Result()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, commandResponse{
			Status:  "error",
			Message: "Controller unavailable",
		})
	}
	response, ok := res.(domain.GetSnapshotResponse)
	if !ok {
		return c.JSON(http.StatusInternalServerError, commandResponse{
			Status:  "error",
			Message: "Error reading device states",
		})
	}
	return c.JSON(http.StatusOK, commandResponse{
		Status:       "success",
		Message:      "Current device states",
		DeviceStates: domain.SnapshotDocument(response.Snapshot),
	})
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.controllerActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}
