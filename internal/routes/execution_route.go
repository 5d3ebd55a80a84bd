package routes

import (
	"net/http"

	"score/commons/routes"
	"score/internal/dto"
	"score/internal/handler"
	"score/internal/logger"

	"github.com/gin-gonic/gin"
)

func InitExecutionRoutes(
	router *gin.Engine,
	executionHandler *handler.ExecutionHandler,
	log logger.Logger,
) {
	apiV1 := routes.CreateAPIGroup(router, "v1")

	deps := routes.RouteDependencies{
		Logger: log,
	}

	// Register start execution route
	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.StartExecutionRequest, dto.StartExecutionResponse]{
			Path:        "/flows/:flow_id/executions",
			Method:      http.MethodPost,
			ServiceFunc: executionHandler.StartExecutionService,
			RequireAuth: false,
		},
	)

	// Register pause routes; branch_id query selects a branch
	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.PauseExecutionRequest, dto.PauseExecutionResponse]{
			Path:        "/executions/:id/pause",
			Method:      http.MethodPost,
			ServiceFunc: executionHandler.PauseExecutionService,
			RequireAuth: false,
		},
	)

	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.GetPauseRequest, dto.GetPauseResponse]{
			Path:        "/executions/:id/pause",
			Method:      http.MethodGet,
			ServiceFunc: executionHandler.GetPauseService,
			RequireAuth: false,
		},
	)

	// Register resume route
	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.ResumeExecutionRequest, dto.ResumeExecutionResponse]{
			Path:        "/executions/:id/resume",
			Method:      http.MethodPost,
			ServiceFunc: executionHandler.ResumeExecutionService,
			RequireAuth: false,
		},
	)
}
