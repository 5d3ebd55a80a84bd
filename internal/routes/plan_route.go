package routes

import (
	"net/http"

	"score/commons/routes"
	"score/internal/dto"
	"score/internal/handler"
	"score/internal/logger"

	"github.com/gin-gonic/gin"
)

func InitPlanRoutes(
	router *gin.Engine,
	planHandler *handler.PlanHandler,
	log logger.Logger,
) {
	apiV1 := routes.CreateAPIGroup(router, "v1")

	deps := routes.RouteDependencies{
		Logger: log,
	}

	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.ListPlansRequest, dto.ListPlansResponse]{
			Path:        "/plans",
			Method:      http.MethodGet,
			ServiceFunc: planHandler.ListPlansService,
			RequireAuth: false,
		},
	)

	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.RefreshPlansRequest, dto.RefreshPlansResponse]{
			Path:        "/plans/refresh",
			Method:      http.MethodPost,
			ServiceFunc: planHandler.RefreshPlansService,
			RequireAuth: false,
		},
	)
}
