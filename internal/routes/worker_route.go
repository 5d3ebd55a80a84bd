package routes

import (
	"net/http"

	"score/commons/routes"
	"score/internal/dto"
	"score/internal/handler"
	"score/internal/logger"

	"github.com/gin-gonic/gin"
)

func InitWorkerRoutes(
	router *gin.Engine,
	workerHandler *handler.WorkerHandler,
	log logger.Logger,
) {
	apiV1 := routes.CreateAPIGroup(router, "v1")

	deps := routes.RouteDependencies{
		Logger: log,
	}

	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.PutWorkerRequest, dto.WorkerResponse]{
			Path:        "/workers/:id",
			Method:      http.MethodPut,
			ServiceFunc: workerHandler.PutWorkerService,
			RequireAuth: false,
		},
	)

	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.GetWorkerRequest, dto.WorkerResponse]{
			Path:        "/workers/:id",
			Method:      http.MethodGet,
			ServiceFunc: workerHandler.GetWorkerService,
			RequireAuth: false,
		},
	)

	// Register list route; group query is required
	routes.RegisterRoute(
		apiV1,
		deps,
		routes.RouteOptions[dto.ListWorkersRequest, dto.ListWorkersResponse]{
			Path:        "/workers",
			Method:      http.MethodGet,
			ServiceFunc: workerHandler.ListWorkersService,
			RequireAuth: false,
		},
	)
}
