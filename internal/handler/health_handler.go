package handler

import (
	"context"

	"score/commons/error_handler"
	"score/commons/handler"
	"score/internal/dto"
	"score/internal/logger"
	"score/internal/plan"
	queue "score/internal/queue/iface"
)

type HealthHandler struct {
	logger      logger.Logger
	serviceName string
	queue       queue.Queue
	plans       *plan.Store
}

func NewHealthHandler(log logger.Logger, serviceName string, q queue.Queue, plans *plan.Store) *HealthHandler {
	return &HealthHandler{
		logger:      log.With(logger.String("component", "health_handler")),
		serviceName: serviceName,
		queue:       q,
		plans:       plans,
	}
}

// HealthService reports queue depth and loaded plans; a queue that cannot
// be sized reports queue.UnknownSize and stays healthy
func (h *HealthHandler) HealthService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.HealthCheckRequest],
) (dto.HealthCheckResponse, *error_handler.ErrorCollection) {
	h.logger.Debug("health check requested")

	size, err := h.queue.Size(ctx)
	if err != nil {
		h.logger.Warn("failed to read queue size", logger.Error(err))
		size = queue.UnknownSize
	}

	status := "healthy"
	if h.plans.Len() == 0 {
		status = "degraded"
	}

	return dto.HealthCheckResponse{
		Status:    status,
		Service:   h.serviceName,
		QueueSize: size,
		Plans:     h.plans.Len(),
	}, nil
}
