package handler

import (
	"context"
	"strconv"
	"time"

	"score/commons/error_handler"
	"score/commons/handler"
	coordinator "score/internal/coordinator/iface"
	"score/internal/dto"
	"score/internal/logger"
	"score/internal/plan"
	"score/internal/service"
)

type PlanHandler struct {
	logger      logger.Logger
	store       *plan.Store
	manager     service.PlanManager
	coordinator coordinator.Coordinator
	refreshPath string
}

// NewPlanHandler takes an optional coordinator. With one, refreshes are
// broadcast through the refresh node so every instance reloads.
func NewPlanHandler(
	log logger.Logger,
	store *plan.Store,
	manager service.PlanManager,
	coord coordinator.Coordinator,
	refreshPath string,
) *PlanHandler {
	if refreshPath == "" {
		refreshPath = service.DefaultRefreshPath
	}
	return &PlanHandler{
		logger:      log.With(logger.String("component", "plan_handler")),
		store:       store,
		manager:     manager,
		coordinator: coord,
		refreshPath: refreshPath,
	}
}

func (h *PlanHandler) ListPlansService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.ListPlansRequest],
) (dto.ListPlansResponse, *error_handler.ErrorCollection) {
	plans := h.store.List()

	out := make([]dto.PlanSummary, 0, len(plans))
	for _, p := range plans {
		out = append(out, dto.PlanSummary{
			FlowID:      p.FlowID(),
			BeginStepID: p.BeginStepID(),
			Steps:       len(p.Plan().Steps),
		})
	}

	return dto.ListPlansResponse{
		Plans:      out,
		Pagination: dto.PaginationResponse{Count: len(out)},
	}, nil
}

func (h *PlanHandler) RefreshPlansService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.RefreshPlansRequest],
) (dto.RefreshPlansResponse, *error_handler.ErrorCollection) {
	if h.coordinator != nil {
		trigger := []byte(strconv.FormatInt(time.Now().UnixMilli(), 10))
		err := h.coordinator.UpdateNode(h.refreshPath, trigger)
		if err == nil {
			h.logger.Info("plan refresh broadcast", logger.String("path", h.refreshPath))
			return dto.RefreshPlansResponse{Mode: "broadcast", Plans: h.store.Len()}, nil
		}
		h.logger.Warn("failed to update refresh node, reloading locally",
			logger.String("path", h.refreshPath),
			logger.Error(err))
	}

	if err := h.manager.Refresh(ctx); err != nil {
		h.logger.Error("failed to refresh plans", logger.Error(err))
		return dto.RefreshPlansResponse{}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeValidationError, err.Error(), nil)
	}

	return dto.RefreshPlansResponse{Mode: "local", Plans: h.store.Len()}, nil
}
