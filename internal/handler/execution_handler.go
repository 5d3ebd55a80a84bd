package handler

import (
	"context"
	"errors"

	"score/commons/error_handler"
	"score/commons/handler"
	"score/internal/domain"
	"score/internal/dto"
	"score/internal/logger"
	"score/internal/plan"
	"score/internal/repository"
	"score/internal/service"
)

type ExecutionHandler struct {
	logger logger.Logger
	runner service.StepRunner
	pauses service.PauseResumeService
}

func NewExecutionHandler(
	log logger.Logger,
	runner service.StepRunner,
	pauses service.PauseResumeService,
) *ExecutionHandler {
	return &ExecutionHandler{
		logger: log.With(logger.String("component", "execution_handler")),
		runner: runner,
		pauses: pauses,
	}
}

func (h *ExecutionHandler) StartExecutionService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.StartExecutionRequest],
) (dto.StartExecutionResponse, *error_handler.ErrorCollection) {
	flowID := ioutil.PathParams["flow_id"]
	if flowID == "" {
		return dto.StartExecutionResponse{}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeValidationError, "flow_id is required", nil)
	}

	executionID, err := h.runner.Start(ctx, flowID, ioutil.Body.Variables)
	if err != nil {
		if errors.Is(err, plan.ErrPlanNotFound) {
			return dto.StartExecutionResponse{}, error_handler.NewErrorCollection().
				AddError(error_handler.CodeNotFound, "flow not found", nil)
		}
		h.logger.Error("failed to start execution",
			logger.String("flow_id", flowID),
			logger.Error(err))
		return dto.StartExecutionResponse{}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeInternalServerError, "failed to start execution", nil)
	}

	return dto.StartExecutionResponse{ExecutionID: executionID, FlowID: flowID}, nil
}

func (h *ExecutionHandler) PauseExecutionService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.PauseExecutionRequest],
) (dto.PauseExecutionResponse, *error_handler.ErrorCollection) {
	executionID, err := ioutil.PathInt64("id")
	if err != nil {
		return dto.PauseExecutionResponse{}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeValidationError, err.Error(), nil)
	}
	branchID := ioutil.QueryParams["branch_id"]

	pauseID, err := h.pauses.PauseExecution(ctx, executionID, branchID, domain.PauseReasonUserPaused)
	if err != nil {
		h.logger.Error("failed to pause execution",
			logger.Int64("execution_id", executionID),
			logger.String("branch_id", branchID),
			logger.Error(err))
		return dto.PauseExecutionResponse{}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeInternalServerError, "failed to pause execution", nil)
	}

	return dto.PauseExecutionResponse{
		ExecutionID:   executionID,
		BranchID:      branchID,
		PauseID:       pauseID,
		AlreadyPaused: pauseID == nil,
	}, nil
}

func (h *ExecutionHandler) GetPauseService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.GetPauseRequest],
) (dto.GetPauseResponse, *error_handler.ErrorCollection) {
	executionID, err := ioutil.PathInt64("id")
	if err != nil {
		return dto.GetPauseResponse{}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeValidationError, err.Error(), nil)
	}
	branchID := ioutil.QueryParams["branch_id"]

	record, err := h.pauses.ReadPausedExecution(ctx, executionID, branchID)
	if err != nil {
		if repository.IsNotFoundError(err) {
			return dto.GetPauseResponse{}, error_handler.NewErrorCollection().
				AddError(error_handler.CodeNotFound, "execution is not paused", nil)
		}
		h.logger.Error("failed to read pause record",
			logger.Int64("execution_id", executionID),
			logger.Error(err))
		return dto.GetPauseResponse{}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeInternalServerError, "failed to read pause record", nil)
	}

	return dto.GetPauseResponse{
		PauseID:     record.PauseID,
		ExecutionID: record.ExecutionID,
		BranchID:    record.BranchID,
		Reason:      string(record.Reason),
		HasSnapshot: record.HasSnapshot(),
		PausedAt:    record.PausedAt,
		UpdatedAt:   record.UpdatedAt,
	}, nil
}

func (h *ExecutionHandler) ResumeExecutionService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.ResumeExecutionRequest],
) (dto.ResumeExecutionResponse, *error_handler.ErrorCollection) {
	executionID, err := ioutil.PathInt64("id")
	if err != nil {
		return dto.ResumeExecutionResponse{}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeValidationError, err.Error(), nil)
	}
	branchID := ioutil.QueryParams["branch_id"]

	resumed, err := h.pauses.ResumeExecution(ctx, executionID, branchID)
	switch {
	case err == nil:
	case repository.IsNotFoundError(err):
		return dto.ResumeExecutionResponse{}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeNotFound, "execution is not paused", nil)
	case service.IsSnapshotMissingError(err):
		return dto.ResumeExecutionResponse{}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeConflict, "paused execution has no stored context yet", nil)
	default:
		h.logger.Error("failed to resume execution",
			logger.Int64("execution_id", executionID),
			logger.String("branch_id", branchID),
			logger.Error(err))
		return dto.ResumeExecutionResponse{}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeInternalServerError, "failed to resume execution", nil)
	}

	return dto.ResumeExecutionResponse{
		ExecutionID: executionID,
		BranchID:    branchID,
		Resumed:     resumed,
	}, nil
}
