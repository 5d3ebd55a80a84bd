package handler

import (
	"context"

	"score/commons/error_handler"
	"score/commons/handler"
	"score/internal/domain"
	"score/internal/dto"
	"score/internal/logger"
	"score/internal/repository"
	repositoryIface "score/internal/repository/iface"
)

type WorkerHandler struct {
	logger  logger.Logger
	workers repositoryIface.WorkerRepository
}

func NewWorkerHandler(log logger.Logger, workers repositoryIface.WorkerRepository) *WorkerHandler {
	return &WorkerHandler{
		logger:  log.With(logger.String("component", "worker_handler")),
		workers: workers,
	}
}

func toWorkerResponse(w *domain.Worker) dto.WorkerResponse {
	groups := w.Groups
	if groups == nil {
		groups = []string{}
	}
	return dto.WorkerResponse{
		UUID:           w.UUID,
		Active:         w.Active,
		Deleted:        w.Deleted,
		Status:         string(w.Status),
		HostName:       w.HostName,
		InstallPath:    w.InstallPath,
		Description:    w.Description,
		OS:             w.OS,
		Runtime:        w.Runtime,
		RuntimeVersion: w.RuntimeVersion,
		Groups:         groups,
	}
}

func (h *WorkerHandler) PutWorkerService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.PutWorkerRequest],
) (dto.WorkerResponse, *error_handler.ErrorCollection) {
	uuid := ioutil.PathParams["id"]
	if uuid == "" {
		return dto.WorkerResponse{}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeValidationError, "worker id is required", nil)
	}

	body := ioutil.Body
	worker := &domain.Worker{
		UUID:           uuid,
		Active:         body.Active,
		Deleted:        body.Deleted,
		Status:         domain.WorkerStatus(body.Status),
		HostName:       body.HostName,
		InstallPath:    body.InstallPath,
		Description:    body.Description,
		OS:             body.OS,
		Runtime:        body.Runtime,
		RuntimeVersion: body.RuntimeVersion,
		Groups:         body.Groups,
	}

	if err := h.workers.Put(ctx, worker); err != nil {
		h.logger.Error("failed to store worker",
			logger.String("uuid", uuid),
			logger.Error(err))
		return dto.WorkerResponse{}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeInternalServerError, "failed to store worker", nil)
	}

	h.logger.Info("worker registered",
		logger.String("uuid", uuid),
		logger.String("status", body.Status),
		logger.Any("groups", body.Groups))
	return toWorkerResponse(worker), nil
}

func (h *WorkerHandler) GetWorkerService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.GetWorkerRequest],
) (dto.WorkerResponse, *error_handler.ErrorCollection) {
	uuid := ioutil.PathParams["id"]

	worker, err := h.workers.Get(ctx, uuid)
	if err != nil {
		if repository.IsNotFoundError(err) {
			return dto.WorkerResponse{}, error_handler.NewErrorCollection().
				AddError(error_handler.CodeNotFound, "worker not found", nil)
		}
		h.logger.Error("failed to get worker", logger.String("uuid", uuid), logger.Error(err))
		return dto.WorkerResponse{}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeInternalServerError, "failed to get worker", nil)
	}

	return toWorkerResponse(worker), nil
}

func (h *WorkerHandler) ListWorkersService(
	ctx context.Context,
	ioutil *handler.RequestIo[dto.ListWorkersRequest],
) (dto.ListWorkersResponse, *error_handler.ErrorCollection) {
	group := ioutil.QueryParams["group"]
	if group == "" {
		return dto.ListWorkersResponse{}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeValidationError, "group is required", nil)
	}

	workers, err := h.workers.ActiveInGroup(ctx, group)
	if err != nil {
		h.logger.Error("failed to list workers", logger.String("group", group), logger.Error(err))
		return dto.ListWorkersResponse{}, error_handler.NewErrorCollection().
			AddError(error_handler.CodeInternalServerError, "failed to list workers", nil)
	}

	out := make([]dto.WorkerResponse, 0, len(workers))
	for _, w := range workers {
		out = append(out, toWorkerResponse(w))
	}

	return dto.ListWorkersResponse{
		Group:      group,
		Workers:    out,
		Pagination: dto.PaginationResponse{Count: len(out)},
	}, nil
}
