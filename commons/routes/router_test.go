package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"score/commons/error_handler"
	"score/commons/handler"
	"score/commons/response"
	"score/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoRequest struct {
	Name string `json:"name" binding:"required"`
}

type echoResponse struct {
	Greeting string `json:"greeting"`
	ID       string `json:"id"`
}

func newTestRouter() http.Handler {
	deps := RouteDependencies{Logger: logger.NewNopLogger()}
	router := NewRouter(RouterConfig{ServiceName: "test", Version: "v1"}, deps)
	api := CreateAPIGroup(router, "v1")

	RegisterRoute(api, deps, RouteOptions[echoRequest, echoResponse]{
		Path:   "/echo/:id",
		Method: http.MethodPost,
		ServiceFunc: func(_ context.Context, io *handler.RequestIo[echoRequest]) (echoResponse, *error_handler.ErrorCollection) {
			if io.Body.Name == "nobody" {
				return echoResponse{}, error_handler.NewErrorCollection().AddError(error_handler.CodeNotFound, "no such person", nil)
			}
			return echoResponse{Greeting: "hello " + io.Body.Name, ID: io.PathParams["id"]}, nil
		},
	})
	return router
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response.StandardResponse {
	t.Helper()
	var out response.StandardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRegisteredRoute(t *testing.T) {
	router := newTestRouter()

	t.Run("success", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/echo/7", strings.NewReader(`{"name":"ada"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get(handler.RequestIDHeader))
		body := decode(t, rec)
		assert.Equal(t, response.StatusSuccess, body.Status)
		assert.Equal(t, map[string]any{"greeting": "hello ada", "id": "7"}, body.Data)
	})

	t.Run("binding error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/echo/7", strings.NewReader(`{}`))
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("service error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/echo/7", strings.NewReader(`{"name":"nobody"}`))
		req.Header.Set(handler.RequestIDHeader, "req-1")
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "req-1", rec.Header().Get(handler.RequestIDHeader))
		body := decode(t, rec)
		assert.Equal(t, response.StatusFailed, body.Status)
		assert.Equal(t, "no such person", body.Message)
	})

	t.Run("no route", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/nothing", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/echo/7", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}
