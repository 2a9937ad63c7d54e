package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/penmark/hweval-api/internal/dto"
	"github.com/penmark/hweval-api/internal/handler"
	"github.com/penmark/hweval-api/internal/middleware"
	"github.com/penmark/hweval-api/internal/repository"
	"github.com/penmark/hweval-api/internal/service"
)

type stubHomeworkSetService struct {
	response dto.HomeworkSetResponse
	err      error

	ingestRole string
}

func (s *stubHomeworkSetService) Create(context.Context, dto.HomeworkSetCreateRequest) (dto.HomeworkSetResponse, error) {
	return s.response, s.err
}

func (s *stubHomeworkSetService) Update(context.Context, uint, dto.HomeworkSetUpdateRequest) (dto.HomeworkSetResponse, error) {
	return s.response, s.err
}

func (s *stubHomeworkSetService) Get(context.Context, uint) (dto.HomeworkSetResponse, error) {
	return s.response, s.err
}

func (s *stubHomeworkSetService) List(context.Context, repository.HomeworkSetFilter) ([]dto.HomeworkSetResponse, error) {
	return []dto.HomeworkSetResponse{s.response}, s.err
}

func (s *stubHomeworkSetService) Delete(context.Context, uint) error {
	return s.err
}

func (s *stubHomeworkSetService) IngestRecords(_ context.Context, _ uint, role string, _ dto.AnswerRecordsIngestRequest) (dto.HomeworkSetResponse, error) {
	s.ingestRole = role
	return s.response, s.err
}

func (s *stubHomeworkSetService) AttachScan(context.Context, uint, *multipart.FileHeader) (dto.HomeworkSetResponse, error) {
	return s.response, s.err
}

func newHomeworkApp(stub *stubHomeworkSetService) *fiber.App {
	app := fiber.New()
	h := handler.NewHomeworkSetHandler(stub, zerolog.Nop())
	h.Register(app.Group("/api/v1/homework-sets"), nil)
	return app
}

func newGuardedHomeworkApp(stub *stubHomeworkSetService, role string) *fiber.App {
	app := fiber.New()
	h := handler.NewHomeworkSetHandler(stub, zerolog.Nop())
	group := app.Group("/api/v1/homework-sets", func(c *fiber.Ctx) error {
		c.Locals("user_role", role)
		return c.Next()
	})
	h.Register(group, middleware.RequireRole("admin", "reviewer"))
	return app
}

func TestHomeworkSetHandlerCreate(t *testing.T) {
	stub := &stubHomeworkSetService{response: dto.HomeworkSetResponse{ID: 1, Title: "口算", Status: "draft"}}
	app := newHomeworkApp(stub)

	body, err := json.Marshal(dto.HomeworkSetCreateRequest{Title: "口算", Subject: "math"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/homework-sets", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestHomeworkSetHandlerIngestPassesRole(t *testing.T) {
	stub := &stubHomeworkSetService{response: dto.HomeworkSetResponse{ID: 1}}
	app := newHomeworkApp(stub)

	payload := dto.AnswerRecordsIngestRequest{
		Records: []dto.AnswerRecordRequest{{Index: "1", UserAnswer: "12", Correct: true}},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/homework-sets/1/records/baseline", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "baseline", stub.ingestRole)
}

func TestHomeworkSetHandlerReviewerGuard(t *testing.T) {
	t.Run("viewer cannot delete or ingest", func(t *testing.T) {
		stub := &stubHomeworkSetService{response: dto.HomeworkSetResponse{ID: 1}}
		app := newGuardedHomeworkApp(stub, "viewer")

		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/v1/homework-sets/1", nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)

		req := httptest.NewRequest(http.MethodPut, "/api/v1/homework-sets/1/records/baseline", bytes.NewReader([]byte(`{"records":[]}`)))
		req.Header.Set("Content-Type", "application/json")
		resp, err = app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		require.Empty(t, stub.ingestRole)
	})

	t.Run("viewer can still read", func(t *testing.T) {
		stub := &stubHomeworkSetService{response: dto.HomeworkSetResponse{ID: 1}}
		app := newGuardedHomeworkApp(stub, "viewer")

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/homework-sets/1", nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("reviewer can delete", func(t *testing.T) {
		stub := &stubHomeworkSetService{response: dto.HomeworkSetResponse{ID: 1}}
		app := newGuardedHomeworkApp(stub, "reviewer")

		resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/api/v1/homework-sets/1", nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestHomeworkSetHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", service.ErrHomeworkSetNotFound, http.StatusNotFound},
		{"invalid role", service.ErrInvalidAnswerRole, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubHomeworkSetService{err: tc.err}
			app := newHomeworkApp(stub)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/homework-sets/7", nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestHomeworkSetHandlerInvalidID(t *testing.T) {
	app := newHomeworkApp(&stubHomeworkSetService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/homework-sets/abc", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
