package controller

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"ai-critic-be/internal/dto"
	"ai-critic-be/internal/pkg/logger"
	"ai-critic-be/internal/pkg/serverutils"
	"ai-critic-be/pkg/analysis"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnalysisService struct {
	userID string
	req    *dto.StartAnalysisRequest
	err    error
}

func (s *stubAnalysisService) Start(_ context.Context, userID string, req *dto.StartAnalysisRequest) (*dto.FastAnalysisResponse, error) {
	s.userID = userID
	s.req = req
	if s.err != nil {
		return nil, s.err
	}
	return &dto.FastAnalysisResponse{AnalysisId: "a-1", Stage: "fast_complete", EnhancementsInProgress: true}, nil
}

func (s *stubAnalysisService) Status(_ context.Context, id string) (*dto.AnalysisStatusResponse, error) {
	return nil, fiber.NewError(fiber.StatusNotFound, "analysis not found")
}

func (s *stubAnalysisService) Cancel(_ context.Context, _, _ string) error {
	return nil
}

func newAnalysisApp(svc *stubAnalysisService) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: serverutils.NewErrorHandler(logger.NewNopLogger(),
			serverutils.StatusFor{Err: analysis.ErrNoWorkersAvailable, Status: fiber.StatusServiceUnavailable}),
	})
	auth := func(c *fiber.Ctx) error {
		c.Locals("user_id", "u-1")
		return c.Next()
	}
	NewAnalysisController(svc).RegisterRoutes(app, auth)
	return app
}

func TestAnalysisController_Start(t *testing.T) {
	svc := &stubAnalysisService{}
	app := newAnalysisApp(svc)

	req := httptest.NewRequest("POST", "/analysis/v1", strings.NewReader(`{"document_id":"doc-1","content":"Hello there.","urgency":"high"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body serverutils.Response[dto.FastAnalysisResponse]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, "a-1", body.Data.AnalysisId)
	assert.Equal(t, "u-1", svc.userID)
	assert.Equal(t, "high", svc.req.Urgency)
}

func TestAnalysisController_StartRejectsInvalidBody(t *testing.T) {
	app := newAnalysisApp(&stubAnalysisService{})

	req := httptest.NewRequest("POST", "/analysis/v1", strings.NewReader(`{"document_id":"doc-1","urgency":"whenever"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAnalysisController_ErrorMapping(t *testing.T) {
	app := newAnalysisApp(&stubAnalysisService{err: analysis.ErrNoWorkersAvailable})

	req := httptest.NewRequest("POST", "/analysis/v1", strings.NewReader(`{"document_id":"doc-1","content":"Hi."}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/analysis/v1/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("DELETE", "/analysis/v1/a-1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
