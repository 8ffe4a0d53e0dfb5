package controller

import (
	"ai-critic-be/internal/dto"
	"ai-critic-be/internal/pkg/serverutils"
	"ai-critic-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAnalysisController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	Start(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
}

type analysisController struct {
	service service.IAnalysisService
}

func NewAnalysisController(service service.IAnalysisService) IAnalysisController {
	return &analysisController{service: service}
}

func (c *analysisController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/analysis/v1")
	h.Use(auth)
	h.Post("", c.Start)
	h.Get(":id", c.Status)
	h.Delete(":id", c.Cancel)
}

func (c *analysisController) Start(ctx *fiber.Ctx) error {
	var req dto.StartAnalysisRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Start(ctx.UserContext(), serverutils.UserID(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Fast analysis complete", res))
}

func (c *analysisController) Status(ctx *fiber.Ctx) error {
	res, err := c.service.Status(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get analysis status", res))
}

func (c *analysisController) Cancel(ctx *fiber.Ctx) error {
	if err := c.service.Cancel(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Analysis cancelled", nil))
}
