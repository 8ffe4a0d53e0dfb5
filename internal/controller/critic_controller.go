package controller

import (
	"ai-critic-be/internal/dto"
	"ai-critic-be/internal/pkg/serverutils"
	"ai-critic-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ICriticController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	GetAll(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
}

type criticController struct {
	service service.ICriticService
}

func NewCriticController(service service.ICriticService) ICriticController {
	return &criticController{service: service}
}

func (c *criticController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/critics/v1")
	h.Use(auth)
	h.Get("", c.GetAll)
	h.Post("", c.Create)
}

func (c *criticController) GetAll(ctx *fiber.Ctx) error {
	res, err := c.service.List(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get critics", res))
}

func (c *criticController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateCriticRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Create(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Critic created", res))
}
