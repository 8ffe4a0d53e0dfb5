package controller

import (
	"ai-critic-be/internal/dto"
	"ai-critic-be/internal/pkg/serverutils"
	"ai-critic-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router, auth fiber.Handler)
	UpdateContent(ctx *fiber.Ctx) error
	ListSuggestions(ctx *fiber.Ctx) error
	UpdateSuggestion(ctx *fiber.Ctx) error
	Close(ctx *fiber.Ctx) error
}

type documentController struct {
	service service.IDocumentService
}

func NewDocumentController(service service.IDocumentService) IDocumentController {
	return &documentController{service: service}
}

func (c *documentController) RegisterRoutes(r fiber.Router, auth fiber.Handler) {
	h := r.Group("/documents/v1")
	h.Use(auth)
	h.Put(":id/content", c.UpdateContent)
	h.Get(":id/suggestions", c.ListSuggestions)
	h.Patch(":id/suggestions/:sid", c.UpdateSuggestion)
	h.Delete(":id", c.Close)
}

func (c *documentController) UpdateContent(ctx *fiber.Ctx) error {
	var req dto.UpdateContentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	res, err := c.service.Sync(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id"), req.Content)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Document updated", res))
}

func (c *documentController) ListSuggestions(ctx *fiber.Ctx) error {
	res, err := c.service.ListSuggestions(ctx.UserContext(), ctx.Params("id"), ctx.Query("status"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get suggestions", res))
}

func (c *documentController) UpdateSuggestion(ctx *fiber.Ctx) error {
	var req dto.UpdateSuggestionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.UpdateSuggestion(ctx.UserContext(), serverutils.UserID(ctx), ctx.Params("id"), ctx.Params("sid"), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Suggestion updated", res))
}

// Close drops the tracked version and suggestions of a document.
func (c *documentController) Close(ctx *fiber.Ctx) error {
	if err := c.service.Close(ctx.UserContext(), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Document closed", nil))
}
