package controller

import (
	"io"

	"ai-docqa-be/internal/dto"
	"ai-docqa-be/internal/pkg/serverutils"
	"ai-docqa-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IRagController interface {
	RegisterRoutes(r fiber.Router)
	Ask(ctx *fiber.Ctx) error
	Reindex(ctx *fiber.Ctx) error
	UploadDocument(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
}

type ragController struct {
	service service.IRagService
}

func NewRagController(service service.IRagService) IRagController {
	return &ragController{service: service}
}

func (c *ragController) RegisterRoutes(r fiber.Router) {
	r.Post("/ask", c.Ask)
	r.Post("/reindex", c.Reindex)
	r.Post("/documents", c.UploadDocument)
	r.Get("/health", c.Health)
	r.Get("/sessions/:id", c.GetSession)
}

func (c *ragController) Ask(ctx *fiber.Ctx) error {
	var req dto.AskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Ask(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success answer question", res))
}

func (c *ragController) Reindex(ctx *fiber.Ctx) error {
	res, err := c.service.Reindex(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success reindex documents", res))
}

func (c *ragController) UploadDocument(ctx *fiber.Ctx) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Missing file field")
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return err
	}

	res, err := c.service.AddDocument(ctx.UserContext(), fh.Filename, data)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success add document", res))
}

func (c *ragController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("OK", c.service.Health(ctx.UserContext())))
}

func (c *ragController) GetSession(ctx *fiber.Ctx) error {
	res, err := c.service.GetSession(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}
