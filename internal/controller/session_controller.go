package controller

import (
	"fmt"
	"io"

	"smart-meal-be/internal/dto"
	"smart-meal-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

// maxImageBytes caps a single uploaded file.
const maxImageBytes = 10 * 1024 * 1024

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	UploadImages(ctx *fiber.Ctx) error
	GetStatus(ctx *fiber.Ctx) error
	Analyze(ctx *fiber.Ctx) error
	GetResult(ctx *fiber.Ctx) error
}

type sessionController struct {
	sessionService  service.ISessionService
	analysisService service.IAnalysisService
}

func NewSessionController(sessionService service.ISessionService, analysisService service.IAnalysisService) ISessionController {
	return &sessionController{
		sessionService:  sessionService,
		analysisService: analysisService,
	}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	r.Post("/sessions", c.Create)

	h := r.Group("/session")
	h.Post("/:id/images", c.UploadImages)
	h.Get("/:id/status", c.GetStatus)
	h.Post("/:id/analyze", c.Analyze)
	h.Get("/:id/result", c.GetResult)
}

func (c *sessionController) Create(ctx *fiber.Ctx) error {
	res, err := c.sessionService.Create(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *sessionController) UploadImages(ctx *fiber.Ctx) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		return &dto.ValidationError{Message: "multipart form with field 'files' is required"}
	}

	headers := form.File["files"]
	files := make([]dto.UploadFile, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > maxImageBytes {
			return &dto.ValidationError{Message: fmt.Sprintf("%s exceeds %d bytes", fh.Filename, maxImageBytes)}
		}
		f, err := fh.Open()
		if err != nil {
			return &dto.ValidationError{Message: fmt.Sprintf("cannot read %s", fh.Filename)}
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return &dto.ValidationError{Message: fmt.Sprintf("cannot read %s", fh.Filename)}
		}
		files = append(files, dto.UploadFile{Filename: fh.Filename, Data: data})
	}

	res, err := c.sessionService.UploadImages(ctx.UserContext(), ctx.Params("id"), files)
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *sessionController) GetStatus(ctx *fiber.Ctx) error {
	res, err := c.sessionService.GetStatus(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *sessionController) Analyze(ctx *fiber.Ctx) error {
	res, err := c.analysisService.Analyze(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}

func (c *sessionController) GetResult(ctx *fiber.Ctx) error {
	res, err := c.sessionService.GetResult(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(res)
}
