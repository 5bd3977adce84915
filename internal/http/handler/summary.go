package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"bookapi/internal/service"
)

// GetSummary returns the table of contents in its structured JSON form.
func GetSummary(svc service.BookService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sum, err := svc.Summary(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(sum)
	}
}

// ExportSummary returns the table of contents rendered as markdown.
func ExportSummary(svc service.BookService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		b, err := svc.ExportSummary(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
		return c.Send(b)
	}
}

// ImportSummary replaces the stored table of contents from an uploaded
// summary file (multipart/form-data, field name: file).
func ImportSummary(svc service.BookService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		res, err := svc.ImportSummary(c.UserContext(), f)
		if err != nil {
			if errors.Is(err, service.ErrInvalidSummary) {
				return writeError(c, fiber.StatusUnprocessableEntity, "INVALID_SUMMARY", err.Error())
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}
