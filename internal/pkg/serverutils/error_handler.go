package serverutils

import (
	"errors"

	"ai-docqa-be/pkg/rag/ragerr"

	"github.com/gofiber/fiber/v2"
)

// StatusOf maps a pipeline error kind to its HTTP status
func StatusOf(kind ragerr.Kind) int {
	switch kind {
	case ragerr.KindInvalidInput:
		return fiber.StatusBadRequest
	case ragerr.KindEmptyCorpus:
		return fiber.StatusUnprocessableEntity
	case ragerr.KindUninitialized, ragerr.KindRetrievalUnavailable:
		return fiber.StatusServiceUnavailable
	case ragerr.KindGenerationFailed, ragerr.KindSummarizationFailed:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler renders every error returned by a handler as an ErrorBody
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	body := ErrorResponse(code, err.Error())

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		body = ErrorResponse(code, fe.Message)
	} else if kind := ragerr.KindOf(err); kind != "" {
		code = StatusOf(kind)
		body = ErrorResponse(code, err.Error())
		body.Kind = string(kind)
	}

	return ctx.Status(code).JSON(body)
}
