package handlers

import (
	"errors"

	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorResponse 錯誤回應格式
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var kindStatus = map[errprocess.Kind]int{
	errprocess.KindNotFound:     fiber.StatusNotFound,
	errprocess.KindForbidden:    fiber.StatusForbidden,
	errprocess.KindConflict:     fiber.StatusConflict,
	errprocess.KindInvalid:      fiber.StatusBadRequest,
	errprocess.KindUnauthorized: fiber.StatusUnauthorized,
	errprocess.KindInternal:     fiber.StatusInternalServerError,
}

// StatusOf 依錯誤分類回傳 http status
func StatusOf(err error) int {
	if s, ok := kindStatus[errprocess.KindOf(err)]; ok {
		return s
	}
	return fiber.StatusInternalServerError
}

// respondError internal 錯誤不回傳細節
func respondError(c *fiber.Ctx, err error) error {
	status := StatusOf(err)
	if status == fiber.StatusInternalServerError {
		logger.Log.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.Status(status).JSON(ErrorResponse{Error: "internal server error", Code: "internal"})
	}

	code := "error"
	var appErr *errprocess.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
	}
	return c.Status(status).JSON(ErrorResponse{Error: errprocess.MessageOf(err), Code: code})
}

func badRequest(c *fiber.Ctx) error {
	return respondError(c, errprocess.ErrInvalidParams)
}
