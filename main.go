package main

import (
	"realtime_chat_service/internal/api/router"

	"github.com/gofiber/fiber/v2"
)

// 此程式只用於 init swagger, 服務入口在 cmd/chat_service
// swag init -g main.go --parseInternal --output ./cmd/chat_service/docs
func main() {
	app := fiber.New()

	router.RegisterRoutes(app, router.Handlers{})
}
