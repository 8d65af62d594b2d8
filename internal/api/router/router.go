package router

import (
	"realtime_chat_service/internal/api/handlers"
	"realtime_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

// Handlers REST handlers
type Handlers struct {
	Auth     *handlers.AuthHandler
	Friends  *handlers.FriendHandler
	Rooms    *handlers.RoomHandler
	Messages *handlers.MessageHandler
	Sessions middlewares.SessionValidator
}

// RegisterRoutes 注册 REST 路由
// @title Realtime Chat Service API
// @version 1.0
// @description REST API for the realtime chat service, realtime events are on /ws
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func RegisterRoutes(app *fiber.App, h Handlers) {
	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Get("/", handlers.ConnectCheck)
	app.Post("/debug", handlers.DebugLogFlag)

	auth := []fiber.Handler{middlewares.JWTMiddleware()}
	if h.Sessions != nil {
		auth = append(auth, middlewares.SessionMiddleware(h.Sessions))
	}

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", h.Auth.Register)
	authRoutes.Post("/login", h.Auth.Login)
	for _, m := range auth {
		authRoutes.Use(m)
	}
	authRoutes.Post("/logout", h.Auth.Logout)
	authRoutes.Get("/profile", h.Auth.Profile)
	authRoutes.Patch("/profile", h.Auth.UpdateProfile)
	authRoutes.Put("/profile", h.Auth.UpdateProfile)
	authRoutes.Post("/profile/avatar", h.Auth.UpdateAvatar)

	friendRoutes := api.Group("/friends", auth...)
	friendRoutes.Post("/send", h.Friends.Send)
	friendRoutes.Post("/accept", h.Friends.Accept)
	friendRoutes.Post("/reject", h.Friends.Reject)
	friendRoutes.Post("/cancel", h.Friends.Cancel)
	friendRoutes.Post("/remove", h.Friends.Remove)
	friendRoutes.Post("/block", h.Friends.Block)
	friendRoutes.Post("/unblock", h.Friends.Unblock)
	friendRoutes.Get("/requests", h.Friends.Requests)
	friendRoutes.Get("/list", h.Friends.List)
	friendRoutes.Get("/users", h.Friends.Users)
	friendRoutes.Get("/search", h.Friends.Search)
	friendRoutes.Get("/check/:userId", h.Friends.Check)
	friendRoutes.Get("/blocked", h.Friends.Blocked)

	roomRoutes := api.Group("/rooms", auth...)
	roomRoutes.Get("/", h.Rooms.List)
	roomRoutes.Post("/", h.Rooms.Create)
	roomRoutes.Get("/unread", h.Rooms.Unread)
	roomRoutes.Post("/join", h.Rooms.Join)
	roomRoutes.Get("/direct/:friendId", h.Rooms.Direct)
	roomRoutes.Get("/:id", h.Rooms.Get)
	roomRoutes.Delete("/:id", h.Rooms.Leave)
	roomRoutes.Post("/:roomId/members", h.Rooms.AddMembers)
	roomRoutes.Delete("/:roomId/members/:userId", h.Rooms.RemoveMember)
	roomRoutes.Post("/:roomId/admin", h.Rooms.TransferAdmin)

	messageRoutes := api.Group("/messages", auth...)
	messageRoutes.Post("/", h.Messages.Send)
	messageRoutes.Post("/upload", h.Messages.Upload)
	messageRoutes.Get("/room/:roomId", h.Messages.History)
	messageRoutes.Get("/room/:roomId/search", h.Messages.Search)
	messageRoutes.Post("/room/:roomId/read", h.Messages.MarkRoomRead)
	messageRoutes.Post("/:messageId/read", h.Messages.MarkRead)
	messageRoutes.Patch("/:messageId", h.Messages.Edit)
	messageRoutes.Delete("/:messageId", h.Messages.Delete)
	messageRoutes.Post("/:messageId/reaction", h.Messages.React)
	messageRoutes.Delete("/:messageId/reaction", h.Messages.Unreact)

	fileRoutes := api.Group("/files", auth...)
	fileRoutes.Get("/:id", h.Messages.File)
}
