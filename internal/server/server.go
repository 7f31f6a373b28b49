package server

import (
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberws "github.com/gofiber/websocket/v2"

	"ai-researcher-be/internal/bootstrap"
)

type Server struct {
	app       *fiber.App
	container *bootstrap.Container
}

func New(container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		AppName: "ai-researcher-be",
	})

	app.Use(otelfiber.Middleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: container.Cfg.App.CorsAllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":      "ok",
			"connections": container.WsManager.Count(),
		})
	})

	app.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", fiberws.New(func(conn *fiberws.Conn) {
		container.WsHandler.Serve(conn)
	}))

	return &Server{app: app, container: container}
}

func (s *Server) Listen() error {
	return s.app.Listen(":" + s.container.Cfg.App.Port)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
