package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS - публичное API только для чтения, кеш управляется с тех же origin'ов
func CORS() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Accept,Accept-Language",
	})
}
