package routes

import (
	"object-storage-api/internal/handlers"
	"object-storage-api/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"
)

func SetupRoutes(app *fiber.App) {
	// Monitor route
	app.Get("/metrics", monitor.New())

	fileHandler := handlers.NewFileHandler()
	auth := middleware.RequireAPIKey()

	// Public routes
	app.Get("/health", fileHandler.Health)
	app.Get("/files/:filename", fileHandler.ServeFile)

	// Authenticated routes
	app.Post("/upload", auth, fileHandler.UploadFile)
	app.Post("/upload/web", auth, fileHandler.UploadWebFile)
	app.Get("/list", auth, fileHandler.ListFiles)
	app.Delete("/remove/:id", auth, fileHandler.DeleteFileByID)
	app.Delete("/delete/:id", auth, fileHandler.DeleteFileByID)
	app.Delete("/files/delete/:filename", auth, fileHandler.DeleteFileByFilename)
}
