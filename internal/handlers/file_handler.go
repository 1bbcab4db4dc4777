package handlers

import (
	"context"
	"os"
	"time"

	"object-storage-api/internal/config"
	"object-storage-api/internal/database"
	"object-storage-api/internal/models"
	"object-storage-api/internal/optimizer"
	"object-storage-api/internal/requests"
	"object-storage-api/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kerimovok/go-pkg-utils/httpx"
	"github.com/kerimovok/go-pkg-utils/validator"
	"gorm.io/gorm"
)

// FileHandler handles file-related HTTP requests
type FileHandler struct {
	fileService   *services.FileService
	uploadService *services.UploadService
}

// NewFileHandler creates a new file handler
func NewFileHandler() *FileHandler {
	fileService := services.NewFileService()
	return &FileHandler{
		fileService: fileService,
		uploadService: services.NewUploadService(
			database.DB,
			fileService,
			config.GetConfig().Optimization,
			config.MaxUploadBytes(),
		),
	}
}

// Health reports liveness and database reachability.
func (h *FileHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := database.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":   "unhealthy",
			"database": "disconnected",
		})
	}

	return c.JSON(fiber.Map{
		"status":   "healthy",
		"database": "connected",
	})
}

// UploadFile handles plain uploads with an optional optimize flag.
func (h *FileHandler) UploadFile(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		response := httpx.BadRequest("No file provided", err)
		return httpx.SendResponse(c, response)
	}

	var input requests.UploadRequest
	if err := c.QueryParser(&input); err != nil {
		response := httpx.BadRequest("Invalid query parameters", err)
		return httpx.SendResponse(c, response)
	}

	if err := h.uploadService.ValidateFile(file); err != nil {
		response := httpx.BadRequest("File validation failed", err)
		return httpx.SendResponse(c, response)
	}

	params := services.UploadParams{Mode: services.OptimizeNone}
	if input.Optimize {
		params.Mode = services.OptimizeAuto
	}

	record, err := h.uploadService.Upload(c.UserContext(), file, params)
	if err != nil {
		response := httpx.InternalServerError("Failed to upload file", err)
		return httpx.SendResponse(c, response)
	}

	response := httpx.Created("File uploaded successfully", uploadSummary(record))
	return httpx.SendResponse(c, response)
}

// UploadWebFile handles uploads with forced web optimization and explicit
// quality/size parameters.
func (h *FileHandler) UploadWebFile(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		response := httpx.BadRequest("No file provided", err)
		return httpx.SendResponse(c, response)
	}

	var input requests.WebUploadRequest
	if err := c.QueryParser(&input); err != nil {
		response := httpx.BadRequest("Invalid query parameters", err)
		return httpx.SendResponse(c, response)
	}

	if err := validator.ValidateStruct(&input); err != nil {
		response := httpx.BadRequest("Validation failed", err)
		return httpx.SendResponse(c, response)
	}

	if err := h.uploadService.ValidateFile(file); err != nil {
		response := httpx.BadRequest("File validation failed", err)
		return httpx.SendResponse(c, response)
	}

	params := services.UploadParams{
		Mode: services.OptimizeWeb,
		Image: optimizer.ImageOptions{
			Quality:       input.Quality,
			MaxWidth:      input.MaxWidth,
			MaxHeight:     input.MaxHeight,
			PreserveAlpha: input.PreserveAlpha,
		},
	}

	record, err := h.uploadService.Upload(c.UserContext(), file, params)
	if err != nil {
		response := httpx.InternalServerError("Failed to upload file", err)
		return httpx.SendResponse(c, response)
	}

	response := httpx.Created("File uploaded successfully", uploadSummary(record))
	return httpx.SendResponse(c, response)
}

// ListFiles returns a paginated file listing with an optional type filter.
func (h *FileHandler) ListFiles(c *fiber.Ctx) error {
	var input requests.ListFilesRequest
	if err := c.QueryParser(&input); err != nil {
		response := httpx.BadRequest("Invalid query parameters", err)
		return httpx.SendResponse(c, response)
	}

	if err := validator.ValidateStruct(&input); err != nil {
		response := httpx.BadRequest("Validation failed", err)
		return httpx.SendResponse(c, response)
	}

	if input.Page <= 0 {
		input.Page = 1
	}
	if input.PerPage <= 0 {
		input.PerPage = 10
	}

	query := database.DB.Model(&models.File{})
	if input.FileType != "" {
		query = query.Where("file_type = ?", input.FileType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		response := httpx.InternalServerError("Failed to count files", err)
		return httpx.SendResponse(c, response)
	}

	var files []models.File
	offset := (input.Page - 1) * input.PerPage
	if err := query.Order("created_at DESC").Offset(offset).Limit(input.PerPage).Find(&files).Error; err != nil {
		response := httpx.InternalServerError("Failed to fetch files", err)
		return httpx.SendResponse(c, response)
	}

	result := fiber.Map{
		"files":    files,
		"total":    total,
		"page":     input.Page,
		"per_page": input.PerPage,
	}

	response := httpx.OK("Files retrieved successfully", result)
	return httpx.SendResponse(c, response)
}

// DeleteFileByID deletes a file and its record by id.
func (h *FileHandler) DeleteFileByID(c *fiber.Ctx) error {
	fileID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		response := httpx.BadRequest("Invalid file ID", err)
		return httpx.SendResponse(c, response)
	}

	var file models.File
	if err := database.DB.First(&file, "id = ?", fileID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			response := httpx.NotFound("File not found")
			return httpx.SendResponse(c, response)
		}
		response := httpx.InternalServerError("Failed to fetch file", err)
		return httpx.SendResponse(c, response)
	}

	if err := h.uploadService.Delete(c.UserContext(), &file); err != nil {
		response := httpx.InternalServerError("Failed to delete file", err)
		return httpx.SendResponse(c, response)
	}

	response := httpx.OK("File removed successfully", fiber.Map{"file_id": fileID})
	return httpx.SendResponse(c, response)
}

// DeleteFileByFilename deletes a file and its record by stored filename.
func (h *FileHandler) DeleteFileByFilename(c *fiber.Ctx) error {
	filename := c.Params("filename")

	var file models.File
	if err := database.DB.First(&file, "filename = ?", filename).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			response := httpx.NotFound("File not found")
			return httpx.SendResponse(c, response)
		}
		response := httpx.InternalServerError("Failed to fetch file", err)
		return httpx.SendResponse(c, response)
	}

	if err := h.uploadService.Delete(c.UserContext(), &file); err != nil {
		response := httpx.InternalServerError("Failed to delete file", err)
		return httpx.SendResponse(c, response)
	}

	response := httpx.OK("File removed successfully", fiber.Map{"filename": filename})
	return httpx.SendResponse(c, response)
}

// ServeFile streams a stored file publicly by filename, preferring the
// optimized artifact when one exists on disk.
func (h *FileHandler) ServeFile(c *fiber.Ctx) error {
	filename := c.Params("filename")

	var file models.File
	if err := database.DB.First(&file, "filename = ?", filename).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			response := httpx.NotFound("File not found")
			return httpx.SendResponse(c, response)
		}
		response := httpx.InternalServerError("Failed to fetch file", err)
		return httpx.SendResponse(c, response)
	}

	path := file.FilePath
	if file.IsOptimized && file.OptimizedPath != nil {
		if _, err := os.Stat(*file.OptimizedPath); err == nil {
			path = *file.OptimizedPath
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		response := httpx.NotFound("File not found on disk")
		return httpx.SendResponse(c, response)
	}

	c.Set(fiber.HeaderContentDisposition, `inline; filename="`+file.OriginalFilename+`"`)
	if err := c.SendFile(path); err != nil {
		// The file can vanish between the stat and the send.
		response := httpx.NotFound("File not found on disk")
		return httpx.SendResponse(c, response)
	}
	c.Set(fiber.HeaderContentType, file.MimeType)
	return nil
}

// uploadSummary shapes the upload response payload.
func uploadSummary(record *models.File) fiber.Map {
	return fiber.Map{
		"id":                record.ID,
		"filename":          record.Filename,
		"original_filename": record.OriginalFilename,
		"file_type":         record.FileType,
		"mime_type":         record.MimeType,
		"file_size":         record.FileSize,
		"is_optimized":      record.IsOptimized,
		"url":               "/files/" + record.Filename,
	}
}
