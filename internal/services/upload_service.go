package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"object-storage-api/internal/config"
	"object-storage-api/internal/models"
	"object-storage-api/internal/optimizer"

	"github.com/gabriel-vasile/mimetype"
	"github.com/kerimovok/go-pkg-utils/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OptimizeMode selects what the upload pipeline does after storing the
// original bytes.
type OptimizeMode string

const (
	// OptimizeNone stores the original bytes untouched.
	OptimizeNone OptimizeMode = "none"
	// OptimizeAuto optimizes optimizable images and videos with the
	// configured defaults.
	OptimizeAuto OptimizeMode = "auto"
	// OptimizeWeb forces web optimization with caller-supplied parameters.
	OptimizeWeb OptimizeMode = "web"
)

// UploadParams carries the per-request optimization choices.
type UploadParams struct {
	Mode  OptimizeMode
	Image optimizer.ImageOptions // zero fields fall back to configured defaults
}

// UploadService drives the upload transaction: size gate, classification,
// durable write, optional optimization and record creation, with best-effort
// rollback of written bytes when anything after the first write fails.
//
// A failed optimization never fails the upload: the original stays
// authoritative and the error is recorded in the file's metadata.
type UploadService struct {
	db       *gorm.DB
	files    *FileService
	cfg      config.OptimizationConfig
	maxBytes int64
}

// NewUploadService creates an upload service with explicit collaborators.
func NewUploadService(db *gorm.DB, files *FileService, cfg config.OptimizationConfig, maxBytes int64) *UploadService {
	return &UploadService{
		db:       db,
		files:    files,
		cfg:      cfg,
		maxBytes: maxBytes,
	}
}

// ValidateFile enforces the upload size cap before any disk write.
func (s *UploadService) ValidateFile(file *multipart.FileHeader) error {
	if file.Size > s.maxBytes {
		return errors.BadRequestError("FILE_TOO_LARGE",
			fmt.Sprintf("File size exceeds maximum allowed size of %d bytes", s.maxBytes))
	}
	return nil
}

// Upload runs the full upload transaction and returns the created record.
func (s *UploadService) Upload(ctx context.Context, file *multipart.FileHeader, params UploadParams) (*models.File, error) {
	if err := s.ValidateFile(file); err != nil {
		return nil, err
	}

	mimeType := s.resolveMimeType(file)
	fileType := models.FileTypeFromMime(mimeType)

	filename := s.files.UniqueFilename(file.Filename)
	filePath := s.files.BuildPath(fileType, filename)

	if err := s.files.SaveFile(file, filePath); err != nil {
		return nil, err
	}

	metadata := map[string]interface{}{}
	isOptimized := false
	var optimizedPath *string

	switch {
	case params.Mode == OptimizeNone:
		// stored as-is
	case fileType == models.FileTypeImage && optimizer.IsOptimizableImage(mimeType):
		isOptimized, optimizedPath = s.optimizeImage(filePath, fileType, filename, params, metadata)
	case fileType == models.FileTypeVideo && optimizer.IsOptimizableVideo(mimeType):
		isOptimized, optimizedPath = s.optimizeVideo(ctx, filePath, fileType, filename, metadata)
	}

	if fileType == models.FileTypeImage {
		if info, err := optimizer.GetImageInfo(filePath); err == nil {
			metadata["image_info"] = info
		}
	}

	fileSize := file.Size
	if isOptimized && optimizedPath != nil {
		if info, err := os.Stat(*optimizedPath); err == nil {
			fileSize = info.Size()
		}
	}

	record := models.File{
		Filename:         filename,
		OriginalFilename: file.Filename,
		FileType:         fileType,
		MimeType:         mimeType,
		FileSize:         fileSize,
		FilePath:         filePath,
		IsOptimized:      isOptimized,
		OptimizedPath:    optimizedPath,
		Metadata:         marshalMetadata(metadata),
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		// Roll back every artifact this attempt wrote.
		paths := []string{filePath}
		if optimizedPath != nil {
			paths = append(paths, *optimizedPath)
		}
		s.files.RemoveFiles(paths...)
		return nil, errors.InternalError("RECORD_CREATION_ERROR", fmt.Sprintf("Failed to create file record: %v", err))
	}

	return &record, nil
}

// optimizeImage runs the image pass. Failures are recorded in metadata and
// leave the original authoritative.
func (s *UploadService) optimizeImage(filePath string, fileType models.FileType, filename string, params UploadParams, metadata map[string]interface{}) (bool, *string) {
	opts := s.imageOptions(params)

	outPath := s.files.BuildPath(fileType, "optimized_"+filename)
	result, err := optimizer.OptimizeImage(filePath, outPath, opts)
	if err != nil {
		log.Printf("Image optimization failed for %s: %v", filename, err)
		metadata["optimization_error"] = err.Error()
		return false, nil
	}

	metadata["optimization"] = result
	return true, &outPath
}

// optimizeVideo runs the video pass. A transcoder-unavailable copy is
// discarded and recorded as a warning; failures are recorded in metadata.
func (s *UploadService) optimizeVideo(ctx context.Context, filePath string, fileType models.FileType, filename string, metadata map[string]interface{}) (bool, *string) {
	video := s.cfg.Video
	opts := optimizer.VideoOptions{
		MaxWidth:       video.MaxWidth,
		MaxHeight:      video.MaxHeight,
		Quality:        video.Quality,
		FFmpegPath:     video.FFmpegPath,
		FFprobePath:    video.FFprobePath,
		VersionTimeout: video.VersionTimeout(),
		ProbeTimeout:   video.ProbeTimeout(),
		EncodeTimeout:  video.EncodeTimeout(),
	}

	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	outPath := s.files.BuildPath(fileType, "optimized_"+stem+".mp4")

	result, err := optimizer.OptimizeVideo(ctx, filePath, outPath, opts)
	if err != nil {
		log.Printf("Video optimization failed for %s: %v", filename, err)
		metadata["optimization_error"] = err.Error()
		return false, nil
	}
	if result.Copied {
		// The verbatim copy adds nothing over the original.
		s.files.RemoveFiles(outPath)
		metadata["optimization_warning"] = result.Warning
		return false, nil
	}

	metadata["optimization"] = result
	return true, &outPath
}

// imageOptions fills unset caller parameters from the configured preset:
// the web preset for forced web uploads, the general image defaults
// otherwise.
func (s *UploadService) imageOptions(params UploadParams) optimizer.ImageOptions {
	opts := params.Image

	if params.Mode == OptimizeWeb {
		if opts.Quality == 0 {
			opts.Quality = s.cfg.Web.Quality
		}
		if opts.MaxWidth == 0 {
			opts.MaxWidth = s.cfg.Web.MaxWidth
		}
		if opts.MaxHeight == 0 {
			opts.MaxHeight = s.cfg.Web.MaxHeight
		}
		return opts
	}

	if opts.Quality == 0 {
		opts.Quality = s.cfg.Image.Quality
	}
	if opts.MaxWidth == 0 {
		opts.MaxWidth = s.cfg.Image.MaxWidth
	}
	if opts.MaxHeight == 0 {
		opts.MaxHeight = s.cfg.Image.MaxHeight
	}
	if !opts.PreserveAlpha {
		opts.PreserveAlpha = s.cfg.Image.PreserveAlpha
	}
	return opts
}

// Delete removes the record's backing files best-effort and then the record
// itself. A stray filesystem error never leaves an orphaned record; a failed
// record delete may leave orphaned files, the record is authoritative.
func (s *UploadService) Delete(ctx context.Context, record *models.File) error {
	paths := []string{record.FilePath}
	if record.OptimizedPath != nil {
		paths = append(paths, *record.OptimizedPath)
	}
	s.files.RemoveFiles(paths...)

	if err := s.db.WithContext(ctx).Delete(record).Error; err != nil {
		return errors.InternalError("RECORD_DELETION_ERROR", fmt.Sprintf("Failed to delete file record: %v", err))
	}
	return nil
}

// resolveMimeType prefers the uploader's declared content type and falls
// back to sniffing the file's leading bytes.
func (s *UploadService) resolveMimeType(file *multipart.FileHeader) string {
	if declared := file.Header.Get("Content-Type"); declared != "" && declared != "application/octet-stream" {
		return declared
	}

	src, err := file.Open()
	if err != nil {
		return "application/octet-stream"
	}
	defer src.Close()

	detected, err := mimetype.DetectReader(src)
	if err != nil {
		return "application/octet-stream"
	}
	return detected.String()
}

func marshalMetadata(metadata map[string]interface{}) datatypes.JSON {
	if len(metadata) == 0 {
		return nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}
