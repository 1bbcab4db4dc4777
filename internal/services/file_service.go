package services

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"

	"object-storage-api/internal/config"
	"object-storage-api/internal/models"

	"github.com/google/uuid"
	"github.com/kerimovok/go-pkg-utils/errors"
)

// FileService handles on-disk file operations: naming, layout and writes.
type FileService struct {
	uploadDir string
}

// NewFileService creates a new file service instance
func NewFileService() *FileService {
	return &FileService{
		uploadDir: config.UploadDir(),
	}
}

// NewFileServiceAt creates a file service rooted at an explicit directory.
func NewFileServiceAt(uploadDir string) *FileService {
	return &FileService{uploadDir: uploadDir}
}

// UploadDir returns the storage root.
func (s *FileService) UploadDir() string {
	return s.uploadDir
}

// UniqueFilename replaces the stem of the original name with a freshly
// generated uuid while preserving the extension. Files without an extension
// stay extension-less.
func (s *FileService) UniqueFilename(originalName string) string {
	ext := filepath.Ext(originalName)
	return uuid.NewString() + ext
}

// BuildPath derives the storage path for a file of the given type.
func (s *FileService) BuildPath(fileType models.FileType, filename string) string {
	return filepath.Join(s.uploadDir, string(fileType), filename)
}

// EnsureDir creates a directory if it is missing. Safe under concurrent
// callers: "already exists" is not an error.
func (s *FileService) EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.InternalError("DIR_CREATION_ERROR", fmt.Sprintf("Failed to create directory: %v", err))
	}
	return nil
}

// EnsureBaseDirs creates the storage root and one subdirectory per file
// type. Called at startup; idempotent.
func (s *FileService) EnsureBaseDirs() error {
	for _, fileType := range models.FileTypes {
		if err := s.EnsureDir(filepath.Join(s.uploadDir, string(fileType))); err != nil {
			return err
		}
	}
	return nil
}

// SaveFile writes the uploaded file to filePath. The bytes land in a
// temporary file in the same directory and are renamed into place, so a
// partial write is never visible at the final path.
func (s *FileService) SaveFile(file *multipart.FileHeader, filePath string) error {
	if err := s.EnsureDir(filepath.Dir(filePath)); err != nil {
		return err
	}

	src, err := file.Open()
	if err != nil {
		return errors.InternalError("FILE_OPEN_ERROR", fmt.Sprintf("Failed to open source file: %v", err))
	}
	defer src.Close()

	tmpPath := filePath + ".part"
	dst, err := os.Create(tmpPath)
	if err != nil {
		return errors.InternalError("FILE_CREATION_ERROR", fmt.Sprintf("Failed to create destination file: %v", err))
	}

	if _, err = io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return errors.InternalError("FILE_COPY_ERROR", fmt.Sprintf("Failed to copy file content: %v", err))
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.InternalError("FILE_CLOSE_ERROR", fmt.Sprintf("Failed to finalize file: %v", err))
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		os.Remove(tmpPath)
		return errors.InternalError("FILE_RENAME_ERROR", fmt.Sprintf("Failed to move file into place: %v", err))
	}

	return nil
}

// RemoveFiles deletes the given paths best-effort. Missing files are fine;
// other failures are logged and swallowed so cleanup never blocks the
// dominant operation.
func (s *FileService) RemoveFiles(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: Failed to delete file %s: %v", path, err)
		}
	}
}
