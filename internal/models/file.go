package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FileType is the coarse classification of a stored object, derived once
// from the declared MIME type at upload time.
type FileType string

const (
	FileTypeImage    FileType = "image"
	FileTypeVideo    FileType = "video"
	FileTypeDocument FileType = "document"
	FileTypeAudio    FileType = "audio"
	FileTypeOther    FileType = "other"
)

// FileTypes lists every classification, in the order their storage
// subdirectories are created at startup.
var FileTypes = []FileType{
	FileTypeImage,
	FileTypeVideo,
	FileTypeDocument,
	FileTypeAudio,
	FileTypeOther,
}

// documentMimeTypes is the exact-match allowlist for the document class.
var documentMimeTypes = map[string]struct{}{
	"application/pdf":    {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   {},
	"application/vnd.ms-excel": {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         {},
	"application/vnd.ms-powerpoint": {},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {},
	"text/plain":       {},
	"text/csv":         {},
	"application/json": {},
	"application/xml":  {},
}

// FileTypeFromMime classifies a MIME string. It is total: any input maps to
// a FileType, unknown types fall through to FileTypeOther.
func FileTypeFromMime(mimeType string) FileType {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))

	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return FileTypeImage
	case strings.HasPrefix(mimeType, "video/"):
		return FileTypeVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return FileTypeAudio
	}

	if _, ok := documentMimeTypes[mimeType]; ok {
		return FileTypeDocument
	}
	return FileTypeOther
}

// File represents a stored file record. FilePath always points at the
// original bytes; OptimizedPath is set only when an optimization pass
// produced a second artifact, in which case that artifact is authoritative.
type File struct {
	ID               uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Filename         string         `json:"filename" gorm:"not null;uniqueIndex"`
	OriginalFilename string         `json:"originalFilename" gorm:"not null"`
	FileType         FileType       `json:"fileType" gorm:"not null;index"`
	MimeType         string         `json:"mimeType" gorm:"not null"`
	FileSize         int64          `json:"fileSize" gorm:"not null"`
	FilePath         string         `json:"filePath" gorm:"not null"`
	IsOptimized      bool           `json:"isOptimized" gorm:"not null;default:false"`
	OptimizedPath    *string        `json:"optimizedPath,omitempty"`
	Metadata         datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt        time.Time      `json:"createdAt" gorm:"not null"`
	UpdatedAt        time.Time      `json:"updatedAt" gorm:"not null"`
}

// TableName keeps the table name stable regardless of gorm pluralization.
func (File) TableName() string {
	return "files"
}

// BeforeCreate generates the id application-side so records do not depend
// on a database-side uuid default.
func (f *File) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
