package services

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"object-storage-api/internal/config"
	"object-storage-api/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.File{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func testOptimizationConfig(ffmpegPath string) config.OptimizationConfig {
	return config.OptimizationConfig{
		Image: config.ImageConfig{Quality: 85, MaxWidth: 1920, MaxHeight: 1080},
		Web:   config.WebImageConfig{Quality: 80, MaxWidth: 1200, MaxHeight: 800},
		Video: config.VideoConfig{
			MaxWidth:          1280,
			MaxHeight:         720,
			Quality:           "medium",
			FFmpegPath:        ffmpegPath,
			FFprobePath:       ffmpegPath + "-probe",
			VersionTimeoutSec: 1,
		},
	}
}

func newTestUploadService(t *testing.T) (*UploadService, *gorm.DB, string) {
	t.Helper()

	db := testDB(t)
	root := t.TempDir()
	files := NewFileServiceAt(root)
	svc := NewUploadService(db, files, testOptimizationConfig(filepath.Join(root, "no-such-ffmpeg")), 10*1024*1024)
	return svc, db, root
}

func makeJPEGBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 100, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	return buf.Bytes()
}

func countFilesUnder(t *testing.T, root string) int {
	t.Helper()

	count := 0
	err := filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			count++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	return count
}

func recordMetadata(t *testing.T, record *models.File) map[string]interface{} {
	t.Helper()

	if record.Metadata == nil {
		return nil
	}
	var metadata map[string]interface{}
	if err := json.Unmarshal(record.Metadata, &metadata); err != nil {
		t.Fatalf("unmarshal metadata: %v", err)
	}
	return metadata
}

func TestUpload_StoresFileAndRecord(t *testing.T) {
	svc, db, _ := newTestUploadService(t)

	content := []byte("plain document content")
	fh := makeFileHeader(t, "report.txt", "text/plain", content)

	record, err := svc.Upload(context.Background(), fh, UploadParams{Mode: OptimizeNone})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if record.FileType != models.FileTypeDocument {
		t.Errorf("file type %q, want document", record.FileType)
	}
	if record.OriginalFilename != "report.txt" {
		t.Errorf("original filename %q", record.OriginalFilename)
	}
	if record.FileSize != int64(len(content)) {
		t.Errorf("file size %d, want %d", record.FileSize, len(content))
	}
	if record.IsOptimized {
		t.Error("unoptimized upload flagged optimized")
	}

	stored, err := os.ReadFile(record.FilePath)
	if err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if !bytes.Equal(stored, content) {
		t.Error("stored bytes differ from upload")
	}

	var count int64
	if err := db.Model(&models.File{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("record count %d, want 1", count)
	}
}

func TestUpload_OversizedRejectedBeforeAnyWrite(t *testing.T) {
	db := testDB(t)
	root := t.TempDir()
	files := NewFileServiceAt(root)
	svc := NewUploadService(db, files, testOptimizationConfig("ffmpeg"), 16)

	fh := makeFileHeader(t, "big.bin", "application/octet-stream", bytes.Repeat([]byte("x"), 64))

	if _, err := svc.Upload(context.Background(), fh, UploadParams{Mode: OptimizeNone}); err == nil {
		t.Fatal("expected oversize rejection")
	}

	if n := countFilesUnder(t, root); n != 0 {
		t.Errorf("%d files written despite rejection", n)
	}
	var count int64
	if err := db.Model(&models.File{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("record count %d, want 0", count)
	}
}

func TestUpload_AutoOptimizesImage(t *testing.T) {
	svc, _, _ := newTestUploadService(t)

	fh := makeFileHeader(t, "photo.jpg", "image/jpeg", makeJPEGBytes(t, 2400, 1600))

	record, err := svc.Upload(context.Background(), fh, UploadParams{Mode: OptimizeAuto})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if !record.IsOptimized {
		t.Fatal("expected optimized upload")
	}
	if record.OptimizedPath == nil {
		t.Fatal("optimized record without optimized path")
	}

	info, err := os.Stat(*record.OptimizedPath)
	if err != nil {
		t.Fatalf("optimized artifact missing: %v", err)
	}
	if record.FileSize != info.Size() {
		t.Errorf("file size %d, want authoritative optimized size %d", record.FileSize, info.Size())
	}

	// The original stays on disk alongside the optimized artifact.
	if _, err := os.Stat(record.FilePath); err != nil {
		t.Errorf("original artifact missing: %v", err)
	}

	metadata := recordMetadata(t, record)
	if metadata["optimization"] == nil {
		t.Error("optimization metrics not recorded")
	}
	if metadata["image_info"] == nil {
		t.Error("image info not recorded")
	}
}

func TestUpload_WebModeRespectsBoundingBox(t *testing.T) {
	svc, _, _ := newTestUploadService(t)

	fh := makeFileHeader(t, "banner.jpg", "image/jpeg", makeJPEGBytes(t, 2400, 1600))

	record, err := svc.Upload(context.Background(), fh, UploadParams{Mode: OptimizeWeb})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !record.IsOptimized {
		t.Fatal("expected optimized upload")
	}

	metadata := recordMetadata(t, record)
	optimization, ok := metadata["optimization"].(map[string]interface{})
	if !ok {
		t.Fatalf("optimization metrics missing: %v", metadata)
	}
	if w := optimization["width"].(float64); w > 1200 {
		t.Errorf("web preset width %v exceeds 1200", w)
	}
	if h := optimization["height"].(float64); h > 800 {
		t.Errorf("web preset height %v exceeds 800", h)
	}
	if ratio := optimization["compression_ratio"].(float64); ratio <= 0 || ratio >= 100 {
		t.Errorf("compression ratio %v outside (0, 100)", ratio)
	}
}

func TestUpload_CorruptImageFallsBackToOriginal(t *testing.T) {
	svc, _, _ := newTestUploadService(t)

	content := []byte("not actually a jpeg")
	fh := makeFileHeader(t, "fake.jpg", "image/jpeg", content)

	record, err := svc.Upload(context.Background(), fh, UploadParams{Mode: OptimizeAuto})
	if err != nil {
		t.Fatalf("Upload should not fail on optimization errors: %v", err)
	}

	if record.IsOptimized {
		t.Error("corrupt image flagged optimized")
	}
	if record.OptimizedPath != nil {
		t.Error("optimized path set for failed optimization")
	}
	if record.FileSize != int64(len(content)) {
		t.Errorf("file size %d, want original %d", record.FileSize, len(content))
	}

	metadata := recordMetadata(t, record)
	if metadata["optimization_error"] == nil {
		t.Error("optimization error not recorded")
	}
}

func TestUpload_VideoTranscoderUnavailable(t *testing.T) {
	svc, _, root := newTestUploadService(t)

	content := []byte("not really an mp4 but good enough")
	fh := makeFileHeader(t, "clip.mp4", "video/mp4", content)

	record, err := svc.Upload(context.Background(), fh, UploadParams{Mode: OptimizeAuto})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if record.IsOptimized {
		t.Error("record flagged optimized with transcoder unavailable")
	}
	if record.FileSize != int64(len(content)) {
		t.Errorf("file size %d, want original %d", record.FileSize, len(content))
	}

	metadata := recordMetadata(t, record)
	if metadata["optimization_warning"] == nil {
		t.Error("transcoder-unavailable warning not recorded")
	}

	// Only the original remains, the redundant verbatim copy is cleaned up.
	if n := countFilesUnder(t, root); n != 1 {
		t.Errorf("%d files on disk, want only the original", n)
	}
}

func TestUpload_RollbackOnRecordCreationFailure(t *testing.T) {
	svc, db, root := newTestUploadService(t)

	// Force the record insert to fail after the bytes are written.
	if err := db.Migrator().DropTable(&models.File{}); err != nil {
		t.Fatal(err)
	}

	fh := makeFileHeader(t, "doomed.txt", "text/plain", []byte("payload"))

	if _, err := svc.Upload(context.Background(), fh, UploadParams{Mode: OptimizeNone}); err == nil {
		t.Fatal("expected record creation failure")
	}

	if n := countFilesUnder(t, root); n != 0 {
		t.Errorf("%d files left behind after rollback", n)
	}
}

func TestDelete_RemovesRecordAndFiles(t *testing.T) {
	svc, db, _ := newTestUploadService(t)

	fh := makeFileHeader(t, "photo.jpg", "image/jpeg", makeJPEGBytes(t, 2000, 1400))
	record, err := svc.Upload(context.Background(), fh, UploadParams{Mode: OptimizeAuto})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if err := svc.Delete(context.Background(), record); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := os.Stat(record.FilePath); !os.IsNotExist(err) {
		t.Error("original file still on disk after delete")
	}
	if record.OptimizedPath != nil {
		if _, err := os.Stat(*record.OptimizedPath); !os.IsNotExist(err) {
			t.Error("optimized file still on disk after delete")
		}
	}

	var count int64
	if err := db.Model(&models.File{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("record count %d after delete, want 0", count)
	}
}

func TestDelete_FileRemovalFailureStillDeletesRecord(t *testing.T) {
	svc, db, _ := newTestUploadService(t)

	fh := makeFileHeader(t, "doc.txt", "text/plain", []byte("content"))
	record, err := svc.Upload(context.Background(), fh, UploadParams{Mode: OptimizeNone})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	// Remove the backing file out from under the record; delete must not
	// leave the record orphaned.
	if err := os.Remove(record.FilePath); err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(context.Background(), record); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	var count int64
	if err := db.Model(&models.File{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("record count %d after delete, want 0", count)
	}
}
