package optimizer

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"object-storage-api/internal/utils"

	"github.com/disintegration/imaging"

	// webp uploads must decode like the other raster formats; imaging
	// registers jpeg/png/gif/bmp/tiff itself.
	_ "golang.org/x/image/webp"
)

// optimizableImageMimeTypes lists the raster formats the image pipeline can
// re-encode. SVG and other vector/animated types are deliberately absent.
var optimizableImageMimeTypes = []string{
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/bmp",
	"image/tiff",
	"image/webp",
}

// IsOptimizableImage reports whether the image pipeline can process the
// given MIME type.
func IsOptimizableImage(mimeType string) bool {
	return utils.IsValidMimeType(mimeType, optimizableImageMimeTypes)
}

// Error is a typed optimization failure. Callers treat it as non-fatal and
// decide the fallback themselves.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("optimization %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ImageOptions controls a single image optimization pass.
type ImageOptions struct {
	Quality       int // JPEG quality, 1..100
	MaxWidth      int
	MaxHeight     int
	PreserveAlpha bool
}

// ImageResult reports the before/after metrics of an optimization pass.
type ImageResult struct {
	OriginalWidth    int     `json:"original_width"`
	OriginalHeight   int     `json:"original_height"`
	Width            int     `json:"width"`
	Height           int     `json:"height"`
	OriginalSize     int64   `json:"original_size"`
	OptimizedSize    int64   `json:"optimized_size"`
	CompressionRatio float64 `json:"compression_ratio"`
	Quality          int     `json:"quality"`
	Format           string  `json:"format"`
}

// ImageInfo describes a stored image without transforming it.
type ImageInfo struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Format   string `json:"format"`
	HasAlpha bool   `json:"has_alpha"`
}

// OptimizeImage decodes the image at inputPath, flattens or preserves the
// alpha channel, downscales it into the MaxWidth x MaxHeight bounding box
// (never upscales) and re-encodes it to outputPath: lossless PNG when alpha
// is preserved, size-optimized JPEG at opts.Quality otherwise. Orientation
// metadata is applied during decode so the output needs no viewer-side
// rotation.
func OptimizeImage(inputPath, outputPath string, opts ImageOptions) (*ImageResult, error) {
	if opts.Quality < 1 || opts.Quality > 100 {
		return nil, &Error{Op: "validate", Err: fmt.Errorf("quality %d outside [1,100]", opts.Quality)}
	}
	if opts.MaxWidth < 1 || opts.MaxHeight < 1 {
		return nil, &Error{Op: "validate", Err: fmt.Errorf("bounding box %dx%d invalid", opts.MaxWidth, opts.MaxHeight)}
	}

	img, err := imaging.Open(inputPath, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &Error{Op: "decode", Err: err}
	}

	bounds := img.Bounds()
	originalWidth, originalHeight := bounds.Dx(), bounds.Dy()

	alpha := hasAlpha(img)
	keepAlpha := alpha && opts.PreserveAlpha
	if alpha && !opts.PreserveAlpha {
		// Flatten onto an opaque white background using the alpha
		// channel as the mask.
		background := imaging.New(originalWidth, originalHeight, color.White)
		img = imaging.Overlay(background, img, image.Pt(0, 0), 1.0)
	}

	// Fit only downscales; smaller inputs pass through untouched.
	if originalWidth > opts.MaxWidth || originalHeight > opts.MaxHeight {
		img = imaging.Fit(img, opts.MaxWidth, opts.MaxHeight, imaging.Lanczos)
	}
	resized := img.Bounds()

	out, err := os.Create(outputPath)
	if err != nil {
		return nil, &Error{Op: "create", Err: err}
	}

	format := "jpeg"
	if keepAlpha {
		format = "png"
		err = imaging.Encode(out, img, imaging.PNG, imaging.PNGCompressionLevel(png.DefaultCompression))
	} else {
		err = imaging.Encode(out, img, imaging.JPEG, imaging.JPEGQuality(opts.Quality))
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(outputPath)
		return nil, &Error{Op: "encode", Err: err}
	}

	originalSize, err := fileSize(inputPath)
	if err != nil {
		return nil, &Error{Op: "stat", Err: err}
	}
	optimizedSize, err := fileSize(outputPath)
	if err != nil {
		return nil, &Error{Op: "stat", Err: err}
	}

	ratio := 0.0
	if originalSize > 0 {
		ratio = (1 - float64(optimizedSize)/float64(originalSize)) * 100
	}

	return &ImageResult{
		OriginalWidth:    originalWidth,
		OriginalHeight:   originalHeight,
		Width:            resized.Dx(),
		Height:           resized.Dy(),
		OriginalSize:     originalSize,
		OptimizedSize:    optimizedSize,
		CompressionRatio: ratio,
		Quality:          opts.Quality,
		Format:           format,
	}, nil
}

// GetImageInfo reads image dimensions and format without a full decode.
func GetImageInfo(path string) (*ImageInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, err
	}

	return &ImageInfo{
		Width:    cfg.Width,
		Height:   cfg.Height,
		Format:   format,
		HasAlpha: colorModelHasAlpha(cfg.ColorModel),
	}, nil
}

func hasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return colorModelHasAlpha(img.ColorModel())
}

func colorModelHasAlpha(model color.Model) bool {
	switch model {
	case color.NRGBAModel, color.NRGBA64Model, color.RGBAModel, color.RGBA64Model, color.AlphaModel, color.Alpha16Model:
		return true
	}
	return false
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
