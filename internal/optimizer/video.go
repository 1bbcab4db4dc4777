package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strconv"
	"time"

	"object-storage-api/internal/utils"
)

// IsOptimizableVideo reports whether the video pipeline can process the
// given MIME type.
func IsOptimizableVideo(mimeType string) bool {
	return utils.MatchesMimeType(mimeType, "video/*")
}

// VideoOptions controls a single video optimization pass.
type VideoOptions struct {
	MaxWidth  int
	MaxHeight int
	// Quality is a tier name: high, medium or low. Unknown tiers encode
	// as medium.
	Quality string

	FFmpegPath  string
	FFprobePath string

	VersionTimeout time.Duration
	ProbeTimeout   time.Duration
	EncodeTimeout  time.Duration
}

func (o VideoOptions) withDefaults() VideoOptions {
	if o.MaxWidth <= 0 {
		o.MaxWidth = 1280
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = 720
	}
	if o.FFmpegPath == "" {
		o.FFmpegPath = "ffmpeg"
	}
	if o.FFprobePath == "" {
		o.FFprobePath = "ffprobe"
	}
	if o.VersionTimeout <= 0 {
		o.VersionTimeout = 5 * time.Second
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = 10 * time.Second
	}
	if o.EncodeTimeout <= 0 {
		o.EncodeTimeout = 300 * time.Second
	}
	return o
}

// VideoResult reports the outcome of a video optimization pass. Copied is
// set when the transcoder was unavailable and the input was copied verbatim
// instead; Warning carries the non-fatal reason.
type VideoResult struct {
	Copied  bool   `json:"copied"`
	Warning string `json:"warning,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	CRF     int    `json:"crf,omitempty"`
}

// VideoInfo is the subset of ffprobe output the scaler needs.
type VideoInfo struct {
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Duration float64 `json:"duration"`
	Codec    string  `json:"codec"`
	Bitrate  int64   `json:"bitrate"`
}

// OptimizeVideo transcodes the video at inputPath into a web-ready MP4 at
// outputPath: aspect-preserving downscale into the bounding box (clamped to
// even dimensions for the encoder), CRF mapped from the quality tier, AAC
// audio, fast-start metadata. When ffmpeg is unavailable the input is copied
// byte-for-byte and the result carries a warning instead of an error.
// Transcode failures and timeouts return a typed error; the caller keeps the
// original.
func OptimizeVideo(ctx context.Context, inputPath, outputPath string, opts VideoOptions) (*VideoResult, error) {
	opts = opts.withDefaults()

	if !ffmpegAvailable(ctx, opts) {
		if err := copyFile(inputPath, outputPath); err != nil {
			return nil, &Error{Op: "copy", Err: err}
		}
		return &VideoResult{
			Copied:  true,
			Warning: "optimization skipped, transcoder unavailable",
		}, nil
	}

	args := []string{"-i", inputPath, "-y", "-c:v", "libx264"}

	crf := crfForQuality(opts.Quality)
	args = append(args, "-crf", strconv.Itoa(crf))

	width, height := 0, 0
	if info, err := ProbeVideo(ctx, inputPath, opts); err == nil && info.Width > 0 && info.Height > 0 {
		width, height = targetDimensions(info.Width, info.Height, opts.MaxWidth, opts.MaxHeight)
		if width != info.Width || height != info.Height {
			args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", width, height))
		}
	}

	args = append(args,
		"-c:a", "aac",
		"-b:a", "128k",
		"-preset", "medium",
		"-movflags", "+faststart",
		"-f", "mp4",
		outputPath,
	)

	encodeCtx, cancel := context.WithTimeout(ctx, opts.EncodeTimeout)
	defer cancel()

	cmd := exec.CommandContext(encodeCtx, opts.FFmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(outputPath)
		if encodeCtx.Err() == context.DeadlineExceeded {
			return nil, &Error{Op: "transcode", Err: fmt.Errorf("timed out after %s", opts.EncodeTimeout)}
		}
		return nil, &Error{Op: "transcode", Err: fmt.Errorf("%v: %s", err, stderr.String())}
	}

	return &VideoResult{Width: width, Height: height, CRF: crf}, nil
}

// ProbeVideo extracts stream metadata via ffprobe.
func ProbeVideo(ctx context.Context, inputPath string, opts VideoOptions) (*VideoInfo, error) {
	opts = opts.withDefaults()

	probeCtx, cancel := context.WithTimeout(ctx, opts.ProbeTimeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, opts.FFprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, &Error{Op: "probe", Err: err}
	}

	var payload struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
			CodecName string `json:"codec_name"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
			BitRate  string `json:"bit_rate"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, &Error{Op: "probe", Err: err}
	}

	for _, stream := range payload.Streams {
		if stream.CodecType != "video" {
			continue
		}
		duration, _ := strconv.ParseFloat(payload.Format.Duration, 64)
		bitrate, _ := strconv.ParseInt(payload.Format.BitRate, 10, 64)
		return &VideoInfo{
			Width:    stream.Width,
			Height:   stream.Height,
			Duration: duration,
			Codec:    stream.CodecName,
			Bitrate:  bitrate,
		}, nil
	}

	return nil, &Error{Op: "probe", Err: fmt.Errorf("no video stream found")}
}

// ffmpegAvailable runs a short version probe against the transcoder binary.
func ffmpegAvailable(ctx context.Context, opts VideoOptions) bool {
	versionCtx, cancel := context.WithTimeout(ctx, opts.VersionTimeout)
	defer cancel()

	return exec.CommandContext(versionCtx, opts.FFmpegPath, "-version").Run() == nil
}

// crfForQuality maps a quality tier to a constant-rate-factor value.
func crfForQuality(quality string) int {
	switch quality {
	case "high":
		return 18
	case "low":
		return 28
	default:
		return 23
	}
}

// targetDimensions downscales into the bounding box preserving aspect ratio,
// clamped to even values because the encoder rejects odd dimensions. Inputs
// already inside the box are returned unchanged.
func targetDimensions(width, height, maxWidth, maxHeight int) (int, int) {
	scale := minFloat(float64(maxWidth)/float64(width), float64(maxHeight)/float64(height))
	if scale >= 1 {
		return width, height
	}

	newWidth := int(math.Round(float64(width) * scale))
	newHeight := int(math.Round(float64(height) * scale))
	if newWidth%2 != 0 {
		newWidth--
	}
	if newHeight%2 != 0 {
		newHeight--
	}
	return newWidth, newHeight
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
