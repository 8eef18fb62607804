package transcode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// FFmpegConfig configures the ffmpeg-backed engine.
type FFmpegConfig struct {
	// FFmpegPath is the ffmpeg binary. Empty means "ffmpeg" on PATH.
	FFmpegPath string

	// FFprobePath is the ffprobe binary. Empty means "ffprobe" on PATH.
	FFprobePath string

	// WorkDir is where normalized and cut files are written.
	// Empty means alongside the source file.
	WorkDir string
}

// FFmpeg implements Engine by shelling out to ffmpeg/ffprobe. Normalization
// re-encodes to pcm_s16le mono 16 kHz, the format the segmenter expects.
type FFmpeg struct {
	config FFmpegConfig
}

// NewFFmpeg creates an ffmpeg-backed engine.
func NewFFmpeg(config FFmpegConfig) *FFmpeg {
	if config.FFmpegPath == "" {
		config.FFmpegPath = "ffmpeg"
	}
	if config.FFprobePath == "" {
		config.FFprobePath = "ffprobe"
	}
	return &FFmpeg{config: config}
}

// Normalize converts the source into canonical analysis WAV.
func (f *FFmpeg) Normalize(ctx context.Context, path string) (string, error) {
	if err := checkReadable(path); err != nil {
		return "", err
	}

	out := f.outputPath(path, "_normalized", ".wav")
	args := normalizeArgs(path, out)

	cmd := exec.CommandContext(ctx, f.config.FFmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", classifyFFmpegError(err, stderr.String())
	}
	return out, nil
}

// normalizeArgs builds the ffmpeg argument list for canonical conversion.
func normalizeArgs(in, out string) []string {
	return []string{
		"-hide_banner", "-nostdin",
		"-i", in,
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", strconv.Itoa(16000),
		"-y", out,
	}
}

// probeOutput mirrors the subset of ffprobe's JSON document we read.
type probeOutput struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		SampleRate string `json:"sample_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe reports the source's sample rate and duration via ffprobe.
func (f *FFmpeg) Probe(ctx context.Context, path string) (Info, error) {
	if err := checkReadable(path); err != nil {
		return Info{}, err
	}

	cmd := exec.CommandContext(ctx, f.config.FFprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Info{}, classifyFFmpegError(err, stderr.String())
	}

	var probed probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &probed); err != nil {
		return Info{}, fmt.Errorf("%w: parsing ffprobe output: %v", ErrTranscodeFailure, err)
	}

	info := Info{}
	for _, stream := range probed.Streams {
		if stream.CodecType != "audio" {
			continue
		}
		info.SampleRate, _ = strconv.Atoi(stream.SampleRate)
		break
	}
	if info.SampleRate == 0 {
		return Info{}, fmt.Errorf("%w: no audio stream in %s", ErrUnsupportedFormat, path)
	}
	info.Duration, _ = strconv.ParseFloat(probed.Format.Duration, 64)
	return info, nil
}

// Cut re-encodes [start, end) seconds into a new file of the same container.
func (f *FFmpeg) Cut(ctx context.Context, path string, start, end float64) (string, error) {
	if err := checkReadable(path); err != nil {
		return "", err
	}

	out := f.outputPath(path, "_trimmed", filepath.Ext(path))
	args := cutArgs(path, out, start, end)

	cmd := exec.CommandContext(ctx, f.config.FFmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", classifyFFmpegError(err, stderr.String())
	}
	return out, nil
}

// cutArgs builds the ffmpeg argument list for a range cut. Seek and length
// are input options so ffmpeg decodes only the requested window.
func cutArgs(in, out string, start, end float64) []string {
	return []string{
		"-hide_banner", "-nostdin",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(end - start),
		"-i", in,
		"-y", out,
	}
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// outputPath places derived files in WorkDir (or next to the source) with a
// role suffix, so repeated runs overwrite their own artifacts.
func (f *FFmpeg) outputPath(src, suffix, ext string) string {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	dir := f.config.WorkDir
	if dir == "" {
		dir = filepath.Dir(src)
	}
	return filepath.Join(dir, base+suffix+ext)
}

func checkReadable(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	return nil
}

// classifyFFmpegError maps an ffmpeg/ffprobe failure onto the adapter
// taxonomy using the exit error and captured stderr.
func classifyFFmpegError(err error, stderr string) error {
	if execErr, ok := err.(*exec.Error); ok {
		// Binary missing or not executable.
		return fmt.Errorf("%w: %v", ErrIOFailure, execErr)
	}

	lowered := strings.ToLower(stderr)
	switch {
	case strings.Contains(lowered, "invalid data found"),
		strings.Contains(lowered, "unknown format"),
		strings.Contains(lowered, "decoder not found"),
		strings.Contains(lowered, "invalid argument"):
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, firstLine(stderr))
	case strings.Contains(lowered, "no such file"),
		strings.Contains(lowered, "permission denied"):
		return fmt.Errorf("%w: %s", ErrIOFailure, firstLine(stderr))
	}
	if stderr == "" {
		return fmt.Errorf("%w: %v", ErrTranscodeFailure, err)
	}
	return fmt.Errorf("%w: %s", ErrTranscodeFailure, firstLine(stderr))
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
