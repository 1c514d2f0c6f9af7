package media

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

func ffmpegCommand(ctx context.Context, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...) // Constrain this to ffmpeg to permit security scanner to see that the command is safe.
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func ffprobeCommand(ctx context.Context, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// CheckFFmpeg reports whether the ffmpeg binary is available on PATH.
func CheckFFmpeg() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// probeDuration asks ffprobe for the container duration in seconds.
func probeDuration(ctx context.Context, path string) (float64, error) {
	out, err := ffprobeCommand(ctx, []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	})
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w out: %s", err, out)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing ffprobe duration %q: %w", strings.TrimSpace(out), err)
	}
	return seconds, nil
}

// ExtractAudio pulls the audio track of a video into an mp3 next to dstDir.
// Returns the path of the extracted file.
func ExtractAudio(ctx context.Context, videoPath, dstDir string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	dst := filepath.Join(dstDir, base+".mp3")
	out, err := ffmpegCommand(ctx, []string{
		"-y", "-i", videoPath,
		"-vn", "-acodec", "libmp3lame",
		dst,
	})
	if err != nil {
		return "", fmt.Errorf("extracting audio: %w out: %s", err, out)
	}
	return dst, nil
}

// cutChunk copies the [start, start+duration) span of src into dst without
// re-encoding. ffmpeg snaps the cut to the nearest frame boundary.
func cutChunk(ctx context.Context, src, dst string, startSec, durationSec float64) error {
	out, err := ffmpegCommand(ctx, []string{
		"-y",
		"-ss", strconv.FormatFloat(startSec, 'f', 3, 64),
		"-t", strconv.FormatFloat(durationSec, 'f', 3, 64),
		"-i", src,
		"-c", "copy",
		dst,
	})
	if err != nil {
		return fmt.Errorf("cutting %s at %.3fs: %w out: %s", filepath.Base(src), startSec, err, out)
	}
	return nil
}
