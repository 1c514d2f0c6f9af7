package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"

	"github.com/mudler/recap/core/schema"
)

var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".aac":  true,
	".ogg":  true,
	".flac": true,
}

var videoExtensions = map[string]bool{
	".mp4": true,
	".avi": true,
	".mkv": true,
	".mov": true,
	".wmv": true,
	".flv": true,
}

// IsAudioFile reports whether path has a supported audio extension.
func IsAudioFile(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}

// IsVideoFile reports whether path has a supported video extension.
func IsVideoFile(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

// SupportedExtensions returns the accepted audio and video extensions,
// for user-facing error messages.
func SupportedExtensions() (audio, video []string) {
	for ext := range audioExtensions {
		audio = append(audio, ext)
	}
	for ext := range videoExtensions {
		video = append(video, ext)
	}
	return audio, video
}

// identifyFormat sniffs the container format from content, falling back to
// the file extension when the stream is not tagged.
func identifyFormat(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	defer f.Close()

	_, fileType, err := tag.Identify(f)
	if err == nil && fileType != tag.UnknownFileType {
		return strings.ToLower(string(fileType))
	}
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// wavDuration reads the duration straight from a PCM WAV header, avoiding
// the ffprobe round trip for the common recording format.
func wavDuration(path string) (time.Duration, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return 0, false
	}
	d, err := dec.Duration()
	if err != nil {
		return 0, false
	}
	return d, true
}

// Probe builds a MediaInput for path: size and modtime from the
// filesystem, format from content sniffing, duration from the WAV header
// when possible and ffprobe otherwise. Zero-duration or unsupported input
// fails with ErrInvalidInput.
func Probe(ctx context.Context, path string) (schema.MediaInput, error) {
	info, err := os.Stat(path)
	if err != nil {
		return schema.MediaInput{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !IsAudioFile(path) && !IsVideoFile(path) {
		return schema.MediaInput{}, fmt.Errorf("%w: unsupported format %q", ErrInvalidInput, filepath.Ext(path))
	}

	in := schema.MediaInput{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Format:  identifyFormat(path),
		IsVideo: IsVideoFile(path),
	}

	if d, ok := wavDuration(path); ok {
		in.Duration = d
	} else {
		seconds, err := probeDuration(ctx, path)
		if err != nil {
			return schema.MediaInput{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		in.Duration = time.Duration(seconds * float64(time.Second))
	}

	if in.Duration <= 0 {
		return schema.MediaInput{}, fmt.Errorf("%w: zero duration", ErrInvalidInput)
	}
	return in, nil
}
