package render

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dco-creatives/internal/logging"
)

func newTestFFmpeg(audio bool) *FFmpeg {
	e := NewFFmpeg(time.Minute, logging.Nop())
	e.hasAudio = func(string) bool { return audio }
	return e
}

func TestArgsWithMusic(t *testing.T) {
	args := strings.Join(newTestFFmpeg(false).Args(EncodeJob{
		FramePattern: "/tmp/f/frame_%04d.png",
		Output:       "/tmp/out.mp4",
		FPS:          25,
		Duration:     15 * time.Second,
		Music:        "assets/audio/music.mp3",
	}), " ")

	assert.Contains(t, args, "-framerate 25 -i /tmp/f/frame_%04d.png")
	assert.Contains(t, args, "-i assets/audio/music.mp3")
	assert.Contains(t, args, "-c:v libx264")
	assert.Contains(t, args, "-pix_fmt yuv420p")
	assert.Contains(t, args, "-preset veryfast")
	assert.Contains(t, args, "-crf 23")
	assert.Contains(t, args, "-movflags +faststart")
	assert.Contains(t, args, "-t 15")
	assert.Contains(t, args, "-c:a aac")
	assert.Contains(t, args, "-b:a 128k")
	assert.Contains(t, args, "-y")
	assert.NotContains(t, args, "overlay")
	assert.NotContains(t, args, "stream_loop")
}

func TestArgsWithBackgroundVideo(t *testing.T) {
	job := EncodeJob{
		FramePattern:    "/tmp/f/frame_%04d.png",
		Output:          "/tmp/out.mp4",
		FPS:             25,
		Duration:        15 * time.Second,
		BackgroundVideo: "/tmp/videos/bg.mp4",
		Music:           "ignored.mp3",
	}

	silent := strings.Join(newTestFFmpeg(false).Args(job), " ")
	assert.Contains(t, silent, "-stream_loop -1 -i /tmp/videos/bg.mp4")
	assert.Contains(t, silent, "overlay")
	assert.NotContains(t, silent, "ignored.mp3")
	assert.NotContains(t, silent, "-c:a aac")
	assert.NotContains(t, silent, ":a")

	withAudio := strings.Join(newTestFFmpeg(true).Args(job), " ")
	assert.Regexp(t, `-map \d:a`, withAudio)
}

func TestTail(t *testing.T) {
	assert.Equal(t, "abc", tail("  abc \n", 10))
	assert.Equal(t, "cde", tail("abcde", 3))
}
