package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"dco-creatives/internal/logging"
)

// ffmpegSem keeps a single ffmpeg process running at a time.
var ffmpegSem = make(chan struct{}, 1)

// EncodeJob turns a numbered PNG sequence into an H.264 clip.
type EncodeJob struct {
	FramePattern string
	Output       string
	FPS          int
	Duration     time.Duration
	// BackgroundVideo loops under the frames when set.
	BackgroundVideo string
	// Music is mixed in when there is no background video.
	Music string
}

type FFmpeg struct {
	timeout  time.Duration
	log      *logging.Logger
	hasAudio func(path string) bool
}

func NewFFmpeg(timeout time.Duration, log *logging.Logger) *FFmpeg {
	e := &FFmpeg{timeout: timeout, log: log}
	e.hasAudio = e.probeAudio
	return e
}

func (e *FFmpeg) probeAudio(path string) bool {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		e.log.Warnf("[FFMPEG] probe %s: %v", path, err)
		return false
	}
	return gjson.Get(out, `streams.#(codec_type=="audio")`).Exists()
}

// Args builds the ffmpeg command line for job.
func (e *FFmpeg) Args(job EncodeJob) []string {
	frames := ffmpeg.Input(job.FramePattern, ffmpeg.KwArgs{"framerate": job.FPS})
	out := ffmpeg.KwArgs{
		"c:v":      "libx264",
		"pix_fmt":  "yuv420p",
		"preset":   "veryfast",
		"crf":      23,
		"movflags": "+faststart",
		"t":        strconv.FormatFloat(job.Duration.Seconds(), 'f', -1, 64),
	}

	var streams []*ffmpeg.Stream
	if job.BackgroundVideo != "" {
		bg := ffmpeg.Input(job.BackgroundVideo, ffmpeg.KwArgs{"stream_loop": -1})
		streams = append(streams, bg.Overlay(frames, "", ffmpeg.KwArgs{"x": 0, "y": 0}))
		if e.hasAudio(job.BackgroundVideo) {
			streams = append(streams, bg.Audio())
		}
	} else {
		streams = append(streams, frames)
		if job.Music != "" {
			streams = append(streams, ffmpeg.Input(job.Music).Audio())
			out["c:a"] = "aac"
			out["b:a"] = "128k"
		}
	}
	return ffmpeg.Output(streams, job.Output, out).OverWriteOutput().GetArgs()
}

func (e *FFmpeg) Encode(ctx context.Context, job EncodeJob) error {
	args := e.Args(job)

	ffmpegSem <- struct{}{}
	defer func() { <-ffmpegSem }()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = &stderr

	e.log.Debugf("[FFMPEG] ffmpeg %s", strings.Join(args, " "))
	started := time.Now()
	if err := cmd.Run(); err != nil {
		msg := tail(stderr.String(), 2000)
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("ffmpeg %s: %w: %s", job.Output, err, msg)
	}
	if _, err := os.Stat(job.Output); err != nil {
		return fmt.Errorf("ffmpeg did not create %s: %w", job.Output, err)
	}
	e.log.Infof("[FFMPEG] encoded %s in %s", job.Output, time.Since(started).Round(time.Millisecond))
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
