// Package convert transcodes media with ffmpeg.
package convert

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"media-job-service/internal/entity"
	"media-job-service/internal/executor"
)

const (
	FFmpegCommand  = "ffmpeg"
	FFprobeCommand = "ffprobe"

	VideoCodec   = "libx264"
	VideoPreset  = "medium"
	VideoCRF     = "23"
	AudioBitrate = "192k"

	ProgressPipeTarget = "pipe:2"
	ProgressTimePrefix = "out_time_us="

	stderrTail = 20
)

// Converter reads inputs from mediaDir (or a URL) and writes to outDir.
type Converter struct {
	mediaDir string
	outDir   string
	ffmpeg   string
	ffprobe  string
}

func New(mediaDir, outDir string) *Converter {
	return &Converter{
		mediaDir: mediaDir,
		outDir:   outDir,
		ffmpeg:   FFmpegCommand,
		ffprobe:  FFprobeCommand,
	}
}

func (c *Converter) Execute(ctx context.Context, job entity.Job, report func(executor.Event)) (executor.Result, error) {
	input, remote, err := c.resolveInput(job.SourceRef)
	if err != nil {
		return executor.Result{}, executor.Permanent(err)
	}

	report(executor.Event{Percent: 0, Note: "probing input"})

	total, err := c.mediaDuration(ctx, input)
	if err != nil {
		if ctx.Err() != nil {
			return executor.Result{}, ctx.Err()
		}
		if remote {
			return executor.Result{}, executor.Transient(err)
		}
		return executor.Result{}, executor.Permanent(err)
	}
	total = EffectiveDuration(total, job.Options.Trim)

	if err := os.MkdirAll(c.outDir, 0o755); err != nil {
		return executor.Result{}, executor.Transient(fmt.Errorf("create output dir: %w", err))
	}
	output := filepath.Join(c.outDir, OutputName(job))

	cmd := exec.CommandContext(ctx, c.ffmpeg, BuildArgs(input, output, job.Options)...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return executor.Result{}, executor.Transient(fmt.Errorf("stderr pipe: %w", err))
	}
	if err := cmd.Start(); err != nil {
		return executor.Result{}, executor.Permanent(fmt.Errorf("start ffmpeg: %w", err))
	}

	tail := monitorProgress(stderr, total, func(percent int) {
		report(executor.Event{Percent: percent, Note: "converting to " + job.Options.Format})
	})
	err = cmd.Wait()

	if ctx.Err() != nil {
		_ = os.Remove(output)
		return executor.Result{}, ctx.Err()
	}
	if err != nil {
		_ = os.Remove(output)
		return executor.Result{}, Classify(err, tail, remote)
	}
	return executor.Result{Output: output}, nil
}

// resolveInput maps a file id to a path inside mediaDir. URLs pass through.
func (c *Converter) resolveInput(ref string) (string, bool, error) {
	if strings.Contains(ref, "://") {
		return ref, true, nil
	}
	if ref != filepath.Base(ref) || ref == "." || ref == ".." {
		return "", false, fmt.Errorf("invalid file id %q", ref)
	}
	path := filepath.Join(c.mediaDir, ref)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("input file %s not found", ref)
		}
		return "", false, err
	}
	return path, false, nil
}

func (c *Converter) mediaDuration(ctx context.Context, input string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, c.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "csv=p=0",
		input,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	return ParseDuration(string(out))
}

// ParseDuration reads ffprobe's "123.456" seconds output. N/A (live input)
// yields zero, which disables percentage progress.
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "N/A" {
		return 0, nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", raw, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// EffectiveDuration is the length of the output after trimming.
func EffectiveDuration(total time.Duration, trim *entity.TrimRange) time.Duration {
	if trim == nil {
		return total
	}
	end := trim.End
	if end == 0 || (total > 0 && end > total) {
		end = total
	}
	if d := end - trim.Start; d > 0 {
		return d
	}
	return 0
}

func OutputName(job entity.Job) string {
	return job.ID.String() + "." + job.Options.Format
}

// BuildArgs builds the ffmpeg command line for one conversion.
func BuildArgs(input, output string, opts entity.Options) []string {
	args := []string{"-y"}
	if t := opts.Trim; t != nil && t.Start > 0 {
		args = append(args, "-ss", seconds(t.Start))
	}
	args = append(args, "-i", input)
	if t := opts.Trim; t != nil && t.End > 0 {
		args = append(args, "-t", seconds(t.End-t.Start))
	}

	bitrate := audioBitrate(opts.AudioQuality)
	switch opts.Format {
	case "mp3":
		args = append(args, "-vn", "-c:a", "libmp3lame", "-b:a", bitrate)
	case "m4a", "aac":
		args = append(args, "-vn", "-c:a", "aac", "-b:a", bitrate)
	case "opus":
		args = append(args, "-vn", "-c:a", "libopus", "-b:a", bitrate)
	case "wav":
		args = append(args, "-vn", "-c:a", "pcm_s16le")
	case "flac":
		args = append(args, "-vn", "-c:a", "flac")
	case "webm":
		args = append(args, "-c:v", "libvpx-vp9", "-crf", "32", "-b:v", "0", "-c:a", "libopus", "-b:a", bitrate)
	default:
		args = append(args, "-c:v", VideoCodec, "-preset", VideoPreset, "-crf", VideoCRF, "-c:a", "aac", "-b:a", bitrate)
		if opts.Format == "mp4" || opts.Format == "mov" {
			args = append(args, "-movflags", "+faststart")
		}
	}

	return append(args,
		"-progress", ProgressPipeTarget,
		"-nostats",
		output,
	)
}

func audioBitrate(q string) string {
	switch q {
	case "":
		return AudioBitrate
	case "best":
		return "320k"
	}
	return q
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// ParseProgressLine returns the output position from an out_time_us line.
func ParseProgressLine(line string) (time.Duration, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, ProgressTimePrefix) {
		return 0, false
	}
	us, err := strconv.ParseInt(strings.TrimPrefix(line, ProgressTimePrefix), 10, 64)
	if err != nil || us < 0 {
		return 0, false
	}
	return time.Duration(us) * time.Microsecond, true
}

// monitorProgress consumes ffmpeg stderr until EOF and returns the last
// non-progress lines for error reporting.
func monitorProgress(r io.Reader, total time.Duration, onPercent func(int)) []string {
	var tail []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if pos, ok := ParseProgressLine(line); ok {
			if total > 0 {
				p := int(float64(pos) / float64(total) * 100)
				if p > 100 {
					p = 100
				}
				onPercent(p)
			}
			continue
		}
		if strings.Contains(line, "=") && !strings.Contains(line, " ") {
			// other -progress key=value pairs
			continue
		}
		tail = append(tail, line)
		if len(tail) > stderrTail {
			tail = tail[1:]
		}
	}
	return tail
}

var permanentMarkers = []string{
	"no such file or directory",
	"invalid data found when processing input",
	"does not contain any stream",
	"unknown encoder",
	"invalid argument",
	"conversion failed",
	"server returned 404",
	"server returned 403",
}

var transientMarkers = []string{
	"connection refused",
	"connection reset",
	"connection timed out",
	"timed out",
	"server returned 5",
	"i/o error",
	"network is unreachable",
}

// Classify decides whether a failed ffmpeg run is worth retrying. Local
// inputs fail permanently unless the output disk had an I/O problem.
func Classify(err error, tail []string, remote bool) error {
	text := strings.ToLower(strings.Join(tail, "\n"))
	msg := err.Error()
	if len(tail) > 0 {
		msg = strings.TrimSpace(tail[len(tail)-1])
	}
	cause := errors.New(msg)

	for _, m := range transientMarkers {
		if strings.Contains(text, m) {
			return executor.Transient(cause)
		}
	}
	for _, m := range permanentMarkers {
		if strings.Contains(text, m) {
			return executor.Permanent(cause)
		}
	}
	if remote {
		return executor.Transient(cause)
	}
	return executor.Permanent(cause)
}
