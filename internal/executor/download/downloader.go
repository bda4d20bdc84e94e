// Package download fetches remote media with yt-dlp.
package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"media-job-service/internal/entity"
	"media-job-service/internal/executor"
	"media-job-service/internal/service"
)

// Command is the binary go-ytdlp drives.
const Command = "yt-dlp"

const (
	progressInterval  = 500 * time.Millisecond
	sponsorCategories = "sponsor,selfpromo,interaction"
	outputTemplate    = "%(title)s.%(ext)s"
	maxStreamPercent  = 99
)

// Downloader runs each job into its own directory under dir.
type Downloader struct {
	dir string
}

func New(dir string) *Downloader {
	return &Downloader{dir: dir}
}

func (d *Downloader) Execute(ctx context.Context, job entity.Job, report func(executor.Event)) (executor.Result, error) {
	outDir := filepath.Join(d.dir, job.ID.String())
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return executor.Result{}, executor.Transient(fmt.Errorf("create output dir: %w", err))
	}

	report(executor.Event{Percent: 0, Note: "resolving media"})

	dl := newCommand(job.Options, outDir)
	streams := newStreamProgress(job.Options)
	dl.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
		note := "downloading"
		if update.Filename != "" {
			note = "downloading " + filepath.Base(update.Filename)
		}
		report(executor.Event{
			Percent: streams.percent(update.Filename, float64(update.DownloadedBytes), float64(update.TotalBytes)),
			Note:    note,
		})
	})

	res, err := dl.Run(ctx, job.SourceRef)
	if err != nil {
		_ = os.RemoveAll(outDir)
		if ctx.Err() != nil {
			return executor.Result{}, ctx.Err()
		}
		stderr := ""
		if res != nil {
			stderr = res.Stderr
		}
		return executor.Result{}, Classify(err, stderr)
	}

	output := ""
	if info, ierr := res.GetExtractedInfo(); ierr == nil && len(info) > 0 && info[0].Filename != nil {
		output = *info[0].Filename
	}
	output, err = resolveOutput(outDir, output, job.Options.Format)
	if err != nil {
		return executor.Result{}, executor.Permanent(err)
	}
	return executor.Result{Output: output}, nil
}

func newCommand(opts entity.Options, outDir string) *ytdlp.Command {
	dl := ytdlp.New().
		ForceOverwrites().
		RestrictFilenames().
		NoPlaylist().
		Output(filepath.Join(outDir, outputTemplate))

	if service.IsAudioFormat(opts.Format) {
		dl.Format("ba/b").
			ExtractAudio().
			AudioFormat(opts.Format).
			AudioQuality(AudioQualityArg(opts.AudioQuality))
	} else {
		dl.Format(FormatSelector(opts.Quality))
		if opts.Format != "" {
			dl.MergeOutputFormat(opts.Format)
		}
	}

	if opts.Subtitles {
		dl.WriteSubs().WriteAutoSubs()
	}
	if opts.Thumbnail {
		dl.EmbedThumbnail()
	}
	if opts.Metadata {
		dl.EmbedMetadata()
	}
	if opts.RemoveAds {
		dl.SponsorblockRemove(sponsorCategories)
	}
	if opts.Trim != nil {
		dl.DownloadSections(SectionSpec(*opts.Trim))
	}
	return dl
}

// FormatSelector maps a quality label to a yt-dlp format expression.
func FormatSelector(quality string) string {
	q := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(quality)), "p")
	if q == "" || q == "best" {
		return "bv*+ba/b"
	}
	if _, err := strconv.Atoi(q); err != nil {
		return "bv*+ba/b"
	}
	return fmt.Sprintf("bv*[height<=%[1]s]+ba/b[height<=%[1]s]", q)
}

// AudioQualityArg converts "320k" style labels to what --audio-quality takes.
func AudioQualityArg(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	switch q {
	case "", "best":
		return "0"
	}
	return strings.ToUpper(q)
}

// SectionSpec renders a trim range for --download-sections.
func SectionSpec(t entity.TrimRange) string {
	end := "inf"
	if t.End > 0 {
		end = seconds(t.End)
	}
	return "*" + seconds(t.Start) + "-" + end
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// streamProgress folds per-file progress into one job percentage. Video
// downloads fetch the video and audio streams separately, each gets an equal
// share. The total stays below 100 until yt-dlp has merged and exited.
type streamProgress struct {
	mu      sync.Mutex
	streams int
	files   []string
}

func newStreamProgress(opts entity.Options) *streamProgress {
	n := 2
	if service.IsAudioFormat(opts.Format) {
		n = 1
	}
	return &streamProgress{streams: n}
}

func (s *streamProgress) percent(filename string, done, total float64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.Index(s.files, filename)
	if idx < 0 {
		s.files = append(s.files, filename)
		idx = len(s.files) - 1
	}
	if idx >= s.streams {
		s.streams = idx + 1
	}

	p := (idx*100 + percentOf(done, total)) / s.streams
	if p > maxStreamPercent {
		return maxStreamPercent
	}
	return p
}

func percentOf(done, total float64) int {
	if total <= 0 || done <= 0 {
		return 0
	}
	p := int(done / total * 100)
	if p > 100 {
		return 100
	}
	return p
}

var permanentMarkers = []string{
	"unsupported url",
	"is not a valid url",
	"video unavailable",
	"private video",
	"this video has been removed",
	"requested format is not available",
	"sign in to confirm your age",
	"members-only",
	"http error 404",
	"no video formats found",
}

// Classify decides whether a failed yt-dlp run is worth retrying.
func Classify(err error, stderr string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	text := strings.ToLower(stderr + "\n" + err.Error())
	for _, m := range permanentMarkers {
		if strings.Contains(text, m) {
			return executor.Permanent(errors.New(lastErrorLine(stderr, err)))
		}
	}
	return executor.Transient(errors.New(lastErrorLine(stderr, err)))
}

// lastErrorLine picks the most useful line of yt-dlp output for the user.
func lastErrorLine(stderr string, err error) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		l := strings.TrimSpace(lines[i])
		if strings.HasPrefix(l, "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(l, "ERROR:"))
		}
	}
	return err.Error()
}

// resolveOutput returns the reported file when it exists, otherwise the
// newest finished file in dir.
func resolveOutput(dir, reported, format string) (string, error) {
	if reported != "" {
		if _, err := os.Stat(reported); err == nil {
			return reported, nil
		}
		if format != "" {
			alt := strings.TrimSuffix(reported, filepath.Ext(reported)) + "." + format
			if _, err := os.Stat(alt); err == nil {
				return alt, nil
			}
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read output dir: %w", err)
	}
	var (
		best    string
		bestMod time.Time
	)
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".part") || strings.HasSuffix(e.Name(), ".ytdl") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestMod) {
			best, bestMod = filepath.Join(dir, e.Name()), info.ModTime()
		}
	}
	if best == "" {
		return "", errors.New("download finished without an output file")
	}
	return best, nil
}
