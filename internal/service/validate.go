package service

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"media-job-service/internal/entity"
)

const (
	DefaultQuality = "1080p"
	DefaultFormat  = "mp4"
)

var (
	Qualities      = []string{"best", "2160p", "1440p", "1080p", "720p", "480p", "360p"}
	Formats        = []string{"mp4", "webm", "mkv", "mov", "mp3", "m4a", "aac", "wav", "flac", "opus"}
	AudioFormats   = []string{"mp3", "m4a", "aac", "wav", "flac", "opus"}
	AudioQualities = []string{"best", "320k", "256k", "192k", "128k", "64k"}
)

var fileIDRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// IsAudioFormat reports whether the container carries audio only.
func IsAudioFormat(format string) bool {
	return oneOf(format, AudioFormats)
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return invalid(field, "malformed url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid(field, "url scheme must be http or https")
	}
	if u.Host == "" {
		return invalid(field, "url host is required")
	}
	return nil
}

func isURLish(raw string) bool {
	return strings.Contains(raw, "://")
}

// normalize validates a submit request and fills defaults.
func normalize(req SubmitRequest) (SubmitRequest, error) {
	req.SourceRef = strings.TrimSpace(req.SourceRef)
	opts := req.Options.Clone()
	opts.Quality = strings.ToLower(strings.TrimSpace(opts.Quality))
	opts.Format = strings.ToLower(strings.TrimSpace(opts.Format))
	opts.AudioQuality = strings.ToLower(strings.TrimSpace(opts.AudioQuality))

	switch req.Kind {
	case entity.KindDownload:
		if req.SourceRef == "" {
			return req, invalid("url", "is required")
		}
		if err := validateURL("url", req.SourceRef); err != nil {
			return req, err
		}
		if opts.Quality == "" {
			opts.Quality = DefaultQuality
		}
		if opts.Format == "" {
			opts.Format = DefaultFormat
		}
	case entity.KindConvert:
		if req.SourceRef == "" {
			return req, invalid("fileId", "is required")
		}
		if isURLish(req.SourceRef) {
			if err := validateURL("fileId", req.SourceRef); err != nil {
				return req, err
			}
		} else if !fileIDRe.MatchString(req.SourceRef) || req.SourceRef == "." || req.SourceRef == ".." {
			return req, invalid("fileId", "must be a url or a plain file identifier")
		}
		if opts.Format == "" {
			return req, invalid("targetFormat", "is required")
		}
	default:
		return req, invalid("kind", "unknown job kind %q", req.Kind)
	}

	if opts.Quality != "" && !oneOf(opts.Quality, Qualities) {
		return req, invalid("quality", "must be one of %s", strings.Join(Qualities, ", "))
	}
	if !oneOf(opts.Format, Formats) {
		return req, invalid("format", "must be one of %s", strings.Join(Formats, ", "))
	}
	if opts.AudioQuality != "" && !oneOf(opts.AudioQuality, AudioQualities) {
		return req, invalid("audioQuality", "must be one of %s", strings.Join(AudioQualities, ", "))
	}
	if t := opts.Trim; t != nil {
		if t.Start < 0 || t.End < 0 {
			return req, invalid("trim", "offsets must not be negative")
		}
		if t.End != 0 && t.End <= t.Start {
			return req, invalid("trim", "end must be after start")
		}
		if t.Start == 0 && t.End == 0 {
			opts.Trim = nil
		}
	}

	req.Options = opts
	return req, nil
}

// ParseOffset accepts "90", "1:30", "01:02:03" and "1m30s" style offsets.
func ParseOffset(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(raw); err == nil && strings.ContainsAny(raw, "hms") {
		return d, nil
	}

	parts := strings.Split(raw, ":")
	if len(parts) > 3 {
		return 0, invalid("trim", "bad offset %q", raw)
	}
	var total float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, invalid("trim", "bad offset %q", raw)
		}
		if (i < len(parts)-1 && v != float64(int(v))) || (i > 0 && v >= 60) {
			return 0, invalid("trim", "bad offset %q", raw)
		}
		total = total*60 + v
	}
	return time.Duration(total * float64(time.Second)), nil
}
