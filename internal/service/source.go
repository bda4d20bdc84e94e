package service

import (
	"net/url"
	"regexp"
	"strings"

	"media-job-service/internal/entity"
)

var sources = []struct {
	name string
	re   *regexp.Regexp
}{
	{"youtube", regexp.MustCompile(`(^|\.)(youtube\.com|youtu\.be)$`)},
	{"tiktok", regexp.MustCompile(`(^|\.)(tiktok\.com)$`)},
	{"instagram", regexp.MustCompile(`(^|\.)(instagram\.com)$`)},
	{"facebook", regexp.MustCompile(`(^|\.)(facebook\.com|fb\.watch)$`)},
	{"twitter", regexp.MustCompile(`(^|\.)(twitter\.com|x\.com)$`)},
	{"vimeo", regexp.MustCompile(`(^|\.)(vimeo\.com)$`)},
	{"dailymotion", regexp.MustCompile(`(^|\.)(dailymotion\.com)$`)},
	{"twitch", regexp.MustCompile(`(^|\.)(twitch\.tv)$`)},
	{"soundcloud", regexp.MustCompile(`(^|\.)(soundcloud\.com)$`)},
}

// DetectSource names the site a URL belongs to, "generic" for unknown hosts
// and "file" for local identifiers.
func DetectSource(ref string) string {
	if !isURLish(ref) {
		return "file"
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "generic"
	}
	host := strings.ToLower(u.Hostname())
	for _, s := range sources {
		if s.re.MatchString(host) {
			return s.name
		}
	}
	return "generic"
}

// TitleFromSource gives a display title before the executor knows the real one.
func TitleFromSource(kind entity.JobKind, ref string) string {
	if !isURLish(ref) {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil || u.Hostname() == "" {
		return "Downloaded video"
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if kind == entity.KindConvert {
		return host + " file"
	}
	return host + " video"
}

// SiteCatalogue is the static list of supported site families shown to users.
type SiteCatalogue struct {
	Total      int                 `json:"total"`
	Categories map[string][]string `json:"categories"`
}

var Sites = SiteCatalogue{
	Total: 1100,
	Categories: map[string][]string{
		"video":       {"YouTube", "TikTok", "Instagram", "Twitter/X", "Facebook"},
		"music":       {"Spotify", "SoundCloud", "Apple Music", "Bandcamp"},
		"streaming":   {"Twitch", "Kick", "DLive"},
		"educational": {"Coursera", "Udemy", "Khan Academy"},
		"social":      {"Reddit", "Pinterest", "Tumblr"},
	},
}
