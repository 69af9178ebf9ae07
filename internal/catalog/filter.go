package catalog

import (
	"regexp"
	"strings"
	"time"
)

// Reasonable song duration range. Candidates outside it are treated as
// compilations, loops or other non-song uploads.
const (
	minSongDuration = 90 * time.Second
	maxSongDuration = 8 * time.Minute
)

// Titles matching any of these are likely not songs.
var nonSongPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\binterview\b`),
	regexp.MustCompile(`(?i)\bpodcast\b`),
	regexp.MustCompile(`(?i)\breaction\b`),
	regexp.MustCompile(`(?i)\breview\b`),
	regexp.MustCompile(`(?i)\bfull album\b`),
	regexp.MustCompile(`(?i)\bcomplete album\b`),
	regexp.MustCompile(`(?i)\blive ?stream\b`),
	regexp.MustCompile(`(?i)\bmaking of\b`),
	regexp.MustCompile(`(?i)\bbehind the scenes\b`),
	regexp.MustCompile(`(?i)\bdocumentary\b`),
	regexp.MustCompile(`(?i)\btutorial\b`),
	regexp.MustCompile(`(?i)\blesson\b`),
	regexp.MustCompile(`(?i)\bhow to\b`),
	regexp.MustCompile(`(?i)\bcompilation\b`),
	regexp.MustCompile(`(?i)\bmix 20\d\d\b`),
	regexp.MustCompile(`(?i)\b[123] hour\b`),
	regexp.MustCompile(`(?i)\bplaylist\b`),
	regexp.MustCompile(`(?i)\bnonstop\b`),
	regexp.MustCompile(`(?i)\bmegamix\b`),
}

// Noise commonly appended to upload titles, stripped before comparing.
var titleNoisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)[\(\[]official\s*(music\s*)?video[\)\]]`),
	regexp.MustCompile(`(?i)[\(\[]official\s*audio[\)\]]`),
	regexp.MustCompile(`(?i)[\(\[]official\s*lyric\s*video[\)\]]`),
	regexp.MustCompile(`(?i)[\(\[]lyric\s*video[\)\]]`),
	regexp.MustCompile(`(?i)[\(\[]lyrics?[\)\]]`),
	regexp.MustCompile(`(?i)[\(\[]audio[\)\]]`),
	regexp.MustCompile(`(?i)[\(\[](official\s*)?visualizer[\)\]]`),
	regexp.MustCompile(`(?i)[\(\[](hd|hq|4k)[\)\]]`),
	regexp.MustCompile(`(?i)[\(\[]remaster(ed)?[\)\]]`),
	regexp.MustCompile(`(?i)[\(\[](live|acoustic)[\)\]]`),
	regexp.MustCompile(`(?i)official\s*(music\s*)?video`),
	regexp.MustCompile(`\|.*$`),
	regexp.MustCompile(`(?i)-\s*topic$`),
}

var spaceRun = regexp.MustCompile(`\s+`)

// likelySong reports whether a candidate looks like an actual song rather
// than an interview, compilation or similar. Zero duration means unknown
// and is not held against the candidate.
func likelySong(title string, duration time.Duration) bool {
	for _, p := range nonSongPatterns {
		if p.MatchString(title) {
			return false
		}
	}
	if duration > 0 && (duration < minSongDuration || duration > maxSongDuration) {
		return false
	}
	return true
}

// normalizeTitle strips common upload noise for loose title comparison.
func normalizeTitle(title string) string {
	n := strings.ToLower(strings.TrimSpace(title))
	for _, p := range titleNoisePatterns {
		n = p.ReplaceAllString(n, "")
	}
	return strings.TrimSpace(spaceRun.ReplaceAllString(n, " "))
}
