package processor

import (
	"fmt"
	"regexp"
	"strings"
)

var youtubePatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/watch\?(?:.*&)?v=([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/shorts/([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/v/([a-zA-Z0-9_-]{11})`),
}

var videoIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// ParseVideoID extracts the YouTube video id from a link. A bare id is accepted as is.
func ParseVideoID(link string) (string, bool) {
	link = strings.TrimSpace(link)
	if videoIDPattern.MatchString(link) {
		return link, true
	}
	for _, re := range youtubePatterns {
		if m := re.FindStringSubmatch(link); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// ThumbnailURL returns the default high quality thumbnail for a video.
func ThumbnailURL(videoID string) string {
	return fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", videoID)
}

// WatchURL returns the canonical watch link for a video.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
