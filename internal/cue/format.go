package cue

import (
	"fmt"
	"math"
	"strings"

	"cuebridge/internal/textutil"
)

// maxDisplaySeconds caps DisplaySeconds at 99:59:59.
const maxDisplaySeconds = 100*3600 - 1

// Title renders a human-readable listing title.
func Title(m Metadata) string {
	switch m.Type {
	case MusicVideo, Other:
		if creator := strings.TrimSpace(m.Creator); creator != "" {
			return fmt.Sprintf("[%s] %s", creator, m.Title)
		}
		return m.Title
	case TelevisionEpisode:
		var b strings.Builder
		if m.SeriesTitle != "" {
			b.WriteString(m.SeriesTitle)
			b.WriteByte(' ')
		}
		if m.Season != nil {
			fmt.Fprintf(&b, "S%d", *m.Season)
		}
		if m.Episode != nil {
			fmt.Fprintf(&b, "E%d", *m.Episode)
		}
		if b.Len() == 0 {
			return m.Title
		}
		return strings.TrimSpace(b.String()) + " - " + m.Title
	default:
		return m.Title
	}
}

// ExportFilename returns the file name a transcript is exported under. ext
// includes the leading dot, e.g. ".json".
func ExportFilename(m Metadata, ext string) string {
	title := textutil.SanitizeFileName(m.Title)
	if title == "" {
		title = "transcript"
	}
	if m.Type == TelevisionEpisode {
		switch {
		case m.Season != nil && m.Episode != nil:
			return fmt.Sprintf("S%02dE%02d - %s%s", *m.Season, *m.Episode, title, ext)
		case m.Episode != nil:
			return fmt.Sprintf("E%02d - %s%s", *m.Episode, title, ext)
		}
	}
	return title + ext
}

// RenderTimestamp formats seconds as mm:ss for listings.
func RenderTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	whole := int(math.Floor(seconds))
	return fmt.Sprintf("%02d:%02d", whole/60, whole%60)
}

// DisplaySeconds formats seconds as m:ss or h:mm:ss, capped at 99:59:59.
func DisplaySeconds(seconds float64) string {
	if seconds <= 0 {
		return "0:00"
	}
	whole := int(math.Floor(seconds))
	switch {
	case whole < 3600:
		return fmt.Sprintf("%d:%02d", whole/60, whole%60)
	case whole <= maxDisplaySeconds:
		return fmt.Sprintf("%d:%02d:%02d", whole/3600, (whole%3600)/60, whole%60)
	default:
		return "99:59:59"
	}
}
