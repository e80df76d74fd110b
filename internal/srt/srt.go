// Package srt parses SubRip subtitle files.
package srt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Cue is one subtitle block. Times are milliseconds from the start.
type Cue struct {
	Index   int
	StartMs float64
	EndMs   float64
	Text    string
}

// DurationMs is the time the cue is on screen.
func (c Cue) DurationMs() float64 { return c.EndMs - c.StartMs }

var (
	blockSep = regexp.MustCompile(`\n[ \t]*\n`)
	timeLine = regexp.MustCompile(`(\d{2}):(\d{2}):(\d{2}),(\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2}),(\d{3})`)
)

// Parse splits content on blank lines and returns every well-formed block.
// A block needs an index line, a timing line, and at least one text line;
// anything else is skipped.
func Parse(content string) []Cue {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	var cues []Cue
	for _, block := range blockSep.Split(content, -1) {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 3 {
			continue
		}
		match := timeLine.FindStringSubmatch(lines[1])
		if match == nil {
			continue
		}
		index, _ := strconv.Atoi(strings.TrimSpace(lines[0]))
		cues = append(cues, Cue{
			Index:   index,
			StartMs: toMs(match[1:5]),
			EndMs:   toMs(match[5:9]),
			Text:    strings.Join(lines[2:], "\n"),
		})
	}
	return cues
}

func toMs(parts []string) float64 {
	hh, _ := strconv.Atoi(parts[0])
	mm, _ := strconv.Atoi(parts[1])
	ss, _ := strconv.Atoi(parts[2])
	ms, _ := strconv.Atoi(parts[3])
	return float64(hh*3600000 + mm*60000 + ss*1000 + ms)
}

// FormatTimestamp renders ms as HH:MM:SS.mmm.
func FormatTimestamp(ms float64) string {
	total := int64(ms)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d.%03d",
		total/3600000,
		total%3600000/60000,
		total%60000/1000,
		total%1000,
	)
}

// EndMs is the latest cue end, the length of the rendered timeline.
func EndMs(cues []Cue) float64 {
	var end float64
	for _, c := range cues {
		if c.EndMs > end {
			end = c.EndMs
		}
	}
	return end
}
