package session

import "strings"

// maxCaptionLines is how many lines fit under a toolbar icon.
const maxCaptionLines = 3

// ActionCaption formats an interaction label for a toolbar slot: one word
// per line, at most three lines.
func ActionCaption(label string) string {
	lines := strings.Split(strings.ReplaceAll(label, " ", "\n"), "\n")
	if len(lines) > maxCaptionLines {
		lines = lines[:maxCaptionLines]
	}
	return strings.Join(lines, "\n")
}
