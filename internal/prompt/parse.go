package prompt

import (
	"regexp"
	"strings"
)

const (
	NoStructureAnalysis = "No structure analysis available."
	NoSummary           = "No summary available."
)

var (
	structureMarkerPattern = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(StructureMarker))
	summaryMarkerPattern   = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(SummaryMarker))
)

// Analysis holds the two sections of an analysis response.
type Analysis struct {
	Structure string
	Summary   string
}

// ParseAnalysis splits a raw model response into its two sections. Each
// marker is matched at its first occurrence anywhere in the response, ignoring
// case, and a section runs until the other marker when that follows it, or to
// the end. A response with neither marker is all summary. A section that is
// absent or empty after trimming gets its placeholder. Parsing never fails.
func ParseAnalysis(raw string) Analysis {
	text := strings.TrimSpace(raw)
	result := Analysis{
		Structure: NoStructureAnalysis,
		Summary:   NoSummary,
	}

	structureLoc := structureMarkerPattern.FindStringIndex(text)
	summaryLoc := summaryMarkerPattern.FindStringIndex(text)
	if structureLoc == nil && summaryLoc == nil {
		if text != "" {
			result.Summary = text
		}
		return result
	}

	if s := strings.TrimSpace(section(text, structureLoc, summaryLoc)); s != "" {
		result.Structure = s
	}
	if s := strings.TrimSpace(section(text, summaryLoc, structureLoc)); s != "" {
		result.Summary = s
	}
	return result
}

// section returns the text after the marker at loc, up to the marker at next
// when that comes later.
func section(text string, loc, next []int) string {
	if loc == nil {
		return ""
	}
	end := len(text)
	if next != nil && next[0] > loc[0] {
		end = next[0]
	}
	return text[loc[1]:end]
}
