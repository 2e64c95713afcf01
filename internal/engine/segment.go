package engine

import "strings"

// Segment splits normalized text into row-candidate segments aligned to the
// consumption-table region. It returns nil when the adapter finds no table
// region; callers fall back to whole-document treatment.
//
// Within the region a segment opens at any adapter row-start line and
// closes at the next row start or at a terminator line, whichever comes
// first. The terminator line belongs to no segment. A region with content
// but no visible row-start marker yields one segment spanning the region.
func Segment(text NormalizedText, adapter PlatformAdapter) []RowSegment {
	start, end, ok := adapter.TableBounds(text.Lines)
	if !ok {
		return nil
	}

	var segments []RowSegment
	var current *RowSegment

	flush := func(endOffset int) {
		if current != nil && len(current.RawLines) > 0 {
			current.EndOffset = endOffset
			segments = append(segments, *current)
		}
		current = nil
	}

	for i := start; i < end; i++ {
		line := strings.TrimSpace(text.Lines[i])
		if adapter.Terminator(line) {
			flush(i)
			break
		}
		if adapter.RowStart(line) {
			flush(i)
			current = &RowSegment{StartOffset: i}
		}
		if current != nil && line != "" {
			current.RawLines = append(current.RawLines, line)
		}
	}
	flush(end)

	if len(segments) == 0 {
		// Single-row documents may carry no row-start marker at all; treat
		// the whole region as one row if it has any content.
		whole := RowSegment{StartOffset: start, EndOffset: end}
		for i := start; i < end; i++ {
			line := strings.TrimSpace(text.Lines[i])
			if adapter.Terminator(line) {
				whole.EndOffset = i
				break
			}
			if line != "" {
				whole.RawLines = append(whole.RawLines, line)
			}
		}
		if len(whole.RawLines) == 0 {
			return nil
		}
		return []RowSegment{whole}
	}

	return segments
}
