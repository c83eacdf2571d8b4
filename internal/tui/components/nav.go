package components

// MoveCursor moves cursor by delta, clamped to [0, itemCount).
func MoveCursor(cursor, delta, itemCount int) int {
	if itemCount == 0 {
		return 0
	}
	return clamp(cursor+delta, 0, itemCount-1)
}

// AdjustOffset scrolls the viewport just enough to keep cursor visible.
func AdjustOffset(cursor, offset, visibleHeight int) int {
	visibleHeight = max(visibleHeight, 1)
	switch {
	case cursor < offset:
		return cursor
	case cursor >= offset+visibleHeight:
		return cursor - visibleHeight + 1
	default:
		return offset
	}
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
