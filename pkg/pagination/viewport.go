package pagination

// Metrics are the scroll readouts of a viewport, in pixels.
type Metrics struct {
	ScrollTop    float64
	ScrollHeight float64
	ClientHeight float64
}

// DistanceToBottom returns how far the visible area is from the end of the content.
func (m Metrics) DistanceToBottom() float64 {
	return m.ScrollHeight - (m.ScrollTop + m.ClientHeight)
}

// ShouldLoadMore reports whether the next page should be requested for the given
// scroll position. It performs no I/O.
func ShouldLoadMore(m Metrics, thresholdPixels int, loading bool) bool {
	if loading {
		return false
	}
	return m.DistanceToBottom() <= float64(thresholdPixels)
}

// ScrollListener receives scroll signals from a Viewport.
type ScrollListener interface {
	OnScroll()
}

// Viewport is the scrollable container whose position drives loading.
type Viewport interface {
	// ScrollMetrics returns the current scroll readouts.
	ScrollMetrics() Metrics

	// AddScrollListener registers l for scroll signals.
	AddScrollListener(l ScrollListener)

	// RemoveScrollListener unregisters l. Removing an unknown listener is a no-op.
	RemoveScrollListener(l ScrollListener)
}
