// Package viewport provides an in-memory scrollable container for driving a
// pagination.Controller without a UI toolkit.
package viewport

import (
	"math"
	"sync"

	"github.com/Sternrassler/scroll-pager/pkg/pagination"
)

// Model is a fixed-height viewport over rows of equal height.
// All methods are safe for concurrent use.
type Model struct {
	mu           sync.Mutex
	rowHeight    float64
	clientHeight float64
	rows         int
	scrollTop    float64
	listeners    []pagination.ScrollListener
}

// New creates a viewport showing clientHeight pixels of rows that are rowHeight
// pixels tall.
func New(clientHeight, rowHeight float64) *Model {
	if rowHeight <= 0 {
		rowHeight = 1
	}
	if clientHeight < 0 {
		clientHeight = 0
	}
	return &Model{
		rowHeight:    rowHeight,
		clientHeight: clientHeight,
	}
}

// ScrollMetrics implements pagination.Viewport.
func (m *Model) ScrollMetrics() pagination.Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	return pagination.Metrics{
		ScrollTop:    m.scrollTop,
		ScrollHeight: m.scrollHeightLocked(),
		ClientHeight: m.clientHeight,
	}
}

// AddScrollListener implements pagination.Viewport.
func (m *Model) AddScrollListener(l pagination.ScrollListener) {
	if l == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// RemoveScrollListener implements pagination.Viewport.
func (m *Model) RemoveScrollListener(l pagination.ScrollListener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.listeners {
		if existing == l {
			m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
			return
		}
	}
}

// ListenerCount returns the number of registered scroll listeners.
func (m *Model) ListenerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

// SetContentRows sets the number of rows and clamps the scroll offset.
// Changing content does not emit a scroll signal.
func (m *Model) SetContentRows(rows int) {
	if rows < 0 {
		rows = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rows = rows
	m.scrollTop = m.clampLocked(m.scrollTop)
}

// ScrollTo moves the top of the visible area to y and emits a scroll signal.
func (m *Model) ScrollTo(y float64) {
	m.mu.Lock()
	m.scrollTop = m.clampLocked(y)
	listeners := append([]pagination.ScrollListener(nil), m.listeners...)
	m.mu.Unlock()

	for _, l := range listeners {
		l.OnScroll()
	}
}

// ScrollBy moves the visible area by dy pixels and emits a scroll signal.
func (m *Model) ScrollBy(dy float64) {
	m.mu.Lock()
	y := m.scrollTop + dy
	m.mu.Unlock()

	m.ScrollTo(y)
}

// ScrollToBottom moves the visible area to the end of the content.
func (m *Model) ScrollToBottom() {
	m.mu.Lock()
	y := m.maxScrollTopLocked()
	m.mu.Unlock()

	m.ScrollTo(y)
}

// VisibleRange returns the first (inclusive) and last (exclusive) visible row.
func (m *Model) VisibleRange() (start, end int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start = int(math.Floor(m.scrollTop / m.rowHeight))
	end = int(math.Ceil((m.scrollTop + m.clientHeight) / m.rowHeight))
	if end > m.rows {
		end = m.rows
	}
	if start > end {
		start = end
	}
	return start, end
}

func (m *Model) scrollHeightLocked() float64 {
	return float64(m.rows) * m.rowHeight
}

func (m *Model) maxScrollTopLocked() float64 {
	limit := m.scrollHeightLocked() - m.clientHeight
	if limit < 0 {
		return 0
	}
	return limit
}

func (m *Model) clampLocked(y float64) float64 {
	if y < 0 {
		return 0
	}
	if limit := m.maxScrollTopLocked(); y > limit {
		return limit
	}
	return y
}
