package viewport

import (
	"context"
	"fmt"
	"testing"

	"github.com/Sternrassler/scroll-pager/pkg/pagination"
	"github.com/rs/zerolog"
)

type countingListener struct {
	calls int
}

func (l *countingListener) OnScroll() { l.calls++ }

func TestModel_ScrollMetrics(t *testing.T) {
	m := New(500, 100)
	m.SetContentRows(10)

	got := m.ScrollMetrics()
	want := pagination.Metrics{ScrollTop: 0, ScrollHeight: 1000, ClientHeight: 500}
	if got != want {
		t.Errorf("ScrollMetrics() = %+v, want %+v", got, want)
	}
}

func TestModel_ScrollClamping(t *testing.T) {
	tests := []struct {
		name   string
		rows   int
		scroll float64
		want   float64
	}{
		{name: "negative", rows: 10, scroll: -50, want: 0},
		{name: "within range", rows: 10, scroll: 250, want: 250},
		{name: "past bottom", rows: 10, scroll: 900, want: 500},
		{name: "content shorter than viewport", rows: 3, scroll: 100, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(500, 100)
			m.SetContentRows(tt.rows)
			m.ScrollTo(tt.scroll)

			if got := m.ScrollMetrics().ScrollTop; got != tt.want {
				t.Errorf("ScrollTop = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModel_SetContentRowsClampsOffset(t *testing.T) {
	m := New(500, 100)
	m.SetContentRows(20)
	m.ScrollToBottom()

	m.SetContentRows(8)
	if got := m.ScrollMetrics().ScrollTop; got != 300 {
		t.Errorf("ScrollTop = %v, want 300", got)
	}
}

func TestModel_Listeners(t *testing.T) {
	m := New(500, 100)
	m.SetContentRows(10)

	a := &countingListener{}
	b := &countingListener{}
	m.AddScrollListener(a)
	m.AddScrollListener(b)

	m.ScrollBy(100)
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", a.calls, b.calls)
	}

	m.RemoveScrollListener(a)
	m.RemoveScrollListener(&countingListener{})
	m.ScrollBy(100)

	if a.calls != 1 {
		t.Errorf("removed listener calls = %d, want 1", a.calls)
	}
	if b.calls != 2 {
		t.Errorf("remaining listener calls = %d, want 2", b.calls)
	}
	if m.ListenerCount() != 1 {
		t.Errorf("ListenerCount() = %d, want 1", m.ListenerCount())
	}

	m.SetContentRows(11)
	if b.calls != 2 {
		t.Error("SetContentRows should not emit a scroll signal")
	}
}

func TestModel_VisibleRange(t *testing.T) {
	m := New(500, 100)
	m.SetContentRows(20)
	m.ScrollTo(250)

	start, end := m.VisibleRange()
	if start != 2 || end != 8 {
		t.Errorf("VisibleRange() = %d, %d, want 2, 8", start, end)
	}

	m.SetContentRows(4)
	start, end = m.VisibleRange()
	if start != 0 || end != 4 {
		t.Errorf("VisibleRange() = %d, %d, want 0, 4", start, end)
	}
}

type post struct {
	ID int
}

func (p post) ItemID() any { return p.ID }

func TestModel_DrivesController(t *testing.T) {
	logger := zerolog.Nop()
	ctrl, err := pagination.New(pagination.Config[post]{
		Fetcher: pagination.FetcherFunc[post](func(ctx context.Context, page, perPage int) ([]post, error) {
			items := make([]post, perPage)
			for i := range items {
				items[i] = post{ID: (page-1)*perPage + i + 1}
			}
			return items, nil
		}),
		ItemsPerPage:    10,
		ThresholdPixels: 200,
		Logger:          &logger,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer ctrl.Close()

	vp := New(600, 100)
	ctrl.Subscribe(func(s pagination.State[post]) {
		vp.SetContentRows(len(s.Items))
	})

	if err := ctrl.Attach(vp); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	ctrl.WaitIdle()

	for step := 0; step < 3; step++ {
		vp.ScrollToBottom()
		ctrl.WaitIdle()
	}

	state := ctrl.State()
	if len(state.Items) != 40 {
		t.Errorf("len(Items) = %d, want 40", len(state.Items))
	}
	if state.Page != 5 {
		t.Errorf("Page = %d, want 5", state.Page)
	}
	for i, item := range state.Items {
		if item.ID != i+1 {
			t.Fatalf("Items[%d].ID = %d, want %d", i, item.ID, i+1)
		}
	}

	ctrl.Close()
	if vp.ListenerCount() != 0 {
		t.Errorf("ListenerCount() after Close = %d, want 0", vp.ListenerCount())
	}
}

func ExampleModel() {
	vp := New(600, 100)
	vp.SetContentRows(10)
	vp.ScrollToBottom()

	m := vp.ScrollMetrics()
	fmt.Println(m.DistanceToBottom())
	// Output: 0
}
