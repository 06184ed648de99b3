// Package testutil provides testing utilities for scroll-pager.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockFeedResponse defines the behavior for a mock feed page response.
type MockFeedResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockFeed is a configurable paginated JSON feed for testing.
//
// By default page N with per_page M returns M objects with ids
// (N-1)*M+1 .. N*M, up to TotalItems.
type MockFeed struct {
	server *httptest.Server
	mu     sync.RWMutex
	pages  map[int]MockFeedResponse

	// TotalItems bounds the generated feed (default: 1000)
	TotalItems int

	// Tracking
	RequestCount      int
	ConditionalCount  int
	RequestedPages    []int
	LastRequestHeader http.Header
}

// NewMockFeed creates a new mock feed server.
func NewMockFeed() *MockFeed {
	mock := &MockFeed{
		pages:      make(map[int]MockFeedResponse),
		TotalItems: 1000,
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

		mock.mu.Lock()
		mock.RequestCount++
		mock.RequestedPages = append(mock.RequestedPages, page)
		mock.LastRequestHeader = r.Header.Clone()
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		resp, exists := mock.pages[page]
		mock.mu.Unlock()

		if exists {
			writeResponse(w, resp)
			return
		}

		mock.defaultHandler(w, r, page, perPage)
	}))

	return mock
}

// URL returns the mock feed URL.
func (m *MockFeed) URL() string {
	return m.server.URL + "/posts"
}

// Close shuts down the mock server.
func (m *MockFeed) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockFeed) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.RequestedPages = nil
	m.LastRequestHeader = nil
}

// SetPageResponse overrides the response for one page number.
func (m *MockFeed) SetPageResponse(page int, resp MockFeedResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page] = resp
}

// ClearPageResponse restores the generated response for a page.
func (m *MockFeed) ClearPageResponse(page int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pages, page)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockFeed) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockFeed) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetRequestedPages returns the page numbers requested so far.
func (m *MockFeed) GetRequestedPages() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.RequestedPages...)
}

// GetLastRequestHeader returns the headers of the most recent request.
func (m *MockFeed) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader.Clone()
}

// defaultHandler serves generated posts with an ETag per page.
func (m *MockFeed) defaultHandler(w http.ResponseWriter, r *http.Request, page, perPage int) {
	if page < 1 || perPage < 1 {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "page and per_page must be positive"}`))
		return
	}

	etag := fmt.Sprintf(`"page-%d-%d"`, page, perPage)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	m.mu.RLock()
	total := m.TotalItems
	m.mu.RUnlock()

	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)
	w.Write(GeneratePosts(page, perPage, total))
}

func writeResponse(w http.ResponseWriter, resp MockFeedResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// GeneratePosts returns the JSON array for a page of generated posts.
func GeneratePosts(page, perPage, total int) []byte {
	type post struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
	}

	posts := make([]post, 0, perPage)
	for i := 0; i < perPage; i++ {
		id := (page-1)*perPage + i + 1
		if id > total {
			break
		}
		posts = append(posts, post{ID: id, Title: fmt.Sprintf("Post %d", id)})
	}

	data, _ := json.Marshal(posts)
	return data
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockFeedResponse {
	return MockFeedResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockFeedResponse {
	return MockFeedResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"error": "Not found"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewEnvelopeResponse wraps items JSON in {"items": ...}.
func NewEnvelopeResponse(itemsJSON string) MockFeedResponse {
	return MockFeedResponse{
		StatusCode: http.StatusOK,
		Body:       fmt.Sprintf(`{"items": %s, "has_more": true}`, itemsJSON),
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewMalformedResponse creates a 200 response whose body is not valid JSON.
func NewMalformedResponse() MockFeedResponse {
	return MockFeedResponse{
		StatusCode: http.StatusOK,
		Body:       `[{"id": 1,`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
