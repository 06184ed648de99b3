// Package pagination drives incremental ("infinite scroll") loading of paged data.
//
// A Controller watches the scroll position of a bounded Viewport, decides when the
// reader is close enough to the end of the content to need more, requests the next
// page from a PageFetcher and appends the result to an accumulated list. At most
// one page request is outstanding at any time, so batches are always appended in
// request order.
//
// Example usage:
//
//	ctrl, err := pagination.New(pagination.Config[Post]{
//		Fetcher:         pagination.FetcherFunc[Post](fetchPosts),
//		ItemsPerPage:    10,
//		ThresholdPixels: 200,
//	})
//	if err != nil {
//		return err
//	}
//	defer ctrl.Close()
//
//	ctrl.Subscribe(func(s pagination.State[Post]) {
//		render(s.Items, s.Loading)
//	})
//	ctrl.Attach(vp) // first attach loads page 1 when no initial items were given
//
// The controller:
//   - Loads page 1 once on first Attach unless InitialItems were supplied
//   - Requests page N+1 when distance to bottom <= ThresholdPixels
//   - Never runs two page requests concurrently
//   - Logs and swallows fetch failures, leaving items and page cursor unchanged
//   - Ignores results that arrive after Close
package pagination
