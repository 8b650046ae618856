// Package pagination walks Canvas list endpoints page by page.
//
// Canvas paginates list responses and advertises further pages through the
// Link response header (rel="next", rel="last", ...). The Walker issues the
// first request with the caller's parameters, then keeps requesting the same
// path with per_page and page parameters until no rel="next" relation is
// present, concatenating every page's items in server order.
//
// Example usage:
//
//	c, _ := client.New(client.DefaultConfig(token, "canvas.example.edu"))
//	walker := pagination.NewWalker(c, logger)
//	users, err := walker.FetchAll(ctx, "/api/v1/courses/42/users", url.Values{
//		"enrollment_type[]": {"student"},
//	})
//
// The walker:
//   - Fetches pages strictly in sequence, never concurrently
//   - Builds a fresh parameter set for every page
//   - Returns an empty slice for an empty single page
//   - Discards partial results when any page fails
package pagination
