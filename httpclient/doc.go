// Package httpclient is the shared JSON HTTP client handle used by the fetch
// primitives.
//
// A Client is bound to one base endpoint and is meant to be constructed once
// and shared. GETs can be cached per request with a CacheDirective, identical
// in-flight GETs share a single round trip, and recoverable GET failures are
// retried with exponential backoff. Writes (POST, PUT, DELETE) are sent once
// and invalidate the cached GET for the same target.
//
//	c, err := httpclient.New("https://api.example.com",
//		httpclient.WithMaxRetries(2),
//		httpclient.WithDefaultCacheTTL(30*time.Second))
//	var user User
//	err = c.Get(ctx, "/users/1", nil, &user)
package httpclient
