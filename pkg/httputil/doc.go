// Package httputil provides retry support for data source clients.
//
// A [Policy] re-runs an operation with exponential backoff, but only for
// errors the caller marked as transient with [Retryable] or [RetryAfter].
// Everything else (unknown ids, malformed payloads) fails on the first try:
//
//	p := httputil.DefaultPolicy()
//	err := p.Do(ctx, func() error {
//		resp, err := client.Do(req)
//		if err != nil {
//			return httputil.Retryable(err)
//		}
//		if resp.StatusCode == http.StatusTooManyRequests {
//			wait := httputil.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
//			return httputil.RetryAfter(errBusy, wait)
//		}
//		...
//	})
package httputil
