// Package http is a configurable HTTP(S) request client with verb helpers and a
// per-request lifecycle controller.
//
// Every request is driven by its own lifecycle: the transport call is issued,
// up to three independent clocks are armed and the first terminal event wins:
//   - Options.RequestTimeout bounds the time until the response headers arrive
//   - Options.ResponseTimeout bounds the time from the headers to the end of the body
//   - Options.Timeout bounds the whole round trip
//
// Exactly one outcome is observable per request: the Callback runs once with
// the fully buffered Response, or the returned Call settles with an error.
// On every exit path the timers are stopped, the transport request is
// cancelled and the response body is closed.
//
// Basic Usage:
//
//	http.SetDefaultUserAgent("my-crawler/1.0")
//
//	http.Get(ctx, "https://example.com/", &http.Options{
//	    Charset:        "gbk",
//	    RequestTimeout: 2 * time.Second,
//	    Timeout:        10 * time.Second,
//	}, func(resp *http.Response) {
//	    fmt.Println(resp.StatusCode, resp.Text())
//	}).OnError(func(err error) {
//	    if errors.Is(err, http.ErrRequestTimeout) {
//	        log.Println("server did not answer in time")
//	    }
//	})
//
// Form posts:
//
//	resp, err := http.DefaultClient().Do(ctx, "POST", "https://example.com/login", &http.Options{
//	    Data: map[string]string{"user": "name", "pass": "secret"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cookie := http.ParseCookies(resp.Header)
//
// Charsets:
//
// "utf8" (the default) returns the body as received, "binary" returns the raw
// bytes, and any other WHATWG or IANA charset name decodes the body into UTF-8.
// The same charset is used to encode map form data.
//
// Thread Safety:
//
// Client is safe for concurrent use. Calls never share timers, requests or
// connections: the default transport disables keep-alives.
package http
