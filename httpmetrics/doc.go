// Package httpmetrics provides a Collector which instruments HTTP servers and
// exposes what it measured for Prometheus to scrape.
//
// Once a response is complete the Collector records:
//
//	numOfRequests{route}                      - counter of requests per path
//	numOfErrors{error}                        - counter of responses with a status >= 400, by status
//	http_request_duration_ms{method,route,code} - histogram of request durations in milliseconds
//
// along with the process and Go runtime metrics of the Prometheus client
// library and any custom metric added with AddCustomMetric.
//
// Requests to the scrape path (/_metrics), to /favicon.ico and to any
// path listed in Options.Ignore are not recorded.
package httpmetrics
