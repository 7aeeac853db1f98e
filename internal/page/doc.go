// Package page loads HTML pages and runs their scripts inside a window.
//
// Scripts run in document order. Inline scripts are named after the page
// URL ("<url>:#<id>", or "<url>:script" without an id); external scripts
// are named by their URL path. A script that fails to fetch or throws is
// recorded in the Report and loading continues, so one broken script does
// not stop the rest of the page.
//
// Pages and scripts are fetched with resty over a retryablehttp transport,
// with a circuit breaker per origin. file:// URLs and local paths are read
// from disk. Page encodings are detected from the Content-Type, the HTML
// itself, and chardet as a last resort.
package page
