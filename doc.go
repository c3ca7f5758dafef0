// Package htmlinclude implements <html-include>, a declarative
// content-inclusion element, together with the host pieces it needs to
// run outside a browser.
//
// An include names the content it shows by URI:
//
//	<html-include src="footer.html"></html-include>
//	<html-include title="footer" src="footer.html"></html-include>
//	<html-include debug="true" title="footer" src="footer.html"></html-include>
//
// While the content is on its way the element shows a placeholder,
// "Loading…" or, with a title, "Loading “footer”…". Once fetched, the
// markup replaces the placeholder inside the element's isolated region.
// If the fetch fails the placeholder becomes "⚠️ Loading failed!" (or
// "⚠️ Loading “footer” failed!").
//
// # Lifecycle
//
// IncludeElement is a small state machine. Its host calls
// OnAttributeChanged when src or title changes and OnConnected each time
// the element joins a live document. Changing src while connected resets
// the element and starts a new load; changing title refreshes the
// placeholder unless content is already shown.
//
// A load suspends twice: once awaiting the response and once reading the
// body. Suspension is cooperative. A Loop runs every callback on a single
// goroutine and Await moves blocking work off it, so state is never
// touched concurrently.
//
// # Overlapping loads
//
// Changing src while an earlier load is still in flight does not cancel
// it. Each load captures a generation number when it starts and its
// continuations are discarded if a newer load has started since, so the
// most recent src always decides what is shown. WithLegacyOrdering turns
// the check off and lets whichever load finishes last win.
//
// # Errors
//
// A load without src reports ErrMissingSrc to the host and leaves the
// placeholder alone. A transport error, a non-200 status or a failed body
// read puts the element in the failed state and reports a *FetchError
// (matching ErrFetchFailed) carrying the URI and the reason. Nothing is
// retried. Diagnostic traces, enabled by debug="true", never replace
// these reports.
//
// # Hosts
//
// Document and Registry form a minimal DOM-like host. Expander uses them
// to resolve every include of a parsed document ahead of time, writing
// each region as a declarative shadow root. Handler serves single
// includes to HTMX pages from signed references.
package htmlinclude
