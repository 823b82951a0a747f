// Package panel serves a browser-based config editor from a directory of
// static assets.
//
// The editor is built separately and talks to the REST and WebSocket API.
// Handler serves its files with single page application fallback: a request
// for a file that does not exist gets index.html, so client-side routes
// survive a page reload.
package panel
