// Package prober performs the actual interaction with candidate AI chat
// endpoints.
//
// A probe fetches the target page, detects whether it carries a chat
// interface, extracts a model identifier when one leaks into the page,
// runs a fixed battery of test prompts, and condenses the outcomes into
// the four quality metrics the collective memory tracks. The package also
// implements bounded auto-discovery: parsing a seed domain's page for
// links that look like AI chat frontends.
//
// Workers depend on the Prober interface, not on HTTPProber, so tests and
// alternative transports (e.g. a browser-driving prober) can slot in
// without touching the worker loop.
package prober
