// Package download implements the download pipeline: it normalizes the
// input URL, prepares the output directory, configures the engine, runs the
// download and resolves where the media was saved. Failures are reported as
// *Error values carrying one of a small set of kinds.
package download
