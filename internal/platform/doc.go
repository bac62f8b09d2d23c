package platform

// Package platform contains OS/platform integration: video URL normalization,
// output directory setup and locking, saved-file lookup, and OS open/reveal.
