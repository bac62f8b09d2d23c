// Package remux rewraps downloaded media into the requested container with
// ffmpeg stream copy. Nothing is re-encoded.
package remux
