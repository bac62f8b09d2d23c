package model

// Package model defines domain data structures used across the app: the
// download task produced by a single invocation and its status enum.
