package engine

// Package engine is the boundary to the external download engines. The
// orchestrator only sees the Engine interface; the yt-dlp adapter drives the
// yt-dlp binary through github.com/lrstanley/go-ytdlp and the native adapter
// downloads progressive formats in-process through github.com/ytget/ytdlp/v2.
