// Package services defines shared utilities consumed by the import pipeline
// and external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, video IDs, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification uniform across processing steps.
//   - Thin command-execution abstractions that make the yt-dlp, gallery-dl,
//     and ffmpeg clients testable without spawning real processes.
package services
