package entity

import (
	"time"

	"subtitle-hub/ddd/domain/vo"
)

// SubtitleArtifact is the result of one single-item subtitle download:
// public storage paths plus the metadata callers and the cache both need.
type SubtitleArtifact struct {
	JobID         string
	Format        vo.SubtitleFormat
	Languages     []string
	SubtitleFile  string
	PromptFile    string
	PromptPreview string
	VideoURL      string
	VideoTitle    string
	CreatedAt     time.Time
}

// CacheEntry is the persisted value of the response cache, keyed by the
// normalized request fingerprint. Valid only while SubtitleFile still exists
// on disk; staleness is checked lazily on read.
type CacheEntry struct {
	JobID         string    `json:"job_id"`
	SubtitleFile  string    `json:"subtitle_file"`
	PromptFile    string    `json:"prompt_file,omitempty"`
	PromptPreview string    `json:"prompt_preview,omitempty"`
	VideoURL      string    `json:"video_url"`
	VideoTitle    string    `json:"video_title,omitempty"`
	DownloadedAt  time.Time `json:"downloaded_at"`
}

// Artifact rebuilds a SubtitleArtifact from a cache hit, re-attaching the
// request's format and language set.
func (e *CacheEntry) Artifact(format vo.SubtitleFormat, languages []string) *SubtitleArtifact {
	return &SubtitleArtifact{
		JobID:         e.JobID,
		Format:        format,
		Languages:     languages,
		SubtitleFile:  e.SubtitleFile,
		PromptFile:    e.PromptFile,
		PromptPreview: e.PromptPreview,
		VideoURL:      e.VideoURL,
		VideoTitle:    e.VideoTitle,
		CreatedAt:     e.DownloadedAt,
	}
}

// Entry builds the cache value for a finished download.
func (a *SubtitleArtifact) Entry() *CacheEntry {
	return &CacheEntry{
		JobID:         a.JobID,
		SubtitleFile:  a.SubtitleFile,
		PromptFile:    a.PromptFile,
		PromptPreview: a.PromptPreview,
		VideoURL:      a.VideoURL,
		VideoTitle:    a.VideoTitle,
		DownloadedAt:  a.CreatedAt,
	}
}

// SubtitleTrack is one row of the list-subtitles output.
type SubtitleTrack struct {
	Language    string   `json:"language"`
	Formats     []string `json:"formats"`
	IsAutomatic bool     `json:"is_automatic"`
}
