package entity

import (
	"time"

	"subtitle-hub/ddd/domain/vo"
)

// VideoJob is one asynchronous video download. The record is owned by the
// video service's in-memory table; everything handed out is a copy.
type VideoJob struct {
	JobID           string
	Status          vo.JobStatus
	ProgressPercent int
	Message         string
	Quality         vo.VideoQuality

	// 结果字段，completed后填充
	VideoFile     string
	Filename      string
	FileSize      int64
	FileSizeHuman string
	FormatNote    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot returns a detached copy safe to hand to readers.
func (j *VideoJob) Snapshot() *VideoJob {
	cp := *j
	return &cp
}
