package dto

import (
	"fmt"

	"subtitle-hub/ddd/domain/entity"
	"subtitle-hub/ddd/domain/vo"
)

// VideoJobDTO 视频下载任务状态。FetchURL仅在completed后出现。
type VideoJobDTO struct {
	JobID           string `json:"job_id"`
	Status          string `json:"status"`
	ProgressPercent int    `json:"progress_percent"`
	Message         string `json:"message"`
	Quality         string `json:"quality"`

	VideoFile     string `json:"video_file,omitempty"`
	Filename      string `json:"filename,omitempty"`
	FileSize      int64  `json:"file_size,omitempty"`
	FileSizeHuman string `json:"file_size_human,omitempty"`
	FormatNote    string `json:"format_note,omitempty"`
	FetchURL      string `json:"fetch_url,omitempty"`
}

func NewVideoJobDTO(j *entity.VideoJob) *VideoJobDTO {
	d := &VideoJobDTO{
		JobID:           j.JobID,
		Status:          j.Status.String(),
		ProgressPercent: j.ProgressPercent,
		Message:         j.Message,
		Quality:         j.Quality.String(),
	}
	if j.Status == vo.JobStatusCompleted {
		d.VideoFile = j.VideoFile
		d.Filename = j.Filename
		d.FileSize = j.FileSize
		d.FileSizeHuman = j.FileSizeHuman
		d.FormatNote = j.FormatNote
		d.FetchURL = fmt.Sprintf("/api/videos/fetch/%s", j.JobID)
	}
	return d
}
