package dto

import (
	"subtitle-hub/ddd/domain/entity"
)

// SubtitleResult 单视频字幕下载结果
type SubtitleResult struct {
	JobID         string   `json:"job_id"`
	VideoURL      string   `json:"video_url"`
	VideoTitle    string   `json:"video_title,omitempty"`
	Format        string   `json:"format"`
	Languages     []string `json:"languages"`
	SubtitleFile  string   `json:"subtitle_file"`
	PromptFile    string   `json:"prompt_file,omitempty"`
	PromptPreview string   `json:"prompt_preview,omitempty"`
	Cached        bool     `json:"cached"`
}

func NewSubtitleResult(a *entity.SubtitleArtifact, cached bool) *SubtitleResult {
	return &SubtitleResult{
		JobID:         a.JobID,
		VideoURL:      a.VideoURL,
		VideoTitle:    a.VideoTitle,
		Format:        a.Format.String(),
		Languages:     a.Languages,
		SubtitleFile:  a.SubtitleFile,
		PromptFile:    a.PromptFile,
		PromptPreview: a.PromptPreview,
		Cached:        cached,
	}
}

// PlaylistProgressDTO 播放列表任务进度，同时也是下载接口的最终结果形态
type PlaylistProgressDTO struct {
	JobID         string                      `json:"job_id"`
	TotalVideos   int                         `json:"total_videos"`
	Completed     int                         `json:"completed"`
	Successful    int                         `json:"successful"`
	Failed        int                         `json:"failed"`
	InProgress    int                         `json:"in_progress"`
	Status        string                      `json:"status"`
	CurrentVideos []string                    `json:"current_videos"`
	Results       []entity.PlaylistItemResult `json:"results"`
}

func NewPlaylistProgressDTO(p *entity.PlaylistProgress) *PlaylistProgressDTO {
	currents := p.CurrentVideos
	if currents == nil {
		currents = []string{}
	}
	results := p.Results
	if results == nil {
		results = []entity.PlaylistItemResult{}
	}
	return &PlaylistProgressDTO{
		JobID:         p.JobID,
		TotalVideos:   p.TotalVideos,
		Completed:     p.Completed,
		Successful:    p.Successful,
		Failed:        p.Failed,
		InProgress:    p.InProgress,
		Status:        string(p.Status),
		CurrentVideos: currents,
		Results:       results,
	}
}

// SubtitleTracks 可用字幕轨道列表
type SubtitleTracks struct {
	VideoURL  string                 `json:"video_url"`
	Automatic []entity.SubtitleTrack `json:"automatic"`
	Manual    []entity.SubtitleTrack `json:"manual"`
}

// AnalysisResult 非流式LLM分析结果
type AnalysisResult struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Answer   string `json:"answer"`
}
