package entity

import "subtitle-hub/ddd/domain/vo"

// PlaylistItemResult is the outcome for a single playlist member. Failures
// carry an empty SubtitleFile and a truncated Error; the final recount keys
// off the empty-artifact-path convention.
type PlaylistItemResult struct {
	JobID         string `json:"job_id"`
	VideoURL      string `json:"video_url"`
	VideoTitle    string `json:"video_title,omitempty"`
	SubtitleFile  string `json:"subtitle_file"`
	PromptFile    string `json:"prompt_file,omitempty"`
	PromptPreview string `json:"prompt_preview,omitempty"`
	Error         string `json:"error,omitempty"`
}

// PlaylistProgress tracks one playlist download job. Invariants maintained by
// the coordinator: Completed == Successful+Failed, Completed <= TotalVideos,
// and once Status is completed InProgress is 0 and CurrentVideos is empty.
type PlaylistProgress struct {
	JobID         string               `json:"job_id"`
	TotalVideos   int                  `json:"total_videos"`
	Completed     int                  `json:"completed"`
	Successful    int                  `json:"successful"`
	Failed        int                  `json:"failed"`
	InProgress    int                  `json:"in_progress"`
	Status        vo.PlaylistStatus    `json:"status"`
	CurrentVideos []string             `json:"current_videos"`
	Results       []PlaylistItemResult `json:"results"`
}

// Snapshot deep-copies the record so readers never alias coordinator state.
func (p *PlaylistProgress) Snapshot() *PlaylistProgress {
	cp := *p
	cp.CurrentVideos = append([]string(nil), p.CurrentVideos...)
	cp.Results = append([]PlaylistItemResult(nil), p.Results...)
	return &cp
}

// RemoveCurrent drops url from the in-flight set.
func (p *PlaylistProgress) RemoveCurrent(url string) {
	for i, v := range p.CurrentVideos {
		if v == url {
			p.CurrentVideos = append(p.CurrentVideos[:i], p.CurrentVideos[i+1:]...)
			return
		}
	}
}
