package cqe

import (
	"strings"

	"subtitle-hub/ddd/domain/vo"
	"subtitle-hub/pkg/errno"
)

// DownloadSubtitlesReq 字幕下载请求，单视频与播放列表共用
type DownloadSubtitlesReq struct {
	VideoURL       string   `json:"video_url" binding:"required"`
	Languages      []string `json:"languages"`
	Format         string   `json:"format"`
	PreferAutoSubs *bool    `json:"prefer_auto_subs"`
	OutputFilename string   `json:"output_filename"`

	GeneratePrompt    bool   `json:"generate_prompt"`
	PromptTemplate    string `json:"prompt_template"`
	Speaker           string `json:"speaker"`
	Topic             string `json:"topic"`
	ExtraInstructions string `json:"extra_instructions"`
}

// Validate 校验并填充默认值
func (r *DownloadSubtitlesReq) Validate() error {
	if strings.TrimSpace(r.VideoURL) == "" {
		return errno.ErrBadRequest.WithMessagef("video_url is required")
	}
	if len(r.Languages) == 0 {
		r.Languages = []string{"en"}
	}
	if r.Format == "" {
		r.Format = string(vo.FormatSRT)
	}
	if !vo.SubtitleFormat(r.Format).IsValid() {
		return errno.ErrBadRequest.WithMessagef("unsupported subtitle format: %s", r.Format)
	}
	return nil
}

// ToRequest 转换为领域层请求对象
func (r *DownloadSubtitlesReq) ToRequest() *vo.SubtitleRequest {
	preferAuto := true
	if r.PreferAutoSubs != nil {
		preferAuto = *r.PreferAutoSubs
	}
	req := &vo.SubtitleRequest{
		VideoURL:       strings.TrimSpace(r.VideoURL),
		Languages:      r.Languages,
		Format:         vo.SubtitleFormat(r.Format),
		PreferAutoSubs: preferAuto,
		OutputFilename: r.OutputFilename,
	}
	if r.GeneratePrompt {
		req.Prompt = &vo.PromptSpec{
			Template:          r.PromptTemplate,
			Speaker:           r.Speaker,
			Topic:             r.Topic,
			ExtraInstructions: r.ExtraInstructions,
		}
	}
	return req
}

// ListSubtitlesReq 字幕轨道列表请求
type ListSubtitlesReq struct {
	VideoURL string `json:"video_url" binding:"required"`
}

func (r *ListSubtitlesReq) Validate() error {
	if strings.TrimSpace(r.VideoURL) == "" {
		return errno.ErrBadRequest.WithMessagef("video_url is required")
	}
	return nil
}

// AnalyzeSubtitleReq LLM字幕分析请求，字幕内容三选一：
// 直接给文本、给/storage路径、或给已下载任务的job_id
type AnalyzeSubtitleReq struct {
	SubtitleText string `json:"subtitle_text"`
	SubtitleFile string `json:"subtitle_file"`
	JobID        string `json:"job_id"`

	Provider     string  `json:"provider" binding:"required"`
	Model        string  `json:"model"`
	APIKey       string  `json:"api_key"`
	BaseURL      string  `json:"base_url"`
	Temperature  float32 `json:"temperature"`
	Instructions string  `json:"instructions"`
	Stream       bool    `json:"stream"`
}

func (r *AnalyzeSubtitleReq) Validate() error {
	if strings.TrimSpace(r.SubtitleText) == "" &&
		strings.TrimSpace(r.SubtitleFile) == "" &&
		strings.TrimSpace(r.JobID) == "" {
		return errno.ErrMissingReference
	}
	if strings.TrimSpace(r.Provider) == "" {
		return errno.ErrBadRequest.WithMessagef("provider is required")
	}
	if r.Temperature < 0 || r.Temperature > 2 {
		return errno.ErrBadRequest.WithMessagef("temperature must be between 0 and 2")
	}
	if strings.TrimSpace(r.Instructions) == "" {
		r.Instructions = "请总结这份字幕的核心内容。"
	}
	return nil
}
