package app

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"subtitle-hub/ddd/application/cqe"
	"subtitle-hub/ddd/application/dto"
	"subtitle-hub/ddd/domain/entity"
	"subtitle-hub/ddd/domain/service"
	"subtitle-hub/pkg/errno"
	"subtitle-hub/pkg/logger"
)

// SubtitleApp orchestrates the subtitle use cases: it validates requests,
// routes playlist URLs to the coordinator and single URLs to the pipeline,
// and adapts domain results into response DTOs.
type SubtitleApp struct {
	subtitles service.SubtitleService
	playlists service.PlaylistService
	llm       service.LLMService
}

func NewSubtitleApp(subtitles service.SubtitleService, playlists service.PlaylistService, llm service.LLMService) *SubtitleApp {
	return &SubtitleApp{subtitles: subtitles, playlists: playlists, llm: llm}
}

// Download handles both shapes of the download endpoint. A playlist URL is
// expanded and processed to completion in the request, returning the outcome
// summary; a single URL runs the pipeline directly. Playlist progress is
// pollable from a separate request while the job runs.
func (a *SubtitleApp) Download(ctx context.Context, req *cqe.DownloadSubtitlesReq) (interface{}, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	domainReq := req.ToRequest()

	if a.playlists.IsPlaylistURL(domainReq.VideoURL) {
		urls, err := a.playlists.Expand(ctx, domainReq.VideoURL)
		if err != nil {
			return nil, err
		}
		return dto.NewPlaylistProgressDTO(a.playlists.Run(domainReq, urls)), nil
	}

	if cached := a.subtitles.Cached(domainReq); cached != nil {
		return dto.NewSubtitleResult(cached, true), nil
	}
	artifact, err := a.subtitles.Download(ctx, domainReq)
	if err != nil {
		return nil, err
	}
	return dto.NewSubtitleResult(artifact, false), nil
}

// Progress returns playlist job progress.
func (a *SubtitleApp) Progress(jobID string) (*dto.PlaylistProgressDTO, error) {
	p := a.playlists.Progress(jobID)
	if p == nil {
		return nil, errno.ErrJobNotFound.WithMessagef("no playlist job with id %s", jobID)
	}
	return dto.NewPlaylistProgressDTO(p), nil
}

// ListTracks lists a video's available subtitle tracks.
func (a *SubtitleApp) ListTracks(ctx context.Context, req *cqe.ListSubtitlesReq) (*dto.SubtitleTracks, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	automatic, manual, err := a.subtitles.ListTracks(ctx, req.VideoURL)
	if err != nil {
		return nil, err
	}
	if automatic == nil {
		automatic = []entity.SubtitleTrack{}
	}
	if manual == nil {
		manual = []entity.SubtitleTrack{}
	}
	return &dto.SubtitleTracks{
		VideoURL:  req.VideoURL,
		Automatic: automatic,
		Manual:    manual,
	}, nil
}

// Analyze answers a question about downloaded subtitle text, non-streaming.
func (a *SubtitleApp) Analyze(ctx context.Context, req *cqe.AnalyzeSubtitleReq) (*dto.AnalysisResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	text, err := a.resolveSubtitleText(req)
	if err != nil {
		return nil, err
	}
	answer, model, err := a.llm.Analyze(ctx, &service.AnalyzeRequest{
		Provider:     req.Provider,
		Model:        req.Model,
		APIKey:       req.APIKey,
		BaseURL:      req.BaseURL,
		Temperature:  req.Temperature,
		Instructions: req.Instructions,
		SubtitleText: text,
	})
	if err != nil {
		return nil, err
	}
	return &dto.AnalysisResult{Provider: req.Provider, Model: model, Answer: answer}, nil
}

// AnalyzeStream opens a streaming analysis; the adapter drains the stream.
func (a *SubtitleApp) AnalyzeStream(ctx context.Context, req *cqe.AnalyzeSubtitleReq) (*openai.ChatCompletionStream, string, error) {
	if err := req.Validate(); err != nil {
		return nil, "", err
	}
	text, err := a.resolveSubtitleText(req)
	if err != nil {
		return nil, "", err
	}
	return a.llm.StreamAnalyze(ctx, &service.AnalyzeRequest{
		Provider:     req.Provider,
		Model:        req.Model,
		APIKey:       req.APIKey,
		BaseURL:      req.BaseURL,
		Temperature:  req.Temperature,
		Instructions: req.Instructions,
		SubtitleText: text,
	})
}

// resolveSubtitleText prefers inline text, then a /storage path, then a job id.
func (a *SubtitleApp) resolveSubtitleText(req *cqe.AnalyzeSubtitleReq) (string, error) {
	if text := strings.TrimSpace(req.SubtitleText); text != "" {
		return text, nil
	}
	text, err := a.subtitles.LoadSubtitleText(strings.TrimSpace(req.JobID), strings.TrimSpace(req.SubtitleFile))
	if err != nil {
		logger.Warnf("subtitle text resolution failed job_id=%s file=%s error=%v", req.JobID, req.SubtitleFile, err)
		return "", err
	}
	return text, nil
}
