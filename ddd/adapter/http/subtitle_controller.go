package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	appsvc "subtitle-hub/ddd/application/app"
	"subtitle-hub/ddd/application/cqe"
	"subtitle-hub/pkg/errno"
	"subtitle-hub/pkg/logger"
	"subtitle-hub/pkg/restapi"
)

// SubtitleController 字幕相关HTTP接口
type SubtitleController struct {
	app *appsvc.SubtitleApp
}

func NewSubtitleController(app *appsvc.SubtitleApp) *SubtitleController {
	return &SubtitleController{app: app}
}

// Download POST /api/subtitles/download
// 单视频和播放列表都同步返回最终结果，播放列表处理期间可另起请求轮询进度
func (c *SubtitleController) Download(ctx *gin.Context) {
	var req cqe.DownloadSubtitlesReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		restapi.Failed(ctx, errno.ErrBadRequest.WithMessagef("invalid request body: %v", err))
		return
	}

	result, err := c.app.Download(ctx.Request.Context(), &req)
	if err != nil {
		logger.Warnf("subtitle download failed url=%s error=%v", req.VideoURL, err)
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, result)
}

// PlaylistProgress GET /api/subtitles/playlist/progress/:job_id
func (c *SubtitleController) PlaylistProgress(ctx *gin.Context) {
	progress, err := c.app.Progress(ctx.Param("job_id"))
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, progress)
}

// ListTracks POST /api/subtitles/list
func (c *SubtitleController) ListTracks(ctx *gin.Context) {
	var req cqe.ListSubtitlesReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		restapi.Failed(ctx, errno.ErrBadRequest.WithMessagef("invalid request body: %v", err))
		return
	}

	tracks, err := c.app.ListTracks(ctx.Request.Context(), &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, tracks)
}

// Analyze POST /api/subtitles/analyze
// stream=true时以纯文本分块推送增量内容，否则同步返回完整回答
func (c *SubtitleController) Analyze(ctx *gin.Context) {
	var req cqe.AnalyzeSubtitleReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		restapi.Failed(ctx, errno.ErrBadRequest.WithMessagef("invalid request body: %v", err))
		return
	}

	if !req.Stream {
		result, err := c.app.Analyze(ctx.Request.Context(), &req)
		if err != nil {
			restapi.Failed(ctx, err)
			return
		}
		restapi.Success(ctx, result)
		return
	}

	stream, model, err := c.app.AnalyzeStream(ctx.Request.Context(), &req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	defer stream.Close()

	// 实际使用的提供商和模型通过响应头暴露，正文只含回答文本
	ctx.Header("X-LLM-Provider", req.Provider)
	ctx.Header("X-LLM-Model", model)
	ctx.Header("Content-Type", "text/plain; charset=utf-8")
	ctx.Header("Cache-Control", "no-cache")
	ctx.Status(http.StatusOK)

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			// 响应头已发出，只能中断正文
			logger.Warnf("analysis stream interrupted model=%s error=%v", model, err)
			return
		}
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			if _, werr := ctx.Writer.WriteString(chunk.Choices[0].Delta.Content); werr != nil {
				return
			}
			ctx.Writer.Flush()
		}
	}
}
