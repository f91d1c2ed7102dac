package http

import (
	"github.com/gin-gonic/gin"

	appsvc "subtitle-hub/ddd/application/app"
	"subtitle-hub/ddd/application/cqe"
	"subtitle-hub/pkg/errno"
	"subtitle-hub/pkg/restapi"
)

// VideoController 视频下载相关HTTP接口
type VideoController struct {
	app *appsvc.VideoApp
}

func NewVideoController(app *appsvc.VideoApp) *VideoController {
	return &VideoController{app: app}
}

// Download POST /api/videos/download
// 立即受理并返回job_id，下载在后台执行
func (c *VideoController) Download(ctx *gin.Context) {
	var req cqe.DownloadVideoReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		restapi.Failed(ctx, errno.ErrBadRequest.WithMessagef("invalid request body: %v", err))
		return
	}

	job, err := c.app.Download(&req)
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, job)
}

// Status GET /api/videos/status/:job_id
func (c *VideoController) Status(ctx *gin.Context) {
	job, err := c.app.Status(ctx.Param("job_id"))
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	restapi.Success(ctx, job)
}

// Fetch GET /api/videos/fetch/:job_id
// 以附件形式返回已完成任务的视频文件
func (c *VideoController) Fetch(ctx *gin.Context) {
	path, filename, err := c.app.Fetch(ctx.Param("job_id"))
	if err != nil {
		restapi.Failed(ctx, err)
		return
	}
	ctx.FileAttachment(path, filename)
}
