package cqe

import (
	"strings"

	"subtitle-hub/ddd/domain/vo"
	"subtitle-hub/pkg/errno"
)

// DownloadVideoReq 视频下载请求
type DownloadVideoReq struct {
	VideoURL       string `json:"video_url" binding:"required"`
	Quality        string `json:"quality"`
	OutputFilename string `json:"output_filename"`
}

// Validate 校验并填充默认值
func (r *DownloadVideoReq) Validate() error {
	if strings.TrimSpace(r.VideoURL) == "" {
		return errno.ErrBadRequest.WithMessagef("video_url is required")
	}
	if r.Quality == "" {
		r.Quality = string(vo.QualityBest)
	}
	if !vo.VideoQuality(r.Quality).IsValid() {
		return errno.ErrBadRequest.WithMessagef("unsupported quality: %s (use best, 2160p..144p)", r.Quality)
	}
	return nil
}
