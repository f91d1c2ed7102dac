package app

import (
	"subtitle-hub/ddd/application/cqe"
	"subtitle-hub/ddd/application/dto"
	"subtitle-hub/ddd/domain/service"
	"subtitle-hub/ddd/domain/vo"
)

// VideoApp orchestrates the asynchronous video download use cases.
type VideoApp struct {
	videos service.VideoService
}

func NewVideoApp(videos service.VideoService) *VideoApp {
	return &VideoApp{videos: videos}
}

// Download queues a download and returns the initial job record.
func (a *VideoApp) Download(req *cqe.DownloadVideoReq) (*dto.VideoJobDTO, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	job := a.videos.Enqueue(req.VideoURL, vo.VideoQuality(req.Quality), req.OutputFilename)
	return dto.NewVideoJobDTO(job), nil
}

// Status polls a job.
func (a *VideoApp) Status(jobID string) (*dto.VideoJobDTO, error) {
	job, err := a.videos.Status(jobID)
	if err != nil {
		return nil, err
	}
	return dto.NewVideoJobDTO(job), nil
}

// Fetch resolves the artifact of a completed job for file delivery.
func (a *VideoApp) Fetch(jobID string) (absPath, filename string, err error) {
	return a.videos.FetchFile(jobID)
}
