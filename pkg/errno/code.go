package errno

import "fmt"

// code=2xx 请求成功
// code=4xx 客户端请求错误
// code=5xx 服务器端错误
// 下载/提取相关错误码与HTTP状态码对齐，restapi直接透传

type Errno struct {
	Code    int
	Message string
}

// Error 实现error接口
func (e *Errno) Error() string {
	return e.Message
}

// Is matches errno values by code so detail-carrying copies built with
// WithMessagef still satisfy errors.Is against the sentinel.
func (e *Errno) Is(target error) bool {
	t, ok := target.(*Errno)
	return ok && t.Code == e.Code
}

// WithMessagef returns a copy of the errno carrying a formatted detail message.
func (e *Errno) WithMessagef(format string, args ...interface{}) *Errno {
	return &Errno{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

var (
	OK = &Errno{Code: 200, Message: "Success"}

	ErrBadRequest   = &Errno{Code: 400, Message: "Bad request"}
	ErrUnauthorized = &Errno{Code: 401, Message: "Unauthorized"}
	ErrForbidden    = &Errno{Code: 403, Message: "Forbidden"}
	ErrNotFound     = &Errno{Code: 404, Message: "Not found"}
	ErrTimeout      = &Errno{Code: 408, Message: "Request timeout"}
	ErrConflict     = &Errno{Code: 409, Message: "Conflict"}
	ErrRateLimited  = &Errno{Code: 429, Message: "Too many requests"}

	ErrInternalServer = &Errno{Code: 500, Message: "Internal server error"}

	// 业务错误
	ErrExtractorNotFound = &Errno{Code: 500, Message: "yt-dlp executable not found, install it and make sure it is on PATH"}
	ErrExtractorTimeout  = &Errno{Code: 408, Message: "extractor invocation timed out, retry later"}
	ErrEmptyPlaylist     = &Errno{Code: 404, Message: "playlist is empty or its members could not be listed"}
	ErrJobNotFound       = &Errno{Code: 404, Message: "no job with that id"}
	ErrJobNotCompleted   = &Errno{Code: 409, Message: "video is still processing or has failed, nothing to fetch yet"}
	ErrArtifactMissing   = &Errno{Code: 404, Message: "video file no longer exists or was cleaned up"}
	ErrPathOutsideRoot   = &Errno{Code: 400, Message: "path escapes the storage root"}
	ErrBadStoragePath    = &Errno{Code: 400, Message: "storage path must start with /storage/"}
	ErrMissingReference  = &Errno{Code: 400, Message: "a subtitle reference (job_id, subtitle_file or subtitle_text) is required"}
	ErrNoLanguages       = &Errno{Code: 400, Message: "at least one subtitle language must be provided"}
	ErrProviderUnknown   = &Errno{Code: 400, Message: "unknown LLM provider"}
	ErrProviderKey       = &Errno{Code: 400, Message: "no API key configured for the selected provider"}
)
