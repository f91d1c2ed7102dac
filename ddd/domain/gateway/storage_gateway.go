package gateway

import (
	"subtitle-hub/ddd/domain/entity"
	"subtitle-hub/ddd/domain/vo"
)

// StorageGateway abstracts the artifact store: a filesystem hierarchy with
// format- and kind-named subdirectories under one root, exposed externally
// through /storage-prefixed public paths.
type StorageGateway interface {
	// SubtitleDir returns (and creates) the subdirectory for one subtitle
	// format, e.g. <root>/subtitles/srt. "txt" holds plain-text companions.
	SubtitleDir(format string) (string, error)

	// PromptDir returns (and creates) the prompt directory.
	PromptDir() (string, error)

	// VideoDir returns (and creates) the video directory.
	VideoDir() (string, error)

	// PublicPath converts an absolute path under the root into its
	// /storage/... form.
	PublicPath(absPath string) (string, error)

	// Resolve maps a client-supplied /storage/... path back to an absolute
	// path, rejecting traversal outside the root before any file access.
	Resolve(publicPath string) (string, error)

	// Exists reports whether the artifact behind a public path is still on disk.
	Exists(publicPath string) bool

	// FindByJobID locates a subtitle file named <jobID>.<ext> anywhere under
	// the subtitle tree.
	FindByJobID(jobID string) (string, error)
}

// SubtitleCache is the response cache guarding against duplicate extraction
// work. Get re-checks artifact existence and drops stale entries; Put is
// write-through to durable storage.
type SubtitleCache interface {
	Get(req *vo.SubtitleRequest) *entity.CacheEntry
	Put(req *vo.SubtitleRequest, e *entity.CacheEntry)
}
