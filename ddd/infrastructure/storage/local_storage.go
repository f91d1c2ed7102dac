package storage

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"subtitle-hub/pkg/config"
	"subtitle-hub/pkg/errno"
)

// PublicPrefix is the externally visible prefix for all artifact paths.
const PublicPrefix = "/storage/"

// LocalStorage implements gateway.StorageGateway on the local filesystem:
// format- and kind-named subdirectories under one root, public paths under
// /storage/.
type LocalStorage struct {
	root            string
	subtitleDirName string
	promptDirName   string
	videoDirName    string
}

func NewLocalStorage(cfg config.StorageConfig) (*LocalStorage, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, err
	}
	s := &LocalStorage{
		root:            root,
		subtitleDirName: cfg.SubtitleDirName,
		promptDirName:   cfg.PromptDirName,
		videoDirName:    cfg.VideoDirName,
	}
	// 启动时预创建各目录
	for _, dir := range []string{s.subtitleRoot(), filepath.Join(root, cfg.PromptDirName), filepath.Join(root, cfg.VideoDirName)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *LocalStorage) Root() string {
	return s.root
}

func (s *LocalStorage) subtitleRoot() string {
	return filepath.Join(s.root, s.subtitleDirName)
}

// SubtitleDir returns (and creates) the per-format subtitle subdirectory.
func (s *LocalStorage) SubtitleDir(format string) (string, error) {
	dir := filepath.Join(s.subtitleRoot(), strings.ToLower(format))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// PromptDir returns (and creates) the prompt directory.
func (s *LocalStorage) PromptDir() (string, error) {
	dir := filepath.Join(s.root, s.promptDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// VideoDir returns (and creates) the video directory.
func (s *LocalStorage) VideoDir() (string, error) {
	dir := filepath.Join(s.root, s.videoDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// PublicPath converts an absolute path under the root into /storage/... form.
func (s *LocalStorage) PublicPath(absPath string) (string, error) {
	rel, err := filepath.Rel(s.root, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", errno.ErrPathOutsideRoot
	}
	return PublicPrefix + filepath.ToSlash(rel), nil
}

// Resolve maps a client-supplied /storage/... path back to an absolute path.
// Traversal outside the root is rejected before any file access.
func (s *LocalStorage) Resolve(publicPath string) (string, error) {
	if !strings.HasPrefix(publicPath, PublicPrefix) {
		return "", errno.ErrBadStoragePath
	}
	rel := strings.TrimPrefix(publicPath, PublicPrefix)
	candidate := filepath.Join(s.root, filepath.FromSlash(rel))
	candidate = filepath.Clean(candidate)
	if candidate != s.root && !strings.HasPrefix(candidate, s.root+string(filepath.Separator)) {
		return "", errno.ErrPathOutsideRoot
	}
	if _, err := os.Stat(candidate); err != nil {
		return "", errno.ErrNotFound.WithMessagef("subtitle file does not exist: %s", publicPath)
	}
	return candidate, nil
}

// Exists reports whether the artifact behind a public path is still on disk.
func (s *LocalStorage) Exists(publicPath string) bool {
	if !strings.HasPrefix(publicPath, PublicPrefix) {
		return false
	}
	rel := strings.TrimPrefix(publicPath, PublicPrefix)
	candidate := filepath.Clean(filepath.Join(s.root, filepath.FromSlash(rel)))
	if candidate != s.root && !strings.HasPrefix(candidate, s.root+string(filepath.Separator)) {
		return false
	}
	_, err := os.Stat(candidate)
	return err == nil
}

// FindByJobID locates a subtitle file named <jobID>.<ext> anywhere under the
// subtitle tree. Files live in per-format subdirectories, so the walk is
// recursive.
func (s *LocalStorage) FindByJobID(jobID string) (string, error) {
	var found string
	err := filepath.WalkDir(s.subtitleRoot(), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.TrimSuffix(name, filepath.Ext(name)) == jobID {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", errno.ErrNotFound.WithMessagef("no subtitle file for job %s", jobID)
	}
	return found, nil
}
