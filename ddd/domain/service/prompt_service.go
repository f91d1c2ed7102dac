package service

import (
	"os"
	"path/filepath"
	"strings"

	"subtitle-hub/ddd/domain/gateway"
	"subtitle-hub/ddd/domain/vo"
	"subtitle-hub/pkg/config"
	"subtitle-hub/pkg/errno"
)

// PromptService renders note-taking prompts from subtitle text and persists
// them next to the other artifacts.
type PromptService struct {
	cfg     config.PromptConfig
	storage gateway.StorageGateway
}

func NewPromptService(cfg config.PromptConfig, storage gateway.StorageGateway) *PromptService {
	return &PromptService{cfg: cfg, storage: storage}
}

// BuildPrompt substitutes the speaker, topic and subtitle body into the
// template. Missing fields fall back to configured defaults; extra
// instructions are appended after the rendered body.
func (p *PromptService) BuildPrompt(subtitleText string, spec *vo.PromptSpec) string {
	template := p.cfg.DefaultTemplate
	speaker := p.cfg.DefaultSpeaker
	topic := p.cfg.DefaultTopic

	if spec != nil {
		if strings.TrimSpace(spec.Template) != "" {
			template = spec.Template
		}
		if strings.TrimSpace(spec.Speaker) != "" {
			speaker = spec.Speaker
		}
		if strings.TrimSpace(spec.Topic) != "" {
			topic = spec.Topic
		}
	}

	rendered := strings.NewReplacer(
		"{speaker}", speaker,
		"{topic}", topic,
		"{subtitle_body}", subtitleText,
	).Replace(template)

	if spec != nil && strings.TrimSpace(spec.ExtraInstructions) != "" {
		rendered += "\n\n额外提示：\n" + strings.TrimSpace(spec.ExtraInstructions)
	}
	return rendered
}

// SavePrompt writes the prompt as <jobID>.txt in the prompt directory and
// returns the absolute path.
func (p *PromptService) SavePrompt(jobID, promptText string) (string, error) {
	dir, err := p.storage.PromptDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, jobID+".txt")
	if err := os.WriteFile(path, []byte(promptText), 0o644); err != nil {
		return "", errno.ErrInternalServer.WithMessagef("failed to save prompt file: %v", err)
	}
	return path, nil
}
