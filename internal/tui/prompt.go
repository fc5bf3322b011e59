package tui

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/Hakukano/FLP-Abyss-Player-sub000/internal/config"
)

// ErrAborted means the user interrupted a prompt.
var ErrAborted = errors.New("prompt aborted")

// Prompter asks the user for one value.
type Prompter interface {
	Select(message string, options []string) (string, error)
	Input(message, def string) (string, error)
}

// SurveyPrompter prompts on the terminal.
type SurveyPrompter struct {
	Opts []survey.AskOpt
}

func (p SurveyPrompter) Select(message string, options []string) (string, error) {
	var answer string
	err := survey.AskOne(&survey.Select{
		Message: message,
		Options: options,
	}, &answer, p.Opts...)
	return answer, surveyErr(err)
}

func (p SurveyPrompter) Input(message, def string) (string, error) {
	var answer string
	err := survey.AskOne(&survey.Input{
		Message: message,
		Default: def,
	}, &answer, append(p.Opts, survey.WithValidator(survey.Required))...)
	return answer, surveyErr(err)
}

func surveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}

// Prompt fills in what cfg lacks to be played: the media kind, the root
// directory, and for videos the player. Fields already set are left alone.
func Prompt(cfg *config.Config, p Prompter) error {
	if cfg.Playlist().IsPresent() {
		return nil
	}

	if cfg.MediaKind == config.MediaKindUnset {
		answer, err := p.Select("Media type", []string{
			config.MediaKindImage.String(),
			config.MediaKindVideo.String(),
			config.MediaKindServer.String(),
		})
		if err != nil {
			return err
		}
		if cfg.MediaKind, err = config.ParseMediaKind(answer); err != nil {
			return err
		}
	}

	if cfg.RootPath == "" {
		answer, err := p.Input("Root directory", ".")
		if err != nil {
			return err
		}
		cfg.RootPath = answer
	}

	if cfg.MediaKind != config.MediaKindVideo {
		return nil
	}

	if cfg.VideoBackend == config.VideoBackendUnset {
		answer, err := p.Select("Video player", []string{
			config.VideoBackendNative.String(),
			config.VideoBackendExternal.String(),
		})
		if err != nil {
			return err
		}
		if cfg.VideoBackend, err = config.ParseVideoBackend(answer); err != nil {
			return err
		}
	}

	if cfg.VideoBackend == config.VideoBackendExternal && !cfg.VideoPlayerPath().IsPresent() {
		answer, err := p.Input(fmt.Sprintf("Path to %s", cfg.VideoBackend), "vlc")
		if err != nil {
			return err
		}
		cfg.VideoBackendPath = answer
	}
	return nil
}
