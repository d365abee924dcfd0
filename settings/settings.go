// Package settings provides runtime-mutable capture settings.
package settings

import (
	"fmt"

	"github.com/captrail/server/export"
)

type Settings struct {
	// LeaveTrigger enables the one-shot save trigger on the meeting
	// leave control.
	LeaveTrigger bool `json:"leaveTrigger"`
	// NameStyle selects speaker-name compaction for exports.
	NameStyle export.NameStyle `json:"nameStyle"`
}

func Default() Settings {
	return Settings{
		LeaveTrigger: false,
		NameStyle:    export.NameStyleFirst,
	}
}

func (s Settings) Validate() error {
	if !s.NameStyle.IsValid() {
		return fmt.Errorf("invalid name style: %q", s.NameStyle)
	}
	return nil
}

// OnChangeListener receives settings updates, whether they came through
// Update or from an external edit of the settings file.
type OnChangeListener interface {
	OnSettingsChange(Settings)
}
