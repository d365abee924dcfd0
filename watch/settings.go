package watch

import (
	"log/slog"
	"sync"

	"github.com/captrail/server/settings"
)

// SettingsWatcher notifies subscribers when settings are updated, either
// through the RPC surface or by an external edit of the settings file.
// Uses a channel-based async notification pattern to avoid blocking the
// settings store's mutex during network I/O.
type SettingsWatcher struct {
	*BaseWatcher
	store      *settings.Store
	eventCh    chan settings.Settings
	onChangeMu sync.RWMutex
	onChange   func(settings.Settings)
}

func NewSettingsWatcher(store *settings.Store) *SettingsWatcher {
	w := &SettingsWatcher{
		BaseWatcher: NewBaseWatcher("st"),
		store:       store,
		eventCh:     make(chan settings.Settings, 16),
	}
	store.SetOnChangeListener(w)
	return w
}

func (w *SettingsWatcher) Start() error {
	go w.eventLoop()
	slog.Info("SettingsWatcher started")
	return nil
}

func (w *SettingsWatcher) Stop() {
	w.Cancel()
	slog.Info("SettingsWatcher stopped")
}

func (w *SettingsWatcher) eventLoop() {
	for {
		select {
		case <-w.Context().Done():
			return
		case s := <-w.eventCh:
			w.notifyChange(s)
		}
	}
}

// SetOnChange sets a callback invoked on every settings change. The
// capture layer uses it to re-evaluate leave-trigger arming on live
// sessions.
func (w *SettingsWatcher) SetOnChange(fn func(settings.Settings)) {
	w.onChangeMu.Lock()
	defer w.onChangeMu.Unlock()
	w.onChange = fn
}

func (w *SettingsWatcher) notifyChange(s settings.Settings) {
	w.onChangeMu.RLock()
	onChange := w.onChange
	w.onChangeMu.RUnlock()
	if onChange != nil {
		onChange(s)
	}

	if !w.HasSubscriptions() {
		return
	}

	w.NotifyAll("settings.changed", func(sub *Subscription) any {
		return settingsChangedParams{
			ID:       sub.ID,
			Settings: s,
		}
	})

	slog.Debug("notified settings change")
}

// Subscribe registers a subscriber and returns the subscription ID along
// with the current settings.
func (w *SettingsWatcher) Subscribe(notifier Notifier) (string, settings.Settings) {
	id := w.GenerateID()
	w.AddSubscription(&Subscription{
		ID:       id,
		Notifier: notifier,
	})

	return id, w.store.Get()
}

type settingsChangedParams struct {
	ID       string            `json:"id"`
	Settings settings.Settings `json:"settings"`
}

// OnSettingsChange implements settings.OnChangeListener.
// Called from the settings store's notify path, so it must not block.
func (w *SettingsWatcher) OnSettingsChange(s settings.Settings) {
	if w.Context().Err() != nil {
		return
	}

	select {
	case w.eventCh <- s:
	default:
		slog.Warn("settings change event dropped (buffer full)")
	}
}
