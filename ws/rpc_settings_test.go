package ws

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/captrail/server/export"
	"github.com/captrail/server/rpc"
	"github.com/captrail/server/settings"
)

func TestRPC_SettingsGet_Defaults(t *testing.T) {
	env := newAuthedEnv(t)

	resp := env.call("settings.get", nil)
	if resp.Error != nil {
		t.Fatalf("get failed: %s", resp.Error.Message)
	}

	var result rpc.SettingsGetResult
	json.Unmarshal(resp.Result, &result)
	if result.Settings != settings.Default() {
		t.Errorf("settings = %+v, want defaults", result.Settings)
	}
}

func TestRPC_SettingsUpdate(t *testing.T) {
	env := newAuthedEnv(t)

	want := settings.Settings{LeaveTrigger: true, NameStyle: export.NameStyleFull}
	resp := env.call("settings.update", rpc.SettingsUpdateParams{Settings: want})
	if resp.Error != nil {
		t.Fatalf("update failed: %s", resp.Error.Message)
	}

	if got := env.settings.Get(); got != want {
		t.Errorf("stored settings = %+v, want %+v", got, want)
	}
}

func TestRPC_SettingsUpdate_Invalid(t *testing.T) {
	env := newAuthedEnv(t)

	resp := env.call("settings.update", rpc.SettingsUpdateParams{
		Settings: settings.Settings{NameStyle: "shouty"},
	})
	if resp.Error == nil || !strings.Contains(resp.Error.Message, "invalid name style") {
		t.Errorf("expected validation error, got %+v", resp.Error)
	}
}

func TestRPC_SettingsSubscribe_NotifiedOnUpdate(t *testing.T) {
	env := newAuthedEnv(t)

	resp := env.call("settings.subscribe", nil)
	if resp.Error != nil {
		t.Fatalf("subscribe failed: %s", resp.Error.Message)
	}
	var sub rpc.SettingsSubscribeResult
	json.Unmarshal(resp.Result, &sub)
	if sub.ID == "" {
		t.Fatal("expected subscription id")
	}
	if sub.Settings != settings.Default() {
		t.Errorf("initial settings = %+v, want defaults", sub.Settings)
	}

	want := settings.Settings{LeaveTrigger: true, NameStyle: export.NameStyleFirst}
	update := env.call("settings.update", rpc.SettingsUpdateParams{Settings: want})
	if update.Error != nil {
		t.Fatalf("update failed: %s", update.Error.Message)
	}

	note := env.waitNotification("settings.changed")
	var params struct {
		ID       string            `json:"id"`
		Settings settings.Settings `json:"settings"`
	}
	if err := json.Unmarshal(note.Params, &params); err != nil {
		t.Fatalf("unmarshal notification: %v", err)
	}
	if params.ID != sub.ID || params.Settings != want {
		t.Errorf("params = %+v", params)
	}
}

func TestRPC_SettingsUnsubscribe_RequiresID(t *testing.T) {
	env := newAuthedEnv(t)

	resp := env.call("settings.unsubscribe", rpc.UnsubscribeParams{})
	if resp.Error == nil || !strings.Contains(resp.Error.Message, "id is required") {
		t.Errorf("expected id-required error, got %+v", resp.Error)
	}
}
