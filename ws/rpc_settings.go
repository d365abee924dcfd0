package ws

import (
	"context"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/captrail/server/rpc"
)

func (h *rpcMethodHandler) handleSettingsGet(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	result := rpc.SettingsGetResult{Settings: h.settingsStore.Get()}
	if err := conn.Reply(ctx, req.ID, result); err != nil {
		h.log.Error("failed to send settings response", "error", err)
	}
}

func (h *rpcMethodHandler) handleSettingsUpdate(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params rpc.SettingsUpdateParams
	if err := unmarshalParams(req, &params); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}

	if err := h.settingsStore.Update(params.Settings); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, err.Error())
		return
	}

	if err := conn.Reply(ctx, req.ID, struct{}{}); err != nil {
		h.log.Error("failed to send settings update response", "error", err)
	}
}

func (h *rpcMethodHandler) handleSettingsSubscribe(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	notifier := h.state.getNotifier()
	id, current := h.settingsWatcher.Subscribe(notifier)
	h.state.trackSubscription(id, h.settingsWatcher)
	h.log.Debug("subscribed to settings", "watchId", id)

	result := rpc.SettingsSubscribeResult{
		ID:       id,
		Settings: current,
	}
	if err := conn.Reply(ctx, req.ID, result); err != nil {
		h.log.Error("failed to send settings subscribe response", "error", err)
	}
}
