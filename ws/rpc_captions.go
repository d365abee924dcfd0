package ws

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/captrail/server/capture"
	"github.com/captrail/server/export"
	"github.com/captrail/server/logger"
	"github.com/captrail/server/rpc"
	"github.com/captrail/server/transcript"
)

// User-facing error strings for the no-data cases; clients show these
// verbatim.
const (
	errNoCaptions     = "No captions were captured. Please, try again."
	errNothingToSave  = "No captions to save. Make sure captions are enabled."
	errNoLiveSession  = "No active meeting session."
	errExportFailed   = "Failed to export captions."
	errStorageFailure = "Failed to save captions."
)

// --- Page signals ---

func (h *rpcMethodHandler) handlePageMutation(req *jsonrpc2.Request) {
	var params rpc.PageMutationParams
	if err := unmarshalParams(req, &params); err != nil {
		h.log.Debug("invalid page.mutation params", "error", err)
		return
	}

	h.log.Debug("page mutation", "title", logger.Truncate(params.Title, 50), "bytes", len(params.HTML))
	h.state.ensureController(h.RPCHandler).Dispatch(capture.MutationBatch{
		HTML:  params.HTML,
		Title: params.Title,
	})
}

func (h *rpcMethodHandler) handlePageVisibility(req *jsonrpc2.Request) {
	var params rpc.PageVisibilityParams
	if err := unmarshalParams(req, &params); err != nil {
		h.log.Debug("invalid page.visibility params", "error", err)
		return
	}

	h.state.ensureController(h.RPCHandler).Dispatch(capture.VisibilityChanged{Hidden: params.Hidden})
}

func (h *rpcMethodHandler) handlePagePointer(req *jsonrpc2.Request) {
	var params rpc.PagePointerParams
	if err := unmarshalParams(req, &params); err != nil {
		h.log.Debug("invalid page.pointer params", "error", err)
		return
	}

	h.state.ensureController(h.RPCHandler).Dispatch(capture.PointerMoved{Y: params.Y})
}

// handleLeaveSave handles the armed leave-control trigger: persist and
// export immediately, before the page tears the session down. Both
// leave_button_save_captions and page.leave_clicked land here; the
// former may arrive as a request and then gets an acknowledgment.
func (h *rpcMethodHandler) handleLeaveSave(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	success := h.leaveSave(ctx)
	if req.Notif {
		return
	}
	if err := conn.Reply(ctx, req.ID, rpc.StoreResult{Success: success}); err != nil {
		h.log.Error("failed to send leave save response", "error", err)
	}
}

func (h *rpcMethodHandler) leaveSave(ctx context.Context) bool {
	ctrl := h.state.getController()
	if ctrl == nil {
		h.log.Warn("leave trigger fired without a capture session")
		return false
	}

	snap, err := ctrl.Store(ctx)
	if err != nil {
		h.log.Warn("leave-triggered save failed", "error", err)
		return false
	}

	style := h.settingsStore.Get().NameStyle
	path, err := h.downloader.Save(snap.Entries, snap.Title, snap.Date, style)
	if err != nil {
		h.log.Warn("leave-triggered export failed", "error", err)
		return false
	}
	h.log.Info("leave-triggered export written", "path", path)
	return true
}

// --- Envelope requests ---

func (h *rpcMethodHandler) handleReturnTranscript(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	ctrl := h.activeController(h.state)
	if ctrl == nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidRequest, errNoCaptions)
		return
	}

	snap, err := ctrl.Snapshot(ctx)
	if err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInternalError, errNoLiveSession)
		return
	}
	if !snap.Capturing || len(snap.Entries) == 0 {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidRequest, errNoCaptions)
		return
	}

	result := rpc.TranscriptResult{
		TranscriptArray: snap.Entries,
		MeetingTitle:    snap.Title,
		MeetingDate:     snap.Date,
		MeetingDetails:  snap.Details,
	}
	if err := conn.Reply(ctx, req.ID, result); err != nil {
		h.log.Error("failed to send transcript response", "error", err)
	}
}

func (h *rpcMethodHandler) handleStoreCurrentCaptions(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	ctrl := h.activeController(h.state)
	if ctrl == nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidRequest, errNothingToSave)
		return
	}

	if _, err := ctrl.Store(ctx); err != nil {
		if errors.Is(err, capture.ErrNoCaptions) {
			h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidRequest, errNothingToSave)
		} else {
			h.log.Warn("store request failed", "error", err)
			h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInternalError, errStorageFailure)
		}
		return
	}

	if err := conn.Reply(ctx, req.ID, rpc.StoreResult{Success: true}); err != nil {
		h.log.Error("failed to send store response", "error", err)
	}
}

func (h *rpcMethodHandler) handleDownloadCaptions(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params rpc.DownloadParams
	if err := unmarshalParams(req, &params); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}

	entries := params.TranscriptArray
	title, date := params.MeetingTitle, params.MeetingDate
	if len(entries) == 0 {
		ctrl := h.activeController(h.state)
		if ctrl == nil {
			h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidRequest, errNoCaptions)
			return
		}
		snap, err := ctrl.Snapshot(ctx)
		if err != nil || len(snap.Entries) == 0 {
			h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidRequest, errNoCaptions)
			return
		}
		entries, title, date = snap.Entries, snap.Title, snap.Date
	}

	h.replyDownload(ctx, conn, req, entries, title, date)
}

// handleSaveCaptions is the one-step save: pull the live transcript,
// persist it, and write the export file.
func (h *rpcMethodHandler) handleSaveCaptions(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	ctrl := h.activeController(h.state)
	if ctrl == nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidRequest, errNoCaptions)
		return
	}

	snap, err := ctrl.Store(ctx)
	if err != nil {
		if errors.Is(err, capture.ErrNoCaptions) {
			h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidRequest, errNoCaptions)
		} else {
			h.log.Warn("save request failed", "error", err)
			h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInternalError, errStorageFailure)
		}
		return
	}

	h.replyDownload(ctx, conn, req, snap.Entries, snap.Title, snap.Date)
}

func (h *rpcMethodHandler) replyDownload(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, entries []transcript.Entry, title, date string) {
	style := h.settingsStore.Get().NameStyle
	path, err := h.downloader.Save(entries, title, date, style)
	if err != nil {
		if errors.Is(err, export.ErrNoCaptions) {
			h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidRequest, errNoCaptions)
		} else {
			h.log.Warn("export failed", "error", err)
			h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInternalError, errExportFailed)
		}
		return
	}

	result := rpc.DownloadResult{
		FileName: filepath.Base(path),
		Path:     path,
	}
	if err := conn.Reply(ctx, req.ID, result); err != nil {
		h.log.Error("failed to send download response", "error", err)
	}
}

// --- Transcript watch ---

func (h *rpcMethodHandler) handleTranscriptSubscribe(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	id := h.transcriptWatcher.Subscribe(h.state.getNotifier())
	h.state.trackSubscription(id, h.transcriptWatcher)
	h.log.Debug("subscribed to transcript", "watchId", id)

	if err := conn.Reply(ctx, req.ID, rpc.TranscriptSubscribeResult{ID: id}); err != nil {
		h.log.Error("failed to send transcript subscribe response", "error", err)
	}
}
