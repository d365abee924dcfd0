package ws

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/captrail/server/meeting"
	"github.com/captrail/server/rpc"
)

func (h *rpcMethodHandler) handleMeetingList(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	meetings, err := h.meetings.List()
	if err != nil {
		h.log.Warn("failed to list meetings", "error", err)
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInternalError, "failed to list meetings")
		return
	}

	if err := conn.Reply(ctx, req.ID, rpc.MeetingListResult{Meetings: meetings}); err != nil {
		h.log.Error("failed to send meeting list response", "error", err)
	}
}

func (h *rpcMethodHandler) handleMeetingGet(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params rpc.MeetingGetParams
	if err := unmarshalParams(req, &params); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}

	record, found, err := h.meetings.Get(params.ID)
	if err != nil {
		h.log.Warn("failed to get meeting", "id", params.ID, "error", err)
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInternalError, "failed to get meeting")
		return
	}
	if !found {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "meeting not found")
		return
	}

	if err := conn.Reply(ctx, req.ID, record); err != nil {
		h.log.Error("failed to send meeting response", "error", err)
	}
}

func (h *rpcMethodHandler) handleMeetingDelete(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params rpc.MeetingDeleteParams
	if err := unmarshalParams(req, &params); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}

	if err := h.meetings.Delete(params.ID); err != nil {
		if errors.Is(err, meeting.ErrMeetingNotFound) {
			h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "meeting not found")
		} else {
			h.log.Warn("failed to delete meeting", "id", params.ID, "error", err)
			h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInternalError, "failed to delete meeting")
		}
		return
	}

	if err := conn.Reply(ctx, req.ID, struct{}{}); err != nil {
		h.log.Error("failed to send meeting delete response", "error", err)
	}
}

func (h *rpcMethodHandler) handleMeetingExport(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params rpc.MeetingExportParams
	if err := unmarshalParams(req, &params); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}

	record, found, err := h.meetings.Get(params.ID)
	if err != nil {
		h.log.Warn("failed to get meeting", "id", params.ID, "error", err)
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInternalError, "failed to get meeting")
		return
	}
	if !found {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "meeting not found")
		return
	}

	style := h.settingsStore.Get().NameStyle
	path, err := h.downloader.Save(record.Transcripts, record.Title, record.Date, style)
	if err != nil {
		h.log.Warn("failed to export meeting", "id", params.ID, "error", err)
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInternalError, errExportFailed)
		return
	}

	result := rpc.DownloadResult{
		FileName: filepath.Base(path),
		Path:     path,
	}
	if err := conn.Reply(ctx, req.ID, result); err != nil {
		h.log.Error("failed to send meeting export response", "error", err)
	}
}
