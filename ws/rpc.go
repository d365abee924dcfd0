// Package ws exposes the capture envelope and management namespaces as
// JSON-RPC 2.0 over WebSocket. Each connection that forwards page
// signals owns one capture session; management clients share the same
// surface for transcripts, saved meetings, and settings.
package ws

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/captrail/server/capture"
	"github.com/captrail/server/export"
	"github.com/captrail/server/logger"
	"github.com/captrail/server/meeting"
	"github.com/captrail/server/rpc"
	"github.com/captrail/server/settings"
	"github.com/captrail/server/watch"
)

// RPCHandler handles JSON-RPC 2.0 over WebSocket.
type RPCHandler struct {
	token      string
	version    string
	devMode    bool
	captureCfg capture.Config

	meetings          *meeting.Store
	settingsStore     *settings.Store
	downloader        *export.Downloader
	settingsWatcher   *watch.SettingsWatcher
	transcriptWatcher *watch.TranscriptWatcher

	sessMu   sync.RWMutex
	sessions []*rpcConnState // live connections, oldest first
}

func NewRPCHandler(token, version string, devMode bool, meetings *meeting.Store, settingsStore *settings.Store, downloader *export.Downloader, captureCfg capture.Config) *RPCHandler {
	h := &RPCHandler{
		token:             token,
		version:           version,
		devMode:           devMode,
		captureCfg:        captureCfg,
		meetings:          meetings,
		settingsStore:     settingsStore,
		downloader:        downloader,
		settingsWatcher:   watch.NewSettingsWatcher(settingsStore),
		transcriptWatcher: watch.NewTranscriptWatcher(),
	}

	// Live settings flow into every active capture session so the
	// leave trigger attaches/detaches without a reconnect.
	h.settingsWatcher.SetOnChange(h.broadcastSettings)

	h.settingsWatcher.Start()
	h.transcriptWatcher.Start()
	return h
}

// Stop stops the RPC handler and releases resources.
func (h *RPCHandler) Stop() {
	h.settingsWatcher.Stop()
	h.transcriptWatcher.Stop()
}

func (h *RPCHandler) broadcastSettings(s settings.Settings) {
	h.sessMu.RLock()
	defer h.sessMu.RUnlock()
	for _, state := range h.sessions {
		if ctrl := state.getController(); ctrl != nil {
			ctrl.Dispatch(capture.SettingsChanged{Settings: s})
		}
	}
}

func (h *RPCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: h.devMode,
	})
	if err != nil {
		slog.Error("failed to accept websocket", "error", err)
		return
	}

	h.handleConnection(r.Context(), conn)
}

func (h *RPCHandler) handleConnection(ctx context.Context, wsConn *websocket.Conn) {
	stream := newWebSocketStream(wsConn)
	log, connID := logger.NewConnLogger()
	h.HandleStream(ctx, stream, connID, log)
}

func (h *RPCHandler) HandleStream(ctx context.Context, stream jsonrpc2.ObjectStream, connID string, log *slog.Logger) {
	log.Info("new connection")

	state := &rpcConnState{
		connID:        connID,
		log:           log,
		subscriptions: make(map[string]watch.Watcher),
	}

	handler := &rpcMethodHandler{
		RPCHandler: h,
		state:      state,
		log:        log,
	}

	rpcConn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.AsyncHandler(handler))
	state.setConn(rpcConn)
	h.track(state)

	<-rpcConn.DisconnectNotify()

	h.untrack(state)
	state.cleanup()
	log.Info("connection closed")
}

func (h *RPCHandler) track(state *rpcConnState) {
	h.sessMu.Lock()
	h.sessions = append(h.sessions, state)
	h.sessMu.Unlock()
}

func (h *RPCHandler) untrack(state *rpcConnState) {
	h.sessMu.Lock()
	defer h.sessMu.Unlock()
	for i, s := range h.sessions {
		if s == state {
			h.sessions = append(h.sessions[:i], h.sessions[i+1:]...)
			return
		}
	}
}

// activeController resolves "the capture session" for envelope methods:
// the requester's own session when it has one, otherwise the most
// recently started session on any connection. Management clients rely
// on the fallback because the capture session lives on the extension's
// connection, not theirs.
func (h *RPCHandler) activeController(requester *rpcConnState) *capture.Controller {
	if ctrl := requester.getController(); ctrl != nil {
		return ctrl
	}

	h.sessMu.RLock()
	defer h.sessMu.RUnlock()
	for i := len(h.sessions) - 1; i >= 0; i-- {
		if ctrl := h.sessions[i].getController(); ctrl != nil {
			return ctrl
		}
	}
	return nil
}

// rpcConnState tracks per-connection state.
type rpcConnState struct {
	mu            sync.Mutex
	connID        string
	conn          *jsonrpc2.Conn
	notifier      *JSONRPCNotifier
	log           *slog.Logger
	controller    *capture.Controller
	ctrlCancel    context.CancelFunc
	subscriptions map[string]watch.Watcher // subID → watcher for cleanup
}

func (s *rpcConnState) setConn(conn *jsonrpc2.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.notifier = NewJSONRPCNotifier(conn)
	s.mu.Unlock()
}

func (s *rpcConnState) getNotifier() watch.Notifier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notifier
}

func (s *rpcConnState) getController() *capture.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller
}

// ensureController lazily starts the capture session the first time a
// connection forwards a page signal. The session's context is bound to
// the connection, so its timers and readiness retries die with it.
func (s *rpcConnState) ensureController(h *RPCHandler) *capture.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.controller != nil {
		return s.controller
	}

	notifier := &captureNotifier{
		conn:    s.conn,
		connID:  s.connID,
		log:     s.log,
		watcher: h.transcriptWatcher,
	}

	ctx, cancel := context.WithCancel(context.Background())
	ctrl := capture.New(s.log, h.meetings, h.settingsStore.Get(), notifier, h.captureCfg)
	go ctrl.Run(ctx)

	s.controller = ctrl
	s.ctrlCancel = cancel
	return ctrl
}

func (s *rpcConnState) trackSubscription(id string, watcher watch.Watcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[id] = watcher
}

func (s *rpcConnState) untrackSubscription(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subscriptions, id)
}

func (s *rpcConnState) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, watcher := range s.subscriptions {
		watcher.Unsubscribe(id)
	}
	s.subscriptions = nil

	if s.ctrlCancel != nil {
		s.ctrlCancel()
		s.ctrlCancel = nil
		s.controller = nil
	}
}

type rpcMethodHandler struct {
	*RPCHandler
	state         *rpcConnState
	log           *slog.Logger
	authenticated bool
	authMu        sync.Mutex
}

func (h *rpcMethodHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	h.log.Debug("received request", "method", req.Method, "notif", req.Notif)

	// Auth must be the first request
	if !h.isAuthenticated() {
		if req.Method != "auth" {
			h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidRequest, "first request must be auth")
			conn.Close()
			return
		}
		h.handleAuth(ctx, conn, req)
		return
	}

	switch req.Method {
	// Capture envelope
	case "return_transcript":
		h.handleReturnTranscript(ctx, conn, req)
	case "store_current_captions":
		h.handleStoreCurrentCaptions(ctx, conn, req)
	case "download_captions":
		h.handleDownloadCaptions(ctx, conn, req)
	case "save_captions":
		h.handleSaveCaptions(ctx, conn, req)
	case "leave_button_save_captions":
		h.handleLeaveSave(ctx, conn, req)

	// Page signals (notifications from the capture client)
	case "page.mutation":
		h.handlePageMutation(req)
	case "page.visibility":
		h.handlePageVisibility(req)
	case "page.pointer":
		h.handlePagePointer(req)
	case "page.leave_clicked":
		h.handleLeaveSave(ctx, conn, req)

	// Transcript watch
	case "transcript.subscribe":
		h.handleTranscriptSubscribe(ctx, conn, req)
	case "transcript.unsubscribe":
		h.handleWatcherUnsubscribe(ctx, conn, req, h.transcriptWatcher, "transcript")

	// Settings namespace
	case "settings.get":
		h.handleSettingsGet(ctx, conn, req)
	case "settings.update":
		h.handleSettingsUpdate(ctx, conn, req)
	case "settings.subscribe":
		h.handleSettingsSubscribe(ctx, conn, req)
	case "settings.unsubscribe":
		h.handleWatcherUnsubscribe(ctx, conn, req, h.settingsWatcher, "settings")

	// Meeting namespace
	case "meeting.list":
		h.handleMeetingList(ctx, conn, req)
	case "meeting.get":
		h.handleMeetingGet(ctx, conn, req)
	case "meeting.delete":
		h.handleMeetingDelete(ctx, conn, req)
	case "meeting.export":
		h.handleMeetingExport(ctx, conn, req)

	default:
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeMethodNotFound, "method not found: "+req.Method)
	}
}

func (h *rpcMethodHandler) isAuthenticated() bool {
	h.authMu.Lock()
	defer h.authMu.Unlock()
	return h.authenticated
}

func (h *rpcMethodHandler) setAuthenticated() {
	h.authMu.Lock()
	h.authenticated = true
	h.authMu.Unlock()
}

func (h *rpcMethodHandler) handleAuth(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params rpc.AuthParams
	if err := unmarshalParams(req, &params); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		conn.Close()
		return
	}

	if subtle.ConstantTimeCompare([]byte(params.Token), []byte(h.token)) != 1 {
		h.log.Warn("invalid auth token")
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidRequest, "invalid token")
		conn.Close()
		return
	}

	h.setAuthenticated()
	h.log.Info("authenticated")

	if err := conn.Reply(ctx, req.ID, rpc.AuthResult{Version: h.version}); err != nil {
		h.log.Error("failed to send auth response", "error", err)
	}
}

func (h *rpcMethodHandler) replyError(ctx context.Context, conn *jsonrpc2.Conn, id jsonrpc2.ID, code int64, message string) {
	err := &jsonrpc2.Error{
		Code:    code,
		Message: message,
	}
	if replyErr := conn.ReplyWithError(ctx, id, err); replyErr != nil {
		h.log.Error("failed to send error response", "error", replyErr)
	}
}

func unmarshalParams(req *jsonrpc2.Request, v interface{}) error {
	if req.Params == nil {
		return errors.New("params required")
	}
	return json.Unmarshal(*req.Params, v)
}

func (h *rpcMethodHandler) handleWatcherUnsubscribe(
	ctx context.Context,
	conn *jsonrpc2.Conn,
	req *jsonrpc2.Request,
	watcher watch.Watcher,
	logName string,
) {
	var params rpc.UnsubscribeParams
	if err := unmarshalParams(req, &params); err != nil {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}
	if params.ID == "" {
		h.replyError(ctx, conn, req.ID, jsonrpc2.CodeInvalidParams, "id is required")
		return
	}

	watcher.Unsubscribe(params.ID)
	h.state.untrackSubscription(params.ID)
	h.log.Debug("unsubscribed", "watcher", logName, "watchId", params.ID)

	if err := conn.Reply(ctx, req.ID, struct{}{}); err != nil {
		h.log.Error("failed to send "+logName+" unsubscribe response", "error", err)
	}
}

// webSocketStream adapts coder/websocket to jsonrpc2.ObjectStream.
type webSocketStream struct {
	conn *websocket.Conn
	mu   sync.Mutex // protects writes
}

func newWebSocketStream(conn *websocket.Conn) *webSocketStream {
	return &webSocketStream{conn: conn}
}

func (s *webSocketStream) ReadObject(v interface{}) error {
	_, data, err := s.conn.Read(context.Background())
	if err != nil {
		// Treat normal close frames as EOF so jsonrpc2 shuts down gracefully
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			return io.EOF
		}
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *webSocketStream) WriteObject(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Write(context.Background(), websocket.MessageText, data)
}

func (s *webSocketStream) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}

// Ensure webSocketStream implements ObjectStream
var _ jsonrpc2.ObjectStream = (*webSocketStream)(nil)
