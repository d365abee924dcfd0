// Package mcp exposes saved meetings to AI agents as a stdio MCP
// server, so transcripts can be summarized or searched without going
// through the WebSocket surface.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/captrail/server/export"
	"github.com/captrail/server/meeting"
	"github.com/captrail/server/settings"
)

type Server struct {
	meetings   *meeting.Store
	downloader *export.Downloader
	settings   *settings.Store
}

func NewServer(meetings *meeting.Store, downloader *export.Downloader, settingsStore *settings.Store) *Server {
	return &Server{
		meetings:   meetings,
		downloader: downloader,
		settings:   settingsStore,
	}
}

// Run serves MCP over stdio until stdin closes.
func (s *Server) Run(version string) error {
	srv := server.NewMCPServer("captrail", version)

	srv.AddTool(mcp.NewTool("meeting_list",
		mcp.WithDescription("List saved meetings, most recent first. Returns id, title, date, start/end times."),
	), s.handleMeetingList)

	srv.AddTool(mcp.NewTool("meeting_get",
		mcp.WithDescription("Get one saved meeting by id, including its full transcript."),
		mcp.WithString("meeting_id", mcp.Required(), mcp.Description("Meeting id from meeting_list")),
	), s.handleMeetingGet)

	srv.AddTool(mcp.NewTool("meeting_transcript",
		mcp.WithDescription("Get a saved meeting's transcript as formatted text, one line per utterance."),
		mcp.WithString("meeting_id", mcp.Required(), mcp.Description("Meeting id from meeting_list")),
	), s.handleMeetingTranscript)

	srv.AddTool(mcp.NewTool("meeting_export",
		mcp.WithDescription("Write a saved meeting's transcript to a text file in the exports directory and return its path."),
		mcp.WithString("meeting_id", mcp.Required(), mcp.Description("Meeting id from meeting_list")),
	), s.handleMeetingExport)

	return server.ServeStdio(srv)
}
