package mcp

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/captrail/server/export"
	"github.com/captrail/server/meeting"
)

// meetingSummary is the list shape: everything but the transcript.
type meetingSummary struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Details   string `json:"details,omitempty"`
	Entries   int    `json:"entries"`
}

func (s *Server) handleMeetingList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := s.meetings.List()
	if err != nil {
		return InternalError(err), nil
	}

	summaries := make([]meetingSummary, 0, len(records))
	for _, r := range records {
		summaries = append(summaries, meetingSummary{
			ID:        r.ID,
			Title:     r.Title,
			Date:      r.Date,
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
			Details:   r.Details,
			Entries:   len(r.Transcripts),
		})
	}
	return jsonResult(summaries)
}

func (s *Server) handleMeetingGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	record, result := s.requireMeeting(req)
	if result != nil {
		return result, nil
	}
	return jsonResult(record)
}

func (s *Server) handleMeetingTranscript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	record, result := s.requireMeeting(req)
	if result != nil {
		return result, nil
	}

	style := s.settings.Get().NameStyle
	return mcp.NewToolResultText(export.Format(record.Transcripts, record.Date, style)), nil
}

func (s *Server) handleMeetingExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	record, result := s.requireMeeting(req)
	if result != nil {
		return result, nil
	}

	style := s.settings.Get().NameStyle
	path, err := s.downloader.Save(record.Transcripts, record.Title, record.Date, style)
	if err != nil {
		return InternalError(err), nil
	}
	return mcp.NewToolResultText(`{"path":` + strconv.Quote(path) + `}`), nil
}

// requireMeeting parses the meeting_id argument and loads the record.
// The second return value is non-nil when the call should end with it.
func (s *Server) requireMeeting(req mcp.CallToolRequest) (meeting.Record, *mcp.CallToolResult) {
	raw, err := req.RequireString("meeting_id")
	if err != nil {
		return meeting.Record{}, ValidationError("meeting_id is required")
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return meeting.Record{}, ValidationError("meeting_id must be a number")
	}

	record, found, err := s.meetings.Get(id)
	if err != nil {
		return meeting.Record{}, InternalError(err)
	}
	if !found {
		return meeting.Record{}, NotFound("meeting", raw)
	}
	return record, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}
