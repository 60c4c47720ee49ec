package ui

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RoomListing is one row of the server's /api/rooms listing, rendered by
// the CLI's "rooms" subcommand. This is a separate rendering path from the
// live in-room ParticipantTable in table.go: it renders a REST response, not a
// locally-tracked session, so it reaches for go-pretty/v6 instead of
// lipgloss/table — the teacher's own go.mod already pulls in go-pretty/v6
// for exactly this kind of plain tabular report.
type RoomListing struct {
	RoomId           string
	ParticipantCount int
}

// RenderRoomsList prints every room the server currently knows about.
func RenderRoomsList(rooms []RoomListing) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatTitle

	t.AppendHeader(table.Row{"Room ID", "Participants"})
	for _, r := range rooms {
		t.AppendRow(table.Row{r.RoomId, r.ParticipantCount})
	}
	if len(rooms) == 0 {
		t.AppendRow(table.Row{"(no active rooms)", ""})
	}
	t.Render()
}
