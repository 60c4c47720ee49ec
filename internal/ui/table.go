package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"
)

/* -------------------------------------------------------------------------- */
/*                                   Helpers                                  */
/* -------------------------------------------------------------------------- */

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

func tableStyle() *table.Table {
	return table.New().
		Wrap(true).
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})
}

func tableWidth(headers []string, rows [][]string) int {
	colWidths := make([]int, len(headers))

	for i, h := range headers {
		colWidths[i] = lipgloss.Width(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > colWidths[i] {
				colWidths[i] = w
			}
		}
	}

	width := 0
	for _, w := range colWidths {
		width += w
	}

	return width + (len(headers) - 1) + (len(headers) * 2) + 2
}

func boxContentWidth(box lipgloss.Style, content string) int {
	lines := strings.Split(content, "\n")

	max := 0
	for _, line := range lines {
		w := lipgloss.Width(line)
		if w > max {
			max = w
		}
	}

	return max + box.GetHorizontalFrameSize()
}

/* -------------------------------------------------------------------------- */
/*                              Participant Table                             */
/* -------------------------------------------------------------------------- */

// ParticipantRow is one row of the live roster the CLI shows for the room
// currently joined.
type ParticipantRow struct {
	Nickname string
	UserId   string
	Tracks   string // e.g. "camera, screen-share"
	Joined   string // formatted duration since join, via internal/utils.FormatDuration
}

type ParticipantTable struct {
	rows []ParticipantRow
}

func NewParticipantTable(rows []ParticipantRow) *ParticipantTable {
	return &ParticipantTable{rows: rows}
}

func (t *ParticipantTable) View() string {
	if len(t.rows) == 0 {
		return MutedStyle.Render("No participants yet")
	}

	headers := []string{"Nickname", "User ID", "Tracks", "Joined"}
	rows := make([][]string, 0, len(t.rows))
	for _, r := range t.rows {
		rows = append(rows, []string{r.Nickname, r.UserId, r.Tracks, r.Joined})
	}

	tbl := tableStyle().Headers(headers...).Rows(rows...)
	if w := tableWidth(headers, rows); w > terminalWidth() {
		tbl = tbl.Width(terminalWidth())
	}

	return tbl.Render()
}

func RenderParticipantTable(rows []ParticipantRow) {
	fmt.Println(NewParticipantTable(rows).View())
}

/* -------------------------------------------------------------------------- */
/*                               Session Summary                              */
/* -------------------------------------------------------------------------- */

type SessionSummary struct {
	RoomId       string
	Participants int
	Duration     string
	ChatMessages int
}

func (s *SessionSummary) View() string {
	headers := []string{"Metric", "Value"}
	rows := [][]string{
		{"Room", s.RoomId},
		{"Participants", fmt.Sprintf("%d", s.Participants)},
		{"Duration", s.Duration},
		{"Chat Messages", fmt.Sprintf("%d", s.ChatMessages)},
	}

	tbl := tableStyle().Headers(headers...).Rows(rows...)
	if w := tableWidth(headers, rows); w > terminalWidth() {
		tbl = tbl.Width(terminalWidth())
	}
	return tbl.Render()
}

func RenderSessionSummary(s SessionSummary) {
	fmt.Println(s.View())
}

/* -------------------------------------------------------------------------- */
/*                                  Room Info                                 */
/* -------------------------------------------------------------------------- */

type RoomInfo struct {
	RoomId    string
	ServerURL string
}

func NewRoomInfo(roomId, serverURL string) *RoomInfo {
	return &RoomInfo{RoomId: roomId, ServerURL: serverURL}
}

func (r *RoomInfo) View() string {
	content := fmt.Sprintf("%s Joined room!\n\n%s Room ID: %s\n%s Server: %s",
		IconSuccess, IconCopy, BoldStyle.Foreground(Primary).Render(r.RoomId), IconWeb, MutedStyle.Render(r.ServerURL))

	box := SuccessBoxStyle
	if w := boxContentWidth(box, content); w > terminalWidth() {
		box = box.Width(terminalWidth() - 2)
	}

	return box.Render(content)
}

func RenderRoomInfo(roomId, serverURL string) {
	fmt.Println(NewRoomInfo(roomId, serverURL).View())
}
