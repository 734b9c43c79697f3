package console

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"

	"github.com/spec-kit/ticket-chat/internal/chat"
	"github.com/spec-kit/ticket-chat/internal/domain"
)

// bodyWidth caps the body column so long messages wrap instead of stretching the table.
const bodyWidth = 72

type palette struct {
	enabled bool
}

func (p palette) paint(style color.Style, s string) string {
	if !p.enabled {
		return s
	}
	return style.Render(s)
}

func (p palette) notice(n chat.Notice) string {
	var style color.Style
	switch n.Level {
	case chat.NoticeError:
		style = color.New(color.FgRed, color.OpBold)
	case chat.NoticeSuccess:
		style = color.New(color.FgGreen)
	default:
		style = color.New(color.FgCyan)
	}
	return p.paint(style, "["+n.Title+"]") + " " + n.Message
}

func (p palette) header(s string) string {
	return p.paint(color.New(color.BgBlack, color.FgGreen), s)
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	return table
}

func renderCompanies(w io.Writer, companies []domain.Company) {
	if len(companies) == 0 {
		fmt.Fprintln(w, "no companies")
		return
	}
	table := newTable(w, []string{"#", "ID", "Name"})
	for i, c := range companies {
		table.Append([]string{strconv.Itoa(i + 1), c.ID, c.Name})
	}
	table.Render()
}

func renderTickets(w io.Writer, tickets []domain.Ticket, now time.Time) {
	if len(tickets) == 0 {
		fmt.Fprintln(w, "no tickets")
		return
	}
	table := newTable(w, []string{"#", "ID", "Name", "Opened"})
	for i, t := range tickets {
		table.Append([]string{strconv.Itoa(i + 1), t.ID, t.Name, relative(t.CreatedAt, now)})
	}
	table.Render()
}

func renderMessages(w io.Writer, messages []domain.Message, now time.Time) {
	if len(messages) == 0 {
		fmt.Fprintln(w, "no messages yet")
		return
	}
	table := newTable(w, []string{"When", "Who", "Message"})
	for _, m := range messages {
		who := "customer"
		if m.Direction == domain.DirectionOutgoing {
			who = "you"
		}
		table.Append([]string{relative(m.CreatedAt, now), who, runewidth.Wrap(m.Body, bodyWidth)})
	}
	table.Render()
}

func renderNotifications(w io.Writer, pending []domain.Notification, now time.Time) {
	if len(pending) == 0 {
		fmt.Fprintln(w, "no pending notifications")
		return
	}
	table := newTable(w, []string{"Ticket", "Count", "Latest", "Preview"})
	for _, n := range pending {
		table.Append([]string{n.TicketID, humanize.Comma(int64(n.Count)), relative(n.CreatedAt, now), n.Preview})
	}
	table.Render()
}

func relative(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
