package console

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-chat/internal/chat"
	"github.com/spec-kit/ticket-chat/internal/domain"
	"github.com/spec-kit/ticket-chat/internal/mocks"
)

// syncBuffer guards a bytes.Buffer written from listener callbacks.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newConsole(t *testing.T) (*Console, *chat.Controller, *mocks.MockDirectory, *syncBuffer) {
	t.Helper()
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockDirectory(ctrl)
	at := time.Now().Add(-time.Hour)
	dir.EXPECT().ListCompanies(gomock.Any()).Return([]domain.Company{{ID: "c1", Name: "Acme"}}, nil).AnyTimes()
	dir.EXPECT().ListTickets(gomock.Any(), "c1").Return([]domain.Ticket{{ID: "t1", Name: "T-0001 Login issue", CompanyID: "c1", CreatedAt: at}}, nil).AnyTimes()
	dir.EXPECT().ListMessages(gomock.Any(), "t1").Return([]domain.Message{
		{ID: "m1", TicketID: "t1", Body: "cannot log in", Direction: domain.DirectionIncoming, CreatedAt: at},
	}, nil).AnyTimes()

	controller := chat.NewController(dir, nil, zap.NewNop())
	out := &syncBuffer{}
	con := New(controller, out, false)
	t.Cleanup(con.Attach())
	require.NoError(t, controller.Initialize(context.Background()))
	return con, controller, dir, out
}

func TestConsole_SessionScript(t *testing.T) {
	con, controller, dir, out := newConsole(t)
	dir.EXPECT().SendMessage(gomock.Any(), "t1", "hello there", domain.DirectionOutgoing).Return("m2", nil)

	script := strings.Join([]string{
		"/companies",
		"/company 1",
		"/ticket t1",
		"hello there",
		"/status",
		"/quit",
		"/status",
	}, "\n")
	require.NoError(t, con.Run(context.Background(), strings.NewReader(script)))

	got := out.String()
	require.Contains(t, got, "Acme")
	require.Contains(t, got, "T-0001 Login issue")
	require.Contains(t, got, "cannot log in")
	require.Contains(t, got, "hello there")
	require.Contains(t, got, "Message sent successfully!")
	require.Contains(t, got, "state: ticket_selected")
	require.Equal(t, 1, strings.Count(got, "state:"), "commands after /quit must not run")
	require.Equal(t, 1, strings.Count(got, "cannot log in"), "existing messages are shown once")
	require.Equal(t, "", controller.Snapshot().Draft)
}

func TestConsole_SendWithoutTicket(t *testing.T) {
	con, _, dir, out := newConsole(t)
	dir.EXPECT().SendMessage(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	require.False(t, con.Execute(context.Background(), "hello"))
	require.Contains(t, out.String(), "Select a ticket before sending.")
}

func TestConsole_BlankSend(t *testing.T) {
	con, _, dir, out := newConsole(t)
	dir.EXPECT().SendMessage(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	ctx := context.Background()

	con.Execute(ctx, "/company c1")
	con.Execute(ctx, "/ticket 1")
	con.Execute(ctx, "/draft    ")
	con.Execute(ctx, "/send")
	require.Contains(t, out.String(), "Message body cannot be empty.")
}

func TestConsole_Notifications(t *testing.T) {
	con, controller, _, out := newConsole(t)
	ctx := context.Background()

	controller.HandleNotification(ctx, domain.MessageCreated{TicketID: "t7", Preview: "are you there?", CreatedAt: time.Now()})
	require.Contains(t, out.String(), "You have a new message in chat: are you there?")

	con.Execute(ctx, "/notifications")
	require.Contains(t, out.String(), "t7")

	con.Execute(ctx, "/ack t7")
	require.Empty(t, controller.Notifications())
}

func TestConsole_UsageAndUnknown(t *testing.T) {
	con, _, _, out := newConsole(t)
	ctx := context.Background()

	con.Execute(ctx, "/company")
	con.Execute(ctx, "/ticket t1")
	con.Execute(ctx, "/refresh")
	con.Execute(ctx, "/bogus")

	got := out.String()
	require.Contains(t, got, "usage: /company")
	require.Contains(t, got, "open a company first")
	require.Contains(t, got, "open a ticket first")
	require.Contains(t, got, `unknown command "bogus"`)
}

func TestResolve(t *testing.T) {
	items := []domain.Company{{ID: "a"}, {ID: "b"}}
	id := func(c domain.Company) string { return c.ID }
	require.Equal(t, "b", resolve("2", items, id))
	require.Equal(t, "3", resolve("3", items, id))
	require.Equal(t, "a", resolve("a", items, id))
}
