package domain

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/require"
)

func TestPreviewOf(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"short", "hello", "hello"},
		{"collapses whitespace", "  hello \n\n  world\t", "hello world"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, PreviewOf(tt.body))
		})
	}
}

func TestPreviewOf_Truncates(t *testing.T) {
	got := PreviewOf(strings.Repeat("a", 200))
	require.Equal(t, PreviewWidth, runewidth.StringWidth(got))
	require.True(t, strings.HasSuffix(got, "…"))

	wide := PreviewOf(strings.Repeat("界", 100))
	require.LessOrEqual(t, runewidth.StringWidth(wide), PreviewWidth)
}

func TestDirectionValid(t *testing.T) {
	require.True(t, DirectionIncoming.Valid())
	require.True(t, DirectionOutgoing.Valid())
	require.False(t, Direction("").Valid())
	require.False(t, Direction("sideways").Valid())
}

func TestSelectionReady(t *testing.T) {
	require.False(t, Selection{}.Ready())
	require.False(t, Selection{CompanyID: "c1"}.Ready())
	require.False(t, Selection{TicketID: "t1"}.Ready())
	require.True(t, Selection{CompanyID: "c1", TicketID: "t1"}.Ready())
}
