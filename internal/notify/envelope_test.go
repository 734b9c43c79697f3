package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-chat/internal/domain"
)

func TestEncodeDecode(t *testing.T) {
	req := require.New(t)
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	body, err := Encode(domain.MessageCreated{TicketID: "t1", MessageID: "m1", Preview: "hello", CreatedAt: at}, "api")
	req.NoError(err)

	ev, err := Decode(body)
	req.NoError(err)
	req.NotEmpty(ev.ID)
	req.Equal("t1", ev.TicketID)
	req.Equal("m1", ev.MessageID)
	req.Equal("hello", ev.Preview)
	req.True(at.Equal(ev.CreatedAt))
}

func TestDecode_Rejects(t *testing.T) {
	cases := map[string]string{
		"garbage":      `{`,
		"wrong type":   `{"meta":{"id":"1","type":"other.v1"},"data":{"ticket_id":"t1"}}`,
		"no ticket id": `{"meta":{"id":"1","type":"chat.message_created.v1"},"data":{}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(body))
			require.Error(t, err)
		})
	}
}
