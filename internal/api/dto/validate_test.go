package dto

import (
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/ticket-chat/pkg/util/errorutil"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     any
		wantErr bool
		field   string
	}{
		{"message ok", CreateMessageRequest{Body: "hi"}, false, ""},
		{"message with direction", CreateMessageRequest{Body: "hi", Direction: "incoming"}, false, ""},
		{"missing body", CreateMessageRequest{}, true, "body"},
		{"bad direction", CreateMessageRequest{Body: "hi", Direction: "sideways"}, true, "direction"},
		{"register ok", RegisterRequest{Email: "a@b.io", Password: "password1"}, false, ""},
		{"register bad email", RegisterRequest{Email: "nope", Password: "password1"}, true, "email"},
		{"register short password", RegisterRequest{Email: "a@b.io", Password: "short"}, true, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			derr := apperrors.ToDomainError(err)
			require.Equal(t, "VALIDATION_FAILED", derr.Code)
			require.Contains(t, derr.Details, tt.field)
		})
	}
}
