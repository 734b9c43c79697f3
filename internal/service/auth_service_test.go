package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/ticket-chat/internal/auth"
	"github.com/spec-kit/ticket-chat/internal/config"
	"github.com/spec-kit/ticket-chat/internal/domain"
	"github.com/spec-kit/ticket-chat/internal/mocks"
	apperrors "github.com/spec-kit/ticket-chat/pkg/util/errorutil"
)

func newAuthService(t *testing.T) (*AuthService, *mocks.MockAgentRepository) {
	ctrl := gomock.NewController(t)
	agents := mocks.NewMockAgentRepository(ctrl)
	cfg := config.AuthConfig{JWTSecret: "secret", AccessTokenTTLMinutes: 15, BcryptCost: bcrypt.MinCost}
	return NewAuthService(cfg, agents), agents
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid email", func(t *testing.T) {
		svc, _ := newAuthService(t)
		_, err := svc.Register(ctx, "not-an-email", "password1")
		require.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	})

	t.Run("duplicate", func(t *testing.T) {
		svc, agents := newAuthService(t)
		agents.EXPECT().GetByEmail(gomock.Any(), "a@example.com").Return(&domain.Agent{ID: "x"}, nil)
		_, err := svc.Register(ctx, "a@example.com", "password1")
		require.True(t, apperrors.IsCode(err, "CONFLICT"))
	})

	t.Run("short password", func(t *testing.T) {
		svc, agents := newAuthService(t)
		agents.EXPECT().GetByEmail(gomock.Any(), "a@example.com").Return(nil, pgx.ErrNoRows)
		agents.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
		_, err := svc.Register(ctx, "a@example.com", "short")
		require.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	})

	t.Run("ok hashes password", func(t *testing.T) {
		svc, agents := newAuthService(t)
		agents.EXPECT().GetByEmail(gomock.Any(), "a@example.com").Return(nil, pgx.ErrNoRows)
		agents.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, a *domain.Agent) error {
			a.ID = "agent-1"
			return nil
		})
		agent, err := svc.Register(ctx, " a@example.com ", "password1")
		require.NoError(t, err)
		require.Equal(t, "agent-1", agent.ID)
		require.NotEqual(t, "password1", agent.PasswordHash)
		require.NoError(t, auth.ComparePassword(agent.PasswordHash, "password1"))
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	hash, err := auth.HashPassword("password1", bcrypt.MinCost)
	require.NoError(t, err)
	stored := &domain.Agent{ID: "agent-1", Email: "a@example.com", PasswordHash: hash}

	t.Run("unknown email", func(t *testing.T) {
		svc, agents := newAuthService(t)
		agents.EXPECT().GetByEmail(gomock.Any(), "b@example.com").Return(nil, pgx.ErrNoRows)
		_, _, _, err := svc.Login(ctx, "b@example.com", "password1")
		require.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, agents := newAuthService(t)
		agents.EXPECT().GetByEmail(gomock.Any(), "a@example.com").Return(stored, nil)
		_, _, _, err := svc.Login(ctx, "a@example.com", "password2")
		require.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))
	})

	t.Run("ok issues parseable token", func(t *testing.T) {
		svc, agents := newAuthService(t)
		agents.EXPECT().GetByEmail(gomock.Any(), "a@example.com").Return(stored, nil)
		agent, token, exp, err := svc.Login(ctx, "a@example.com", "password1")
		require.NoError(t, err)
		require.Equal(t, stored, agent)
		require.False(t, exp.IsZero())

		claims, err := svc.TokenManager().ParseToken(token)
		require.NoError(t, err)
		require.Equal(t, "agent-1", claims.AgentID)
	})
}
