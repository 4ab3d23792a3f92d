package nats_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/arthurdotwork/lobby/internal/adapters/secondary/nats"
	"github.com/arthurdotwork/lobby/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestSubject(t *testing.T) {
	t.Parallel()

	t.Run("it should turn a destination into a subject", func(t *testing.T) {
		require.Equal(t, "topic.users.online", nats.Subject("/topic/users.online"))
		require.Equal(t, "user.5.queue.invitations", nats.Subject("/user/5/queue/invitations"))
	})

	t.Run("it should leave a subject untouched", func(t *testing.T) {
		require.Equal(t, "lobby.presence", nats.Subject("lobby.presence"))
	})
}

func TestTransport_Dial(t *testing.T) {
	t.Parallel()

	t.Run("it should fail when the server is unreachable", func(t *testing.T) {
		lis, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := lis.Addr().String()
		require.NoError(t, lis.Close())

		_, err = nats.NewTransport("nats://"+addr, "lobby-test", time.Second).Dial(context.Background())
		require.Error(t, err)
	})
}

func TestDecodeResponse(t *testing.T) {
	t.Parallel()

	t.Run("it should return the invitation", func(t *testing.T) {
		inv, err := nats.DecodeResponse([]byte(`{"invitation":{"id":3,"fromUser":{"id":1,"username":"a"},"toUser":{"id":2,"username":"b"},"status":"PENDING"}}`))
		require.NoError(t, err)
		require.EqualValues(t, 3, inv.ID)
		require.Equal(t, domain.InvitationPending, inv.Status)
	})

	t.Run("it should surface a rejection", func(t *testing.T) {
		_, err := nats.DecodeResponse([]byte(`{"error":"user is offline"}`))
		require.ErrorIs(t, err, nats.ErrRejected)
		require.ErrorContains(t, err, "user is offline")
	})

	t.Run("it should reject an empty response", func(t *testing.T) {
		_, err := nats.DecodeResponse([]byte(`{}`))
		require.ErrorIs(t, err, nats.ErrRejected)
	})

	t.Run("it should reject garbage", func(t *testing.T) {
		_, err := nats.DecodeResponse([]byte(`nope`))
		require.Error(t, err)
	})
}
