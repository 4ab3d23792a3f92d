package domain_test

import (
	"testing"

	"github.com/arthurdotwork/lobby/internal/domain"
	"github.com/stretchr/testify/require"
)

func invitation(id int64, status domain.InvitationStatus, from, to int64) domain.Invitation {
	return domain.Invitation{
		ID:       id,
		FromUser: user(from, "from"),
		ToUser:   user(to, "to"),
		Status:   status,
	}
}

func TestInvitationStore_ApplyUpdate(t *testing.T) {
	t.Parallel()

	t.Run("it should be idempotent", func(t *testing.T) {
		store := domain.NewInvitationStore()
		inv := invitation(7, domain.InvitationPending, 1, 2)

		store.ApplyUpdate(inv)
		store.ApplyUpdate(inv)

		require.Equal(t, []domain.Invitation{inv}, store.All())
	})

	t.Run("it should replace an invitation in place", func(t *testing.T) {
		store := domain.NewInvitationStore()

		store.ApplyUpdate(invitation(1, domain.InvitationPending, 1, 2))
		store.ApplyUpdate(invitation(2, domain.InvitationPending, 1, 3))
		store.ApplyUpdate(invitation(3, domain.InvitationPending, 1, 4))
		store.ApplyUpdate(invitation(2, domain.InvitationDeclined, 1, 3))

		all := store.All()
		require.Len(t, all, 3)
		require.Equal(t, []int64{1, 2, 3}, []int64{all[0].ID, all[1].ID, all[2].ID})
		require.Equal(t, domain.InvitationDeclined, all[1].Status)
	})

	t.Run("it should drop everything on clear", func(t *testing.T) {
		store := domain.NewInvitationStore()
		store.SetSelf(2)
		store.ApplyUpdate(invitation(1, domain.InvitationPending, 1, 2))

		store.Clear()
		store.ApplyUpdate(invitation(4, domain.InvitationPending, 1, 2))

		require.Equal(t, []int64{4}, []int64{store.All()[0].ID})
		require.Len(t, store.All(), 1)
	})
}

func TestInvitationStore_PendingForMe(t *testing.T) {
	t.Parallel()

	t.Run("it should keep pending invitations addressed to the session user", func(t *testing.T) {
		store := domain.NewInvitationStore()
		store.SetSelf(5)

		store.ApplyUpdate(invitation(1, domain.InvitationPending, 9, 5))
		store.ApplyUpdate(invitation(2, domain.InvitationAccepted, 9, 5))
		store.ApplyUpdate(invitation(3, domain.InvitationPending, 5, 9))

		pending := store.PendingForMe()
		require.Len(t, pending, 1)
		require.EqualValues(t, 1, pending[0].ID)
	})

	t.Run("it should be empty without a session", func(t *testing.T) {
		store := domain.NewInvitationStore()

		store.ApplyUpdate(invitation(1, domain.InvitationPending, 9, 5))

		require.Empty(t, store.PendingForMe())
	})

	t.Run("it should recompute when only the session changes", func(t *testing.T) {
		store := domain.NewInvitationStore()
		store.ApplyUpdate(invitation(1, domain.InvitationPending, 9, 5))
		store.ApplyUpdate(invitation(2, domain.InvitationPending, 5, 9))

		store.SetSelf(5)
		require.EqualValues(t, 1, store.PendingForMe()[0].ID)

		store.SetSelf(9)
		require.EqualValues(t, 2, store.PendingForMe()[0].ID)
	})

	t.Run("it should drop an invitation once it is answered", func(t *testing.T) {
		store := domain.NewInvitationStore()
		store.SetSelf(5)

		store.ApplyUpdate(invitation(1, domain.InvitationPending, 9, 5))
		store.ApplyUpdate(invitation(1, domain.InvitationCancelled, 9, 5))

		require.Empty(t, store.PendingForMe())
		require.Len(t, store.All(), 1)
	})
}
