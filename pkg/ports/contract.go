package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkarpenko/slotbot/pkg/domain"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	userID := "contract-test-user-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		sess := domain.NewSession(userID)
		sess.Begin(domain.WizardSlotSearch, domain.StateSlotWarehouse)
		sess.Set("warehouse", "Коледино")
		sess.Set("page", 2)

		err := store.Save(ctx, userID, sess)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, userID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, domain.WizardSlotSearch, loaded.Wizard)
		assert.Equal(t, domain.StateSlotWarehouse, loaded.State)
		assert.Equal(t, "Коледино", loaded.GetString("warehouse"))
		// JSON persistence may convert int to float64; GetInt absorbs both.
		assert.Equal(t, 2, loaded.GetInt("page"))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+userID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		sess := domain.NewSession(userID)
		sess.Begin(domain.WizardAuth, domain.StateAuthWaitPhone)
		require.NoError(t, store.Save(ctx, userID, sess))

		loaded, err := store.Load(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, domain.WizardAuth, loaded.Wizard)
		assert.Empty(t, loaded.GetString("warehouse"), "Begin should have cleared the scratchpad")
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, userID, domain.NewSession(userID)))

		err := store.Delete(ctx, userID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, userID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := userID + "-1"
		id2 := userID + "-2"
		_ = store.Save(ctx, id1, domain.NewSession(id1))
		_ = store.Save(ctx, id2, domain.NewSession(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		users, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, users, id1)
		assert.Contains(t, users, id2)
	})
}

// RunLedgerStoreContract runs a suite of tests to verify that a LedgerStore
// implementation adheres to the defined interface contract.
func RunLedgerStoreContract(t *testing.T, store LedgerStore) {
	ctx := context.Background()
	userID := "contract-test-ledger-" + time.Now().Format("20060102150405")

	t.Run("Append and Messages", func(t *testing.T) {
		require.NoError(t, store.Append(ctx, userID, domain.RegionListTasks, 10))
		require.NoError(t, store.Append(ctx, userID, domain.RegionListTasks, 11))
		require.NoError(t, store.Append(ctx, userID, domain.RegionMain, 20))

		ids, err := store.Messages(ctx, userID, domain.RegionListTasks)
		require.NoError(t, err)
		assert.Equal(t, []int{10, 11}, ids, "ids should come back oldest first")

		ids, err = store.Messages(ctx, userID, domain.RegionMain)
		require.NoError(t, err)
		assert.Equal(t, []int{20}, ids)
	})

	t.Run("Empty Region", func(t *testing.T) {
		ids, err := store.Messages(ctx, userID, domain.RegionWizardCard)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("Drop", func(t *testing.T) {
		dropUser := userID + "-drop"
		require.NoError(t, store.Append(ctx, dropUser, domain.RegionWizardCard, 30))
		require.NoError(t, store.Append(ctx, dropUser, domain.RegionWizardCard, 31))
		require.NoError(t, store.Append(ctx, dropUser, domain.RegionMain, 31))

		// One id disappears from every region; everything else stays.
		require.NoError(t, store.Drop(ctx, dropUser, 31))

		ids, err := store.Messages(ctx, dropUser, domain.RegionWizardCard)
		require.NoError(t, err)
		assert.Equal(t, []int{30}, ids)

		ids, err = store.Messages(ctx, dropUser, domain.RegionMain)
		require.NoError(t, err)
		assert.Empty(t, ids)

		// Dropping an unknown id is a no-op.
		require.NoError(t, store.Drop(ctx, dropUser, 777))
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx, userID, domain.RegionListTasks))

		ids, err := store.Messages(ctx, userID, domain.RegionListTasks)
		require.NoError(t, err)
		assert.Empty(t, ids)

		// Clearing an already empty region is a no-op.
		require.NoError(t, store.Clear(ctx, userID, domain.RegionListTasks))
	})

	t.Run("Regions Are Isolated Per User", func(t *testing.T) {
		other := userID + "-other"
		require.NoError(t, store.Append(ctx, other, domain.RegionMain, 99))
		require.NoError(t, store.Clear(ctx, userID, domain.RegionMain))

		ids, err := store.Messages(ctx, other, domain.RegionMain)
		require.NoError(t, err)
		assert.Equal(t, []int{99}, ids)
	})
}
