package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkarpenko/slotbot/pkg/adapters/file"
	"github.com/vkarpenko/slotbot/pkg/domain"
	"github.com/vkarpenko/slotbot/pkg/ports"
)

func TestFileStore_Contract(t *testing.T) {
	store := file.New(t.TempDir())
	ports.RunSessionStoreContract(t, store)
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	sess := domain.NewSession("100")
	sess.Begin(domain.WizardAuth, domain.StateAuthWaitCode)
	sess.Set("auth_session_id", "sess-1")
	require.NoError(t, file.New(dir).Save(ctx, "100", sess))

	// A fresh store over the same directory sees the session.
	loaded, err := file.New(dir).Load(ctx, "100")
	require.NoError(t, err)
	assert.True(t, loaded.In(domain.WizardAuth, domain.StateAuthWaitCode))
	assert.Equal(t, "sess-1", loaded.GetString("auth_session_id"))
}

func TestFileStore_CorruptFileFailsLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "100.json"), []byte("{not json"), 0644))

	_, err := file.New(dir).Load(context.Background(), "100")
	assert.Error(t, err)
}

func TestFileStore_EmptyUserIDRejected(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	assert.Error(t, store.Save(ctx, "", domain.NewSession("")))
	_, err := store.Load(ctx, "")
	assert.Error(t, err)
}
