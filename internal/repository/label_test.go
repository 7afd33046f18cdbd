package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peachytask/peachytask-go/internal/model"
)

func insertLabel(t *testing.T, store *Store, userID, name, normalized string, offset time.Duration) (*model.Label, error) {
	t.Helper()
	label := &model.Label{UserID: userID, Name: name, NameNormalized: normalized, CreatedAt: base.Add(offset)}
	return label, store.Labels.Insert(context.Background(), label)
}

func TestLabelUniquePerOwner(t *testing.T) {
	store := openTestStore(t)

	_, err := insertLabel(t, store, "alice", "Work", "work", 0)
	require.NoError(t, err)

	_, err = insertLabel(t, store, "alice", "work", "work", time.Second)
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = insertLabel(t, store, "bob", "Work", "work", time.Second)
	assert.NoError(t, err)
}

func TestLabelFindByNameAndID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	color := "#f97316"
	label := &model.Label{UserID: "alice", Name: "Work", NameNormalized: "work", Color: &color, CreatedAt: base}
	require.NoError(t, store.Labels.Insert(ctx, label))

	got, err := store.Labels.FindByName(ctx, "alice", "work")
	require.NoError(t, err)
	assert.Equal(t, label.ID, got.ID)
	require.NotNil(t, got.Color)
	assert.Equal(t, color, *got.Color)

	_, err = store.Labels.FindByName(ctx, "bob", "work")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err = store.Labels.FindByID(ctx, label.ID)
	require.NoError(t, err)
	assert.Equal(t, "Work", got.Name)

	_, err = store.Labels.FindByID(ctx, "bogus")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestLabelFindManyOrderAndOwner(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := insertLabel(t, store, "alice", "Second", "second", 2*time.Second)
	require.NoError(t, err)
	_, err = insertLabel(t, store, "alice", "First", "first", time.Second)
	require.NoError(t, err)
	_, err = insertLabel(t, store, "bob", "Other", "other", 0)
	require.NoError(t, err)

	labels, err := store.Labels.FindMany(ctx, model.LabelFilter{UserID: "alice"}, 100)
	require.NoError(t, err)
	require.Len(t, labels, 2)
	assert.Equal(t, "First", labels[0].Name)
	assert.Equal(t, "Second", labels[1].Name)
}

func TestLabelUpdateAndDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	work, err := insertLabel(t, store, "alice", "Work", "work", 0)
	require.NoError(t, err)
	_, err = insertLabel(t, store, "alice", "Home", "home", time.Second)
	require.NoError(t, err)

	name, key := "HOME", "home"
	err = store.Labels.UpdateFields(ctx, work.ID, model.LabelPatch{Name: &name, NameNormalized: &key})
	assert.ErrorIs(t, err, ErrDuplicate)

	name, key = "Job", "job"
	require.NoError(t, store.Labels.UpdateFields(ctx, work.ID, model.LabelPatch{Name: &name, NameNormalized: &key}))
	got, err := store.Labels.FindByID(ctx, work.ID)
	require.NoError(t, err)
	assert.Equal(t, "Job", got.Name)

	deleted, err := store.Labels.Delete(ctx, work.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = store.Labels.FindByID(ctx, work.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLabelNamesCompareByteForByte(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := insertLabel(t, store, "alice", "resume", "resume", 0)
	require.NoError(t, err)
	_, err = insertLabel(t, store, "alice", "résumé", "résumé", time.Second)
	require.NoError(t, err, "accented name must not collide with its unaccented form")

	got, err := store.Labels.FindByName(ctx, "alice", "résumé")
	require.NoError(t, err)
	assert.Equal(t, "résumé", got.Name)
}

func TestBinaryKeysMigration(t *testing.T) {
	up := binaryKeysUp(DriverMySQL)
	require.Len(t, up, 2)
	for _, stmt := range up {
		assert.Contains(t, stmt, "COLLATE utf8mb4_bin")
	}
	assert.Contains(t, up[0], "users MODIFY email")
	assert.Contains(t, up[1], "labels MODIFY name_normalized")
	assert.Len(t, binaryKeysDown(DriverMySQL), 2)

	assert.Empty(t, binaryKeysUp(DriverSQLite))
	assert.Empty(t, binaryKeysDown(DriverSQLite))

	m := binaryKeysMigration(DriverSQLite)
	assert.Equal(t, int64(binaryKeysVersion), m.Version)
}

func TestLabelDeleteRemovesTaskAssociations(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	label, err := insertLabel(t, store, "alice", "Temp", "temp", 0)
	require.NoError(t, err)
	keep, err := insertLabel(t, store, "alice", "Keep", "keep", time.Second)
	require.NoError(t, err)
	task := insertTask(t, store, "alice", "tagged", "2025-10-10", 0, label.ID, keep.ID)

	deleted, err := store.Labels.Delete(ctx, label.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := store.Tasks.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{keep.ID}, got.LabelIDs)
}
