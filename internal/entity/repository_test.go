package entity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteRepository(openTestDB(t))

	rec := NewRecord(testEntry, &fakeSensor{uid: "door-1", class: DeviceClassDoor})
	require.NoError(t, repo.Upsert(ctx, rec))

	got, err := repo.Get(ctx, "door-1")
	require.NoError(t, err)
	assert.Equal(t, PlatformBinarySensor, got.Platform)
	assert.Equal(t, DeviceClassDoor, got.DeviceClass)
	assert.Equal(t, "dev-door-1", got.DeviceID)
	assert.False(t, got.CreatedAt.IsZero())

	rec.DeviceName = "Front door"
	require.NoError(t, repo.Upsert(ctx, rec))
	got, err = repo.Get(ctx, "door-1")
	require.NoError(t, err)
	assert.Equal(t, "Front door", got.DeviceName)

	require.NoError(t, repo.Upsert(ctx, NewRecord(ConfigEntry{EntryID: "entry-2", Domain: "test"}, &fakeLight{uid: "lamp"})))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byEntry, err := repo.ListByEntry(ctx, "test", "entry-1")
	require.NoError(t, err)
	require.Len(t, byEntry, 1)
	assert.Equal(t, "door-1", byEntry[0].UniqueID)

	require.NoError(t, repo.Delete(ctx, "door-1"))
	_, err = repo.Get(ctx, "door-1")
	assert.ErrorIs(t, err, ErrEntityNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "door-1"), ErrEntityNotFound)
}

func TestSQLiteRepositoryValidation(t *testing.T) {
	repo := NewSQLiteRepository(openTestDB(t))

	tests := []struct {
		name string
		rec  Record
	}{
		{"missing unique id", Record{Platform: PlatformLight, Domain: "d", EntryID: "e"}},
		{"missing platform", Record{UniqueID: "u", Domain: "d", EntryID: "e"}},
		{"missing entry", Record{UniqueID: "u", Platform: PlatformLight}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, repo.Upsert(context.Background(), tt.rec), ErrInvalidRecord)
		})
	}
}
