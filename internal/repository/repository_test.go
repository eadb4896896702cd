package repository

import (
	"context"
	"testing"

	"spacehub/internal/database"
	"spacehub/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func seedUser(t *testing.T, repo *UserRepository, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Email: username + "@example.com", IsActive: true}
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	alice := seedUser(t, repo, "alice")
	assert.NotEmpty(t, alice.ID)
	assert.Equal(t, models.RoleUser, alice.Role)

	err := repo.Create(ctx, &models.User{Username: "alice", Email: "other@example.com"})
	assert.ErrorIs(t, err, models.ErrAlreadyExists)

	found, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, found.ID)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, repo.TouchLastOnline(ctx, alice.ID))
	found, err = repo.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.NotNil(t, found.LastOnline)

	assert.ErrorIs(t, repo.TouchLastOnline(ctx, "missing"), models.ErrNotFound)
}

func TestPresenceRepository_UpsertAndUpdate(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users := NewUserRepository(db)
	presences := NewPresenceRepository(db)

	alice := seedUser(t, users, "alice")
	bob := seedUser(t, users, "bob")
	key := models.PresenceKey{UserID: alice.ID, SpaceID: "s1"}

	first, err := presences.Upsert(ctx, key)
	require.NoError(t, err)
	assert.True(t, first.IsActive)
	assert.Equal(t, models.StatusOnline, first.Status)

	n, err := presences.UpdateMany(ctx, models.PresenceFilter{UserID: alice.ID, SpaceID: "s1", ActiveOnly: true},
		models.PresenceUpdate{Transform: &models.Transform{X: 1, Y: 2, Z: 3}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	inactive := false
	_, err = presences.UpdateMany(ctx, models.PresenceFilter{UserID: alice.ID}, models.PresenceUpdate{IsActive: &inactive})
	require.NoError(t, err)

	// re-joining reactivates the same row and keeps the transform
	again, err := presences.Upsert(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.True(t, again.IsActive)
	assert.Equal(t, float64(3), again.Z)

	_, err = presences.Upsert(ctx, models.PresenceKey{UserID: bob.ID, SpaceID: "s1"})
	require.NoError(t, err)
	_, err = presences.Upsert(ctx, models.PresenceKey{UserID: bob.ID, SpaceID: "s1", InstanceID: "i1"})
	require.NoError(t, err)

	others, err := presences.FindMany(ctx, models.PresenceFilter{SpaceID: "s1", ExcludeUserID: alice.ID, ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, others, 1)
	assert.Equal(t, "bob", others[0].User.Username)
	assert.Equal(t, "", others[0].InstanceID)

	n, err = presences.UpdateMany(ctx, models.PresenceFilter{UserID: alice.ID, SpaceID: "s2", ActiveOnly: true},
		models.PresenceUpdate{Transform: &models.Transform{X: 9}})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestChatRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := seedUser(t, NewUserRepository(db), "alice")
	chats := NewChatRepository(db)

	_, err := chats.Create(ctx, &models.ChatMessage{Content: "nowhere", SenderID: alice.ID})
	assert.Error(t, err)

	for _, content := range []string{"first", "second", "third"} {
		stored, err := chats.Create(ctx, &models.ChatMessage{
			Content:  content,
			SenderID: alice.ID,
			SpaceID:  models.Optional("s1"),
		})
		require.NoError(t, err)
		assert.NotEmpty(t, stored.ID)
		assert.False(t, stored.CreatedAt.IsZero())
		assert.Equal(t, "alice", stored.Sender.Username)
	}

	recent, err := chats.ListBySpace(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "second", recent[0].Content)
	assert.Equal(t, "third", recent[1].Content)
}

func TestSpaceRepository_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := seedUser(t, NewUserRepository(db), "alice")
	spaces := NewSpaceRepository(db)
	presences := NewPresenceRepository(db)
	chats := NewChatRepository(db)

	space := &models.Space{Name: "Lobby", OwnerID: alice.ID}
	require.NoError(t, spaces.Create(ctx, space))
	instance := &models.SpaceInstance{SpaceID: space.ID, IsActive: true}
	require.NoError(t, spaces.CreateInstance(ctx, instance))
	assert.Equal(t, 10, instance.MaxUsers)

	found, err := spaces.FindInstance(ctx, instance.ID, space.ID)
	require.NoError(t, err)
	assert.True(t, found.IsActive)
	_, err = spaces.FindInstance(ctx, instance.ID, "other-space")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = presences.Upsert(ctx, models.PresenceKey{UserID: alice.ID, SpaceID: space.ID})
	require.NoError(t, err)
	_, err = chats.Create(ctx, &models.ChatMessage{Content: "hi", SenderID: alice.ID, SpaceID: &space.ID})
	require.NoError(t, err)

	require.NoError(t, spaces.Delete(ctx, space.ID))

	_, err = spaces.FindByID(ctx, space.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	var count int64
	db.Model(&models.SpacePresence{}).Where("space_id = ?", space.ID).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.ChatMessage{}).Where("space_id = ?", space.ID).Count(&count)
	assert.Zero(t, count)
	db.Model(&models.SpaceInstance{}).Where("space_id = ?", space.ID).Count(&count)
	assert.Zero(t, count)

	assert.ErrorIs(t, spaces.Delete(ctx, space.ID), models.ErrNotFound)
}
