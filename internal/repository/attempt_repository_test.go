package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/contentgenie/publisher/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{}, &model.Post{}, &model.ConnectedAccount{},
		&model.PublishAttempt{}, &model.Generation{},
	))
	return db
}

func TestAttemptAdmitIdempotent(t *testing.T) {
	repo := NewAttemptRepository(newTestDB(t))
	ctx := context.Background()

	first, created, err := repo.Admit(ctx, "post-1", "acc-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.AttemptPending, first.State)

	// 同一 (post, account) 再次接纳返回已有行
	second, created, err := repo.Admit(ctx, "post-1", "acc-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	// 不同账号是独立的 attempt
	other, created, err := repo.Admit(ctx, "post-1", "acc-2")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestAttemptStateTransitions(t *testing.T) {
	repo := NewAttemptRepository(newTestDB(t))
	ctx := context.Background()

	att, _, err := repo.Admit(ctx, "post-1", "acc-1")
	require.NoError(t, err)

	// pending 状态不允许直接落终态
	require.NoError(t, repo.MarkSucceeded(ctx, att.ID, "msg-1", 0))
	got, err := repo.Get(ctx, "post-1", "acc-1")
	require.NoError(t, err)
	assert.Equal(t, model.AttemptPending, got.State)

	ok, err := repo.MarkInFlight(ctx, att.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// in_flight 的 CAS 只成功一次
	ok, err = repo.MarkInFlight(ctx, att.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.MarkSucceeded(ctx, att.ID, "msg-1", 2))
	got, err = repo.Get(ctx, "post-1", "acc-1")
	require.NoError(t, err)
	assert.Equal(t, model.AttemptSucceeded, got.State)
	assert.Equal(t, "msg-1", got.MessageID)
	assert.Equal(t, 2, got.Retries)

	// 终态不可再改写
	require.NoError(t, repo.MarkFailed(ctx, att.ID, "network_error", 3))
	got, err = repo.Get(ctx, "post-1", "acc-1")
	require.NoError(t, err)
	assert.Equal(t, model.AttemptSucceeded, got.State)
}

func TestAttemptListByPost(t *testing.T) {
	repo := NewAttemptRepository(newTestDB(t))
	ctx := context.Background()

	for _, acc := range []string{"a", "b", "c"} {
		_, _, err := repo.Admit(ctx, "post-1", acc)
		require.NoError(t, err)
	}
	_, _, err := repo.Admit(ctx, "post-2", "a")
	require.NoError(t, err)

	list, err := repo.ListByPost(ctx, "post-1")
	require.NoError(t, err)
	assert.Len(t, list, 3)
}
