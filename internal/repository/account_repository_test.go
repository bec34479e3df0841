package repository

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentgenie/publisher/internal/model"
	"github.com/contentgenie/publisher/pkg/secrets"
)

func testBox(t *testing.T) *secrets.Box {
	t.Helper()
	key := make([]byte, 32)
	copy(key, []byte(gofakeit.LetterN(32)))
	box, err := secrets.NewBox(hex.EncodeToString(key))
	require.NoError(t, err)
	return box
}

func TestAccountCredentialsEncryptedAtRest(t *testing.T) {
	db := newTestDB(t)
	repo := NewAccountRepository(db, testBox(t))
	ctx := context.Background()

	data := model.AccountData{Token: "123:secret-token", ChatID: "@channel"}
	acc, err := repo.Create(ctx, "user-1", model.ServiceTelegram, "My Channel", data)
	require.NoError(t, err)

	var row model.ConnectedAccount
	require.NoError(t, db.Where("id = ?", acc.ID).First(&row).Error)
	assert.NotContains(t, row.AccountData, "secret-token")

	got, err := repo.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, data, got.Data)
}

func TestAccountListActiveByIDsScopedToUser(t *testing.T) {
	repo := NewAccountRepository(newTestDB(t), nil)
	ctx := context.Background()

	mine, err := repo.Create(ctx, "user-1", model.ServiceVK, "vk", model.AccountData{AccessToken: "tok"})
	require.NoError(t, err)
	other, err := repo.Create(ctx, "user-2", model.ServiceVK, "vk", model.AccountData{AccessToken: "tok"})
	require.NoError(t, err)

	// 别人的账号 id 混进来也不会被返回
	list, err := repo.ListActiveByIDs(ctx, "user-1", []string{mine.ID, other.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)
}

func TestCachedAccountRepositoryServesFromRedis(t *testing.T) {
	db := newTestDB(t)
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewCachedAccountRepository(NewAccountRepository(db, nil), cache, time.Minute)
	ctx := context.Background()

	acc, err := repo.Create(ctx, "user-1", model.ServiceTelegram, "tg", model.AccountData{Token: "t", ChatID: "c"})
	require.NoError(t, err)

	// 第一次读回填缓存
	first, err := repo.ListActive(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, first, 1)

	// 删掉 DB 行后仍能从缓存命中
	require.NoError(t, db.Where("id = ?", acc.ID).Delete(&model.ConnectedAccount{}).Error)
	second, err := repo.ListActive(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, acc.ID, second[0].ID)
}

func TestCachedAccountRepositoryInvalidatesIndexOnCreate(t *testing.T) {
	db := newTestDB(t)
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := NewCachedAccountRepository(NewAccountRepository(db, nil), cache, time.Minute)
	ctx := context.Background()

	_, err := repo.Create(ctx, "user-1", model.ServiceTelegram, "tg", model.AccountData{Token: "t"})
	require.NoError(t, err)
	first, err := repo.ListActive(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, first, 1)

	_, err = repo.Create(ctx, "user-1", model.ServiceVK, "vk", model.AccountData{AccessToken: "t"})
	require.NoError(t, err)
	second, err := repo.ListActive(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, second, 2)
}
