package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/contentgenie/publisher/internal/model"
)

// cachedAccountRepository 在 DB 之前加一层 Redis 快照缓存：
// accounts:index:<userID> 保存该用户的账号 id 列表，
// account:<id> 保存单行快照（凭证保持加密，解密只在进程内发生）。
type cachedAccountRepository struct {
	base  *accountRepository
	cache *redis.Client
	ttl   time.Duration
}

// NewCachedAccountRepository 组合基础仓储与缓存；base 不是本包实现时原样返回
func NewCachedAccountRepository(base AccountRepository, cache *redis.Client, ttl time.Duration) AccountRepository {
	b, ok := base.(*accountRepository)
	if !ok || cache == nil {
		return base
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &cachedAccountRepository{base: b, cache: cache, ttl: ttl}
}

func (r *cachedAccountRepository) Create(ctx context.Context, userID string, service model.ServiceKind, name string, data model.AccountData) (*Account, error) {
	acc, err := r.base.Create(ctx, userID, service, name, data)
	if err != nil {
		return nil, err
	}
	// 新账号使索引失效，下次读取重建
	_ = r.cache.Del(ctx, indexKey(userID)).Err()
	return acc, nil
}

func (r *cachedAccountRepository) GetByID(ctx context.Context, id string) (*Account, error) {
	rows, err := r.loadRows(ctx, []string{id})
	if err != nil || len(rows) == 0 {
		return r.base.GetByID(ctx, id)
	}
	out, err := r.base.decode(rows)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (r *cachedAccountRepository) ListActiveByIDs(ctx context.Context, userID string, ids []string) ([]*Account, error) {
	rows, err := r.loadRows(ctx, ids)
	if err != nil {
		return r.base.ListActiveByIDs(ctx, userID, ids)
	}
	filtered := make([]model.ConnectedAccount, 0, len(rows))
	for _, row := range rows {
		if row.UserID == userID && row.IsActive {
			filtered = append(filtered, row)
		}
	}
	return r.base.decode(filtered)
}

func (r *cachedAccountRepository) ListActive(ctx context.Context, userID string) ([]*Account, error) {
	key := indexKey(userID)
	ids, err := r.cache.LRange(ctx, key, 0, -1).Result()
	if err != nil || len(ids) == 0 {
		// 回源并重建索引 + 行快照
		var rows []model.ConnectedAccount
		if err := r.base.db.WithContext(ctx).
			Where("user_id = ? AND is_active = ?", userID, true).
			Order("created_at").
			Find(&rows).Error; err != nil {
			return nil, err
		}
		r.storeIndex(ctx, userID, rows)
		return r.base.decode(rows)
	}
	return r.ListActiveByIDs(ctx, userID, ids)
}

// loadRows MGET 命中的直接用，缺的批量回源并回填
func (r *cachedAccountRepository) loadRows(ctx context.Context, ids []string) ([]model.ConnectedAccount, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = accountKey(id)
	}
	cached := make(map[string]model.ConnectedAccount, len(ids))
	if vals, err := r.cache.MGet(ctx, keys...).Result(); err == nil {
		for i, v := range vals {
			str, ok := v.(string)
			if !ok {
				continue
			}
			var row model.ConnectedAccount
			if uErr := json.Unmarshal([]byte(str), &row); uErr == nil {
				cached[ids[i]] = row
			}
		}
	}

	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := cached[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		var rows []model.ConnectedAccount
		if err := r.base.db.WithContext(ctx).Where("id IN ?", missing).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, row := range rows {
			cached[row.ID] = row
			if payload, err := json.Marshal(row); err == nil {
				_ = r.cache.Set(ctx, accountKey(row.ID), payload, r.ttl).Err()
			}
		}
	}

	out := make([]model.ConnectedAccount, 0, len(ids))
	for _, id := range ids {
		if row, ok := cached[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *cachedAccountRepository) storeIndex(ctx context.Context, userID string, rows []model.ConnectedAccount) {
	if len(rows) == 0 {
		return
	}
	key := indexKey(userID)
	members := make([]interface{}, len(rows))
	pipe := r.cache.Pipeline()
	pipe.Del(ctx, key)
	for i, row := range rows {
		members[i] = row.ID
		if payload, err := json.Marshal(row); err == nil {
			pipe.Set(ctx, accountKey(row.ID), payload, r.ttl)
		}
	}
	pipe.RPush(ctx, key, members...)
	pipe.Expire(ctx, key, r.ttl)
	_, _ = pipe.Exec(ctx)
}

func indexKey(userID string) string { return fmt.Sprintf("accounts:index:%s", userID) }
func accountKey(id string) string   { return fmt.Sprintf("account:%s", id) }
