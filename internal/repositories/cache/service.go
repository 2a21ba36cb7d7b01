package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"moneta/internal/models"
)

// CacheService wraps redis with JSON marshaling and key helpers. Cached
// account snapshots serve read endpoints only; the mutation core always
// reads balances from the store.
type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

// Get unmarshals the cached value into dest. The bool reports whether the
// key was present.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// GenerateKey builds a cache key like "account:id:42".
func (s *CacheService) GenerateKey(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}

// CacheAccount stores an account snapshot under its id key and its
// (user, currency) key.
func (s *CacheService) CacheAccount(ctx context.Context, account *models.Account) error {
	if account == nil {
		return errors.New("cannot cache nil account")
	}
	keys := []string{
		s.GenerateKey("account", "id", account.ID),
		s.accountUserCurrencyKey(account),
	}
	for _, key := range keys {
		if err := s.Set(ctx, key, account); err != nil {
			return err
		}
	}
	return nil
}

// InvalidateAccount drops both keys for an account snapshot.
func (s *CacheService) InvalidateAccount(ctx context.Context, account *models.Account) error {
	if account == nil {
		return nil
	}
	return s.Delete(ctx,
		s.GenerateKey("account", "id", account.ID),
		s.accountUserCurrencyKey(account),
	)
}

// GetAccountByID returns a cached account snapshot, if present. Cache
// failures degrade to a miss.
func (s *CacheService) GetAccountByID(ctx context.Context, id uint) (*models.Account, bool) {
	var account models.Account
	found, err := s.Get(ctx, s.GenerateKey("account", "id", id), &account)
	if err != nil || !found {
		return nil, false
	}
	return &account, true
}

func (s *CacheService) accountUserCurrencyKey(account *models.Account) string {
	return s.GenerateKey("account", "user",
		fmt.Sprintf("%s:%d", account.UserID, account.CurrencyID))
}

func (s *CacheService) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

func (s *CacheService) FlushAll(ctx context.Context) error {
	return s.client.FlushAll(ctx).Err()
}

func (s *CacheService) Close() error {
	return s.client.Close()
}
