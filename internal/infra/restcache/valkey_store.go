// Package restcache caches restaurant search results and finished
// recommendation responses with a TTL.
package restcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/recommend"
	"github.com/whatwehaveforlunch/lunch-advisor/internal/domain/restaurant"
)

// ValkeyStore persists cache entries in a Valkey-compatible database.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "lunch"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

// GetSearch returns a cached restaurant list for a search key.
func (s *ValkeyStore) GetSearch(ctx context.Context, key string) ([]restaurant.Restaurant, bool, error) {
	payload, ok, err := s.getString(ctx, s.cacheKey(key))
	if err != nil || !ok {
		return nil, false, err
	}
	var list []restaurant.Restaurant
	if err := json.Unmarshal([]byte(payload), &list); err != nil {
		return nil, false, err
	}
	return list, true, nil
}

// SaveSearch stores a restaurant list under a search key.
func (s *ValkeyStore) SaveSearch(ctx context.Context, key string, list []restaurant.Restaurant, ttl time.Duration) error {
	payload, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return s.setString(ctx, s.cacheKey(key), string(payload), ttl)
}

// GetRecommendation returns a cached recommendation response.
func (s *ValkeyStore) GetRecommendation(ctx context.Context, key string) (recommend.Response, bool, error) {
	payload, ok, err := s.getString(ctx, s.cacheKey(key))
	if err != nil || !ok {
		return recommend.Response{}, false, err
	}
	var res recommend.Response
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return recommend.Response{}, false, err
	}
	return res, true, nil
}

// SaveRecommendation stores a recommendation response.
func (s *ValkeyStore) SaveRecommendation(ctx context.Context, key string, res recommend.Response, ttl time.Duration) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return s.setString(ctx, s.cacheKey(key), string(payload), ttl)
}

func (s *ValkeyStore) getString(ctx context.Context, key string) (string, bool, error) {
	cmd := s.client.B().Get().Key(key).Build()
	payload, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return payload, true, nil
}

func (s *ValkeyStore) setString(ctx context.Context, key, value string, ttl time.Duration) error {
	builder := s.client.B().Set().Key(key).Value(value)
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) cacheKey(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

var _ restaurant.Cache = (*ValkeyStore)(nil)
var _ recommend.Cache = (*ValkeyStore)(nil)
