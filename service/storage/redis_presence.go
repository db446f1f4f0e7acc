package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// presence key: pp:presence:<user>
// Value: gateway_id, TTL controls the online validity period
func presenceKey(user string) string { return "pp:presence:" + user }

// PresenceOnline sets the user as online and renews the TTL
func PresenceOnline(ctx context.Context, user, gatewayID string, ttl time.Duration) error {
	if rdb == nil {
		return fmt.Errorf("redis not initialized")
	}
	return rdb.Set(ctx, presenceKey(user), gatewayID, ttl).Err()
}

// PresenceOffline actively sets the user offline (deletes the key)
func PresenceOffline(ctx context.Context, user string) error {
	if rdb == nil {
		return fmt.Errorf("redis not initialized")
	}
	return rdb.Del(ctx, presenceKey(user)).Err()
}

// PresenceRenew refreshes only the TTL (heartbeat path); missing key is not an error
func PresenceRenew(ctx context.Context, user string, ttl time.Duration) error {
	if rdb == nil {
		return fmt.Errorf("redis not initialized")
	}
	return rdb.Expire(ctx, presenceKey(user), ttl).Err()
}

// PresenceLookup checks whether the user is online
func PresenceLookup(ctx context.Context, user string) (gatewayID string, online bool, err error) {
	if rdb == nil {
		return "", false, fmt.Errorf("redis not initialized")
	}
	val, err := rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
