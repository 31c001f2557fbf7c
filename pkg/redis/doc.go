// Package redis connects the gateway to the Redis server that backs the
// shared tenant cache (see tenant.RedisCache).
//
//	client, err := redis.Connect(ctx, cfg.Redis)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//	cache := tenant.NewRedisCache(client, tenant.WithRedisPrefix(cfg.Redis.KeyPrefix))
package redis
