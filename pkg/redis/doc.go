// Package redis connects a go-redis client from a REDIS_URL and exposes a
// readiness probe.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
package redis
