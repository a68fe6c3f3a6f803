package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SetWithExpiration 设置键值对并设置过期时间
func SetWithExpiration(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return Rdb.Set(ctx, key, value, expiration).Err()
}

// SetIfAbsent 键不存在时写入，返回是否写入成功
func SetIfAbsent(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return Rdb.SetNX(ctx, key, value, expiration).Result()
}

// GetValue 获取字符串类型的值
func GetValue(ctx context.Context, key string) (string, error) {
	value, err := Rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// TryLock 抢占分布式锁，retryTimes 为额外重试次数
func TryLock(ctx context.Context, key string, token string, expiration time.Duration, retryTimes int) (bool, error) {
	for i := 0; ; i++ {
		ok, err := Rdb.SetNX(ctx, key, token, expiration).Result()
		if err != nil || ok {
			return ok, err
		}
		if i >= retryTimes {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

var unlockScript = redis.NewScript(`if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end`)

// UnLock 只释放自己持有的锁
func UnLock(ctx context.Context, key string, token string) error {
	return unlockScript.Run(ctx, Rdb, []string{key}, token).Err()
}

// IncrWithDirty 计数器自增并登记到脏集合，由定时任务回写
func IncrWithDirty(ctx context.Context, counterKey string, dirtyKey string, member string) (int64, error) {
	return IncrByWithDirty(ctx, counterKey, dirtyKey, member, 1)
}

// IncrByWithDirty 回写失败时把增量还回计数器
func IncrByWithDirty(ctx context.Context, counterKey string, dirtyKey string, member string, delta int64) (int64, error) {
	pipe := Rdb.TxPipeline()
	incr := pipe.IncrBy(ctx, counterKey, delta)
	pipe.SAdd(ctx, dirtyKey, member)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// GetAndDelete 原子读取并删除
func GetAndDelete(ctx context.Context, key string) (string, error) {
	value, err := Rdb.GetDel(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// GetSet 获取集合
func GetSet(ctx context.Context, key string) ([]string, error) {
	value, err := Rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Rename 键不存在时返回 false
func Rename(ctx context.Context, oldKey string, newKey string) (bool, error) {
	err := Rdb.Rename(ctx, oldKey, newKey).Err()
	if err != nil {
		if err.Error() == "ERR no such key" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteKey 删除一个键
func DeleteKey(ctx context.Context, key string) error {
	return Rdb.Del(ctx, key).Err()
}

// GetRdbClient 获取redis客户端
func GetRdbClient() *redis.Client {
	return Rdb
}
