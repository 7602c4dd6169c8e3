package redis

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

// Client 封装 go-redis，按地址数量自动选择单机或集群客户端。
type Client struct {
	cmdable goredis.UniversalClient
}

// NewClient 创建 redis 客户端。addrs 格式为 "host1:port1,host2:port2"。
func NewClient(addrs string) (*Client, error) {
	parts := strings.Split(addrs, ",")

	var client goredis.UniversalClient
	if len(parts) > 1 {
		client = goredis.NewClusterClient(&goredis.ClusterOptions{Addrs: parts})
	} else {
		client = goredis.NewClient(&goredis.Options{Addr: parts[0]})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to connect to redis at %s", addrs)
	}
	return &Client{cmdable: client}, nil
}

// GetClient 暴露底层客户端，供需要 pipeline 等高级能力的调用方使用。
func (c *Client) GetClient() goredis.UniversalClient {
	return c.cmdable
}

// SetNX 仅当 key 不存在时写入，返回是否写入成功。用于幂等去重。
func (c *Client) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return c.cmdable.SetNX(ctx, key, value, ttl).Result()
}

// Get 读取字符串值，key 不存在时返回 ("", nil)。
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.cmdable.Get(ctx, key).Result()
	if err == goredis.Nil {
		return "", nil
	}
	return val, err
}

// Set 写入字符串值。
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.cmdable.Set(ctx, key, value, ttl).Err()
}

// Del 删除 key。
func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.cmdable.Del(ctx, keys...).Err()
}

// Close 关闭底层连接。
func (c *Client) Close() error {
	return c.cmdable.Close()
}
