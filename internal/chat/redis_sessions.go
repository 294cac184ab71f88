package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"eduai/internal/models"
	"eduai/internal/util"
)

const redisKeyPrefix = "eduai:chat:"

// RedisSessions stores each session as a capped list of JSON turns plus a
// marker key, both expiring together.
type RedisSessions struct {
	client   *redis.Client
	ttl      time.Duration
	maxTurns int
}

// NewRedisClient mirrors the pool settings used across our services.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     50,
		MinIdleConns: 5,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

func NewRedisSessions(client *redis.Client, ttl time.Duration, maxTurns int) *RedisSessions {
	return &RedisSessions{client: client, ttl: ttl, maxTurns: maxTurns}
}

func metaKey(id string) string  { return redisKeyPrefix + id + ":meta" }
func turnsKey(id string) string { return redisKeyPrefix + id + ":turns" }

func (r *RedisSessions) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	if err := r.client.Set(ctx, metaKey(id), time.Now().UTC().Format(time.RFC3339), r.ttl).Err(); err != nil {
		return "", fmt.Errorf("create chat session: %w", err)
	}
	return id, nil
}

func (r *RedisSessions) Append(ctx context.Context, sessionID string, turn models.ChatTurn) error {
	if err := r.ensure(ctx, sessionID); err != nil {
		return err
	}
	b, err := encodeTurn(turn)
	if err != nil {
		return err
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, turnsKey(sessionID), b)
		if r.maxTurns > 0 {
			p.LTrim(ctx, turnsKey(sessionID), int64(-r.maxTurns), -1)
		}
		p.Expire(ctx, turnsKey(sessionID), r.ttl)
		p.Expire(ctx, metaKey(sessionID), r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append chat turn: %w", err)
	}
	return nil
}

func (r *RedisSessions) History(ctx context.Context, sessionID string, limit int) ([]models.ChatTurn, error) {
	if err := r.ensure(ctx, sessionID); err != nil {
		return nil, err
	}
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	raw, err := r.client.LRange(ctx, turnsKey(sessionID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read chat history: %w", err)
	}
	out := make([]models.ChatTurn, 0, len(raw))
	for _, s := range raw {
		t, err := decodeTurn(s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *RedisSessions) ensure(ctx context.Context, sessionID string) error {
	n, err := r.client.Exists(ctx, metaKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("check chat session: %w", err)
	}
	if n == 0 {
		return util.ErrSessionNotFound
	}
	return nil
}

func encodeTurn(t models.ChatTurn) (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("encode chat turn: %w", err)
	}
	return string(b), nil
}

func decodeTurn(s string) (models.ChatTurn, error) {
	var t models.ChatTurn
	if err := json.Unmarshal([]byte(s), &t); err != nil {
		return models.ChatTurn{}, fmt.Errorf("decode chat turn: %w", err)
	}
	return t, nil
}
