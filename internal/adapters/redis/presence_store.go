package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gelatohub/painel/internal/domain/presence"
	"github.com/gelatohub/painel/internal/ports"
)

// Presence keys: a sorted set of user ids scored by last heartbeat (unix
// seconds) and a hash of the JSON-encoded entries.
const (
	DefaultPresenceOnlineKey = "presence:online"
	DefaultPresenceMetaKey   = "presence:meta"
)

// PresenceStore keeps heartbeats in Redis so every replica sees the same
// online set.
type PresenceStore struct {
	client    redis.UniversalClient
	onlineKey string
	metaKey   string
}

var _ ports.PresenceStore = (*PresenceStore)(nil)

// NewPresenceStore creates a PresenceStore with the default keys.
func NewPresenceStore(client redis.UniversalClient) *PresenceStore {
	return &PresenceStore{client: client, onlineKey: DefaultPresenceOnlineKey, metaKey: DefaultPresenceMetaKey}
}

func (s *PresenceStore) Track(ctx context.Context, e presence.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal presence: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, s.onlineKey, redis.Z{Score: float64(e.OnlineAt.Unix()), Member: e.UserID})
		p.HSet(ctx, s.metaKey, e.UserID, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("track presence: %w", err)
	}
	return nil
}

func (s *PresenceStore) Remove(ctx context.Context, userID string) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRem(ctx, s.onlineKey, userID)
		p.HDel(ctx, s.metaKey, userID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("remove presence: %w", err)
	}
	return nil
}

// Online returns entries seen at or after since, most recent first.
func (s *PresenceStore) Online(ctx context.Context, since time.Time) ([]presence.Entry, error) {
	ids, err := s.client.ZRevRangeByScore(ctx, s.onlineKey, &redis.ZRangeBy{
		Min: strconv.FormatInt(since.Unix(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list presence: %w", err)
	}
	if len(ids) == 0 {
		return []presence.Entry{}, nil
	}
	raw, err := s.client.HMGet(ctx, s.metaKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("load presence: %w", err)
	}
	out := make([]presence.Entry, 0, len(ids))
	for i, v := range raw {
		str, ok := v.(string)
		if !ok {
			out = append(out, presence.Entry{UserID: ids[i], Page: presence.DefaultPage})
			continue
		}
		var e presence.Entry
		if err := json.Unmarshal([]byte(str), &e); err != nil {
			return nil, fmt.Errorf("decode presence %s: %w", ids[i], err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *PresenceStore) Count(ctx context.Context, since time.Time) (int, error) {
	n, err := s.client.ZCount(ctx, s.onlineKey, strconv.FormatInt(since.Unix(), 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count presence: %w", err)
	}
	return int(n), nil
}

// Prune removes entries last seen before the given time.
func (s *PresenceStore) Prune(ctx context.Context, before time.Time) (int, error) {
	max := "(" + strconv.FormatInt(before.Unix(), 10)
	ids, err := s.client.ZRangeByScore(ctx, s.onlineKey, &redis.ZRangeBy{Min: "-inf", Max: max}).Result()
	if err != nil {
		return 0, fmt.Errorf("scan stale presence: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRem(ctx, s.onlineKey, members...)
		p.HDel(ctx, s.metaKey, ids...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("prune presence: %w", err)
	}
	return len(ids), nil
}
