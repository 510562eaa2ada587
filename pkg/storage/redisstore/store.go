// Package redisstore keeps price records in Redis.
//
// Layout:
//
//	stock:price:<SYMBOL>   JSON encoded pricing.PriceRecord
//	stock:price:symbols    set of stored symbols
//	stock:price:seq        ID sequence
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"stockgen/internal/pricing"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "stock:price:"
	indexKey  = keyPrefix + "symbols"
	seqKey    = keyPrefix + "seq"
)

var _ pricing.Store = (*PriceStore)(nil)

type Config struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type PriceStore struct {
	rdb *redis.Client
}

// New connects and pings the server.
func New(ctx context.Context, cfg Config) (*PriceStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &PriceStore{rdb: rdb}, nil
}

// NewFromClient wraps an existing client.
func NewFromClient(rdb *redis.Client) *PriceStore {
	return &PriceStore{rdb: rdb}
}

func recordKey(symbol string) string {
	return keyPrefix + symbol
}

func (s *PriceStore) FindBySymbol(ctx context.Context, symbol string) (*pricing.PriceRecord, error) {
	b, err := s.rdb.Get(ctx, recordKey(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, pricing.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(b)
}

func (s *PriceStore) Upsert(ctx context.Context, rec *pricing.PriceRecord) (*pricing.PriceRecord, error) {
	out := *rec
	out.Timestamp = out.Timestamp.UTC()

	if out.ID == 0 {
		id, err := s.rdb.Incr(ctx, seqKey).Result()
		if err != nil {
			return nil, fmt.Errorf("next id: %w", err)
		}
		out.ID = uint(id)
	}

	b, err := json.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", out.Symbol, err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, recordKey(out.Symbol), b, 0)
	pipe.SAdd(ctx, indexKey, out.Symbol)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("write %s: %w", out.Symbol, err)
	}
	return &out, nil
}

func (s *PriceStore) DeleteBySymbol(ctx context.Context, symbol string) error {
	pipe := s.rdb.TxPipeline()
	del := pipe.Del(ctx, recordKey(symbol))
	pipe.SRem(ctx, indexKey, symbol)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	if del.Val() == 0 {
		return pricing.ErrNotFound
	}
	return nil
}

func (s *PriceStore) ListAll(ctx context.Context) ([]pricing.PriceRecord, error) {
	symbols, err := s.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return []pricing.PriceRecord{}, nil
	}
	sort.Strings(symbols)

	keys := make([]string, len(symbols))
	for i, sym := range symbols {
		keys[i] = recordKey(sym)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]pricing.PriceRecord, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			// removed between SMEMBERS and MGET
			continue
		}
		rec, err := decode([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (s *PriceStore) ClearAll(ctx context.Context) error {
	symbols, err := s.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(symbols)+1)
	for _, sym := range symbols {
		keys = append(keys, recordKey(sym))
	}
	keys = append(keys, indexKey)
	return s.rdb.Del(ctx, keys...).Err()
}

func (s *PriceStore) IsHealthy(ctx context.Context) bool {
	return s.rdb.Ping(ctx).Err() == nil
}

func (s *PriceStore) Close() error {
	return s.rdb.Close()
}

func decode(b []byte) (*pricing.PriceRecord, error) {
	var rec pricing.PriceRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("decode price record: %w", err)
	}
	return &rec, nil
}
