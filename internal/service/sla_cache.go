package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/placementops/ticketing/internal/domain"
)

const slaCachePrefix = "sla:"

// RedisSLACache stores SLA rows as JSON under sla:<ticket_type>.
type RedisSLACache struct {
	client *redis.Client
	ttl    time.Duration
}

type cachedSLA struct {
	TicketType domain.TicketType     `json:"ticket_type"`
	Priority   domain.TicketPriority `json:"priority"`
	Hours      int                   `json:"hours"`
}

// NewRedisSLACache returns a cache; a non-positive ttl disables expiry.
func NewRedisSLACache(client *redis.Client, ttl time.Duration) *RedisSLACache {
	return &RedisSLACache{client: client, ttl: ttl}
}

func (c *RedisSLACache) Get(ctx context.Context, ticketType domain.TicketType) (*domain.SLAConfig, error) {
	raw, err := c.client.Get(ctx, slaCachePrefix+string(ticketType)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry cachedSLA
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	return &domain.SLAConfig{TicketType: entry.TicketType, Priority: entry.Priority, Hours: entry.Hours}, nil
}

func (c *RedisSLACache) Set(ctx context.Context, cfg domain.SLAConfig) error {
	raw, err := json.Marshal(cachedSLA{TicketType: cfg.TicketType, Priority: cfg.Priority, Hours: cfg.Hours})
	if err != nil {
		return err
	}
	ttl := c.ttl
	if ttl < 0 {
		ttl = 0
	}
	return c.client.Set(ctx, slaCachePrefix+string(cfg.TicketType), raw, ttl).Err()
}
