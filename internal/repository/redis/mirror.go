package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/freeeve/kingdom-capitals/internal/model"
	"github.com/freeeve/kingdom-capitals/internal/repository"
	"github.com/freeeve/kingdom-capitals/pkg/capitals"
)

var _ repository.CapitalMirror = (*Client)(nil)

// Key patterns for the mirror.
func (c *Client) byFactionKey() string    { return c.prefix + ":by_faction" }
func (c *Client) bySettlementKey() string { return c.prefix + ":by_settlement" }
func (c *Client) recentKey() string       { return c.prefix + ":recently_captured" }

// NotificationChannel is the pub/sub channel notifications are published on.
func (c *Client) NotificationChannel() string { return c.prefix + ":notifications" }

// SyncCapitals replaces the mirrored registry in one transaction.
func (c *Client) SyncCapitals(ctx context.Context, entries []capitals.Entry, recent []capitals.SettlementID) error {
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, c.byFactionKey(), c.bySettlementKey(), c.recentKey())
		if len(entries) > 0 {
			byFaction := make(map[string]any, len(entries))
			bySettlement := make(map[string]any, len(entries))
			for _, e := range entries {
				byFaction[string(e.Faction)] = string(e.Settlement)
				bySettlement[string(e.Settlement)] = string(e.Faction)
			}
			p.HSet(ctx, c.byFactionKey(), byFaction)
			p.HSet(ctx, c.bySettlementKey(), bySettlement)
		}
		if len(recent) > 0 {
			members := make([]any, len(recent))
			for i, s := range recent {
				members[i] = string(s)
			}
			p.SAdd(ctx, c.recentKey(), members...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sync capitals: %w", err)
	}
	return nil
}

// PublishNotification publishes n as JSON on the notification channel.
func (c *Client) PublishNotification(ctx context.Context, n model.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := c.rdb.Publish(ctx, c.NotificationChannel(), data).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Clear removes the mirrored registry.
func (c *Client) Clear(ctx context.Context) error {
	return c.rdb.Del(ctx, c.byFactionKey(), c.bySettlementKey(), c.recentKey()).Err()
}

// CapitalOf reads a faction's capital from the mirror. A missing faction
// returns an empty id.
func (c *Client) CapitalOf(ctx context.Context, faction capitals.FactionID) (capitals.SettlementID, error) {
	s, err := c.rdb.HGet(ctx, c.byFactionKey(), string(faction)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get capital: %w", err)
	}
	return capitals.SettlementID(s), nil
}

// IsCapital is the mirrored capital predicate.
func (c *Client) IsCapital(ctx context.Context, settlement capitals.SettlementID) (bool, error) {
	return c.rdb.HExists(ctx, c.bySettlementKey(), string(settlement)).Result()
}

// WasRecentlyCaptured reports whether settlement is in the mirrored recently
// captured set.
func (c *Client) WasRecentlyCaptured(ctx context.Context, settlement capitals.SettlementID) (bool, error) {
	return c.rdb.SIsMember(ctx, c.recentKey(), string(settlement)).Result()
}

// Subscribe returns a subscription to the notification channel.
func (c *Client) Subscribe(ctx context.Context) *redis.PubSub {
	return c.rdb.Subscribe(ctx, c.NotificationChannel())
}
