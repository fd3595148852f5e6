//go:build integration

package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/freeeve/kingdom-capitals/internal/model"
	"github.com/freeeve/kingdom-capitals/internal/testutil"
	"github.com/freeeve/kingdom-capitals/pkg/capitals"
)

func setup(t *testing.T) *Client {
	t.Helper()
	return NewClientFromPool(testutil.Mirror(t), "test")
}

func TestSyncCapitals(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	entries := []capitals.Entry{
		{Faction: "sturgia", Settlement: "town_S2"},
		{Faction: "vlandia", Settlement: "town_V5"},
	}
	if err := c.SyncCapitals(ctx, entries, []capitals.SettlementID{"town_A1"}); err != nil {
		t.Fatalf("sync: %v", err)
	}

	got, err := c.CapitalOf(ctx, "vlandia")
	if err != nil || got != "town_V5" {
		t.Fatalf("capital of vlandia = %q (%v)", got, err)
	}
	if ok, _ := c.IsCapital(ctx, "town_S2"); !ok {
		t.Error("town_S2 should be mirrored as a capital")
	}
	if ok, _ := c.WasRecentlyCaptured(ctx, "town_A1"); !ok {
		t.Error("town_A1 should be mirrored as recently captured")
	}

	// A later sync replaces the whole mirror.
	if err := c.SyncCapitals(ctx, entries[:1], nil); err != nil {
		t.Fatalf("resync: %v", err)
	}
	if ok, _ := c.IsCapital(ctx, "town_V5"); ok {
		t.Error("town_V5 should have been dropped")
	}
	if ok, _ := c.WasRecentlyCaptured(ctx, "town_A1"); ok {
		t.Error("recently captured set should be replaced")
	}
	if got, _ := c.CapitalOf(ctx, "vlandia"); got != "" {
		t.Errorf("expected no capital, got %q", got)
	}
}

func TestClearMirror(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	c.SyncCapitals(ctx, []capitals.Entry{{Faction: "aserai", Settlement: "town_A1"}}, []capitals.SettlementID{"town_V5"})
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if ok, _ := c.IsCapital(ctx, "town_A1"); ok {
		t.Error("mirror should be empty")
	}
	if ok, _ := c.WasRecentlyCaptured(ctx, "town_V5"); ok {
		t.Error("recent set should be empty")
	}
}

func TestPublishNotification(t *testing.T) {
	c := setup(t)
	ctx := context.Background()

	sub := c.Subscribe(ctx)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	n := model.Notification{Kind: model.NotifyConquest, Day: 4, Settlement: "town_V5", Faction: "vlandia", Text: "Galend has fallen! Vlandia is no more!"}
	if err := c.PublishNotification(ctx, n); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var got model.Notification
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got != n {
			t.Errorf("got %+v, want %+v", got, n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}
