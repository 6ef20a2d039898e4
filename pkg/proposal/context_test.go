package proposal

import (
	"testing"
	"time"

	"steward-hq/steward/pkg/yardstick"
)

func TestBuildContext_DerivedFields(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := &Record{
		ID:         "msg-1",
		User:       "alice",
		From:       "Weekly Deals <deals@Shop.Example.COM>",
		Subject:    "sale",
		Category:   "promotions",
		Labels:     []string{"inbox", "deals"},
		ReceivedAt: now.Add(-48 * time.Hour),
		ExpiresAt:  now.Add(-24 * time.Hour),
	}

	ctx := BuildContext(r, now)

	if got := ctx["sender_domain"]; got.Kind != yardstick.KindString || got.Str != "shop.example.com" {
		t.Errorf("sender_domain = %+v, want shop.example.com", got)
	}
	if got := ctx["age_days"]; got.Kind != yardstick.KindNumber || got.Num != 2 {
		t.Errorf("age_days = %+v, want 2", got)
	}
	if got := ctx["expired_days"]; got.Kind != yardstick.KindNumber || got.Num != 1 {
		t.Errorf("expired_days = %+v, want 1", got)
	}
	if got := ctx["label:deals"]; got.Kind != yardstick.KindBool || !got.Bool {
		t.Errorf("label:deals = %+v, want true", got)
	}
	if got := ctx["labels"]; got.Str != "inbox,deals" {
		t.Errorf("labels = %+v, want inbox,deals", got)
	}
}

func TestBuildContext_OmitsAbsentFields(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := &Record{
		ID:         "msg-2",
		User:       "alice",
		From:       "friend@example.org",
		Subject:    "hi",
		ReceivedAt: now.Add(-time.Hour),
	}

	ctx := BuildContext(r, now)

	for _, key := range []string{"category", "expires_at", "expired_days", "labels"} {
		if _, ok := ctx[key]; ok {
			t.Errorf("context contains %q for a record without it", key)
		}
	}
}

func TestStableFeatures_ExcludesVolatileFields(t *testing.T) {
	r := &Record{
		From:     "deals@shop.example.com",
		Category: "promotions",
	}

	features := StableFeatures(r)
	if len(features) != 2 {
		t.Fatalf("StableFeatures() returned %d features, want 2", len(features))
	}
	if features["category"] != "promotions" || features["sender_domain"] != "shop.example.com" {
		t.Errorf("StableFeatures() = %v", features)
	}

	keys := FeatureKeys(features)
	want := []string{"category:promotions", "sender_domain:shop.example.com"}
	if len(keys) != len(want) {
		t.Fatalf("FeatureKeys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("FeatureKeys()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestSenderDomain(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"a@b.com", "b.com"},
		{"Name <a@B.Com>", "b.com"},
		{"no-at-sign", ""},
		{"trailing@", ""},
	}
	for _, tt := range tests {
		if got := senderDomain(tt.addr); got != tt.want {
			t.Errorf("senderDomain(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}
