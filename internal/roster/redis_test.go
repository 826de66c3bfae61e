package roster

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupSource(t *testing.T) (*RedisSource, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	src, err := OpenRedisSource("redis://"+s.Addr(), "test:roster")
	if err != nil {
		t.Fatalf("OpenRedisSource: %v", err)
	}
	t.Cleanup(func() { _ = src.Close() })
	return src, s
}

func TestRedisSourceFetch(t *testing.T) {
	src, s := setupSource(t)
	s.Set("test:roster", `{
		"communities":[{"id":" g1 ","name":"Guild One","icon":"  "},{"id":"g2","name":"Guild Two","icon":"g2.png"}],
		"tags":[{"community_id":"g1","tag_ids":["r1","r2"]}]
	}`)

	r, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !slices.Equal(r.CommunityIDs, []string{"g1", "g2"}) {
		t.Fatalf("unexpected community ids: %v", r.CommunityIDs)
	}
	if r.Communities[0].Icon != nil {
		t.Fatalf("blank icon should collapse to nil")
	}
	if r.Communities[1].Icon == nil || *r.Communities[1].Icon != "g2.png" {
		t.Fatalf("unexpected icon: %v", r.Communities[1].Icon)
	}
	if len(r.Tags) != 1 || r.Tags[0].CommunityID != "g1" {
		t.Fatalf("unexpected tags: %+v", r.Tags)
	}
}

func TestRedisSourceMissingKey(t *testing.T) {
	src, _ := setupSource(t)
	if _, err := src.Fetch(context.Background()); !errors.Is(err, ErrNoRoster) {
		t.Fatalf("expected ErrNoRoster, got %v", err)
	}
}

func TestRedisSourceMalformedDocument(t *testing.T) {
	src, s := setupSource(t)
	s.Set("test:roster", "{not json")
	if _, err := src.Fetch(context.Background()); err == nil || errors.Is(err, ErrNoRoster) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestNewRedisSourceWithClient(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	src := NewRedisSource(client, "k")
	defer src.Close()
	if err := src.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestOpenRedisSourceBadURL(t *testing.T) {
	if _, err := OpenRedisSource("://bad", "k"); err == nil {
		t.Fatal("expected error for malformed url")
	}
}
