package redis

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/dailyyoga/warmcache/cache"
)

type plan struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
}

func TestKeySource_JSON(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	defer mr.Close()
	defer rdb.Close()

	mr.Set("plans", `[{"name":"basic","price":10},{"name":"pro","price":30}]`)

	plans, err := NewKeySource[[]plan](rdb, "plans", nil).Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(plans) != 2 || plans[1].Name != "pro" || plans[1].Price != 30 {
		t.Errorf("unexpected plans: %+v", plans)
	}
}

func TestKeySource_CustomDecoder(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	defer mr.Close()
	defer rdb.Close()

	mr.Set("limit", "250")

	src := NewKeySource(rdb, "limit", func(data []byte) (int, error) {
		return strconv.Atoi(string(data))
	})
	if v, err := src.Refresh(context.Background()); err != nil || v != 250 {
		t.Errorf("unexpected result: %v, %v", v, err)
	}
}

func TestKeySource_Errors(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	defer mr.Close()
	defer rdb.Close()
	ctx := context.Background()

	if _, err := NewKeySource[int](rdb, "missing", nil).Refresh(ctx); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}

	mr.Set("broken", "{not json")
	if _, err := NewKeySource[plan](rdb, "broken", nil).Refresh(ctx); err == nil {
		t.Error("expected decode error")
	}
}

func TestHashSource(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	defer mr.Close()
	defer rdb.Close()
	ctx := context.Background()

	mr.HSet("flags", "dark_mode", "on", "beta", "off")

	flags, err := HashSource(rdb, "flags").Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(flags) != 2 || flags["dark_mode"] != "on" {
		t.Errorf("unexpected flags: %v", flags)
	}

	if _, err := HashSource(rdb, "nope").Refresh(ctx); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestKeySource_DrivesCache(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	defer mr.Close()
	defer rdb.Close()

	mr.Set("limit", "1")
	h, err := cache.New[int](testLogger(t)).
		WithRefresh(NewKeySource[int](rdb, "limit", nil)).
		WithFrequency(10 * time.Millisecond).
		Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	defer h.Close()

	mr.Set("limit", "2")
	deadline := time.Now().Add(3 * time.Second)
	for h.Get() != 2 {
		if time.Now().After(deadline) {
			t.Fatal("cache did not pick up the new value")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
