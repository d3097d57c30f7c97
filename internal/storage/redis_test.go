package storage

import (
	"os"
	"testing"
)

func TestRedisStateStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping redis test")
	}

	store, err := NewRedisStateStore(RedisConfig{Addr: addr})
	if err != nil {
		t.Fatalf("Failed to connect to redis: %v", err)
	}
	defer store.Close()

	stateStoreContract(t, store)
}

func TestNewRedisStateStoreUnreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping network test in short mode")
	}
	if _, err := NewRedisStateStore(RedisConfig{Addr: "127.0.0.1:1"}); err == nil {
		t.Error("Expected error connecting to closed port")
	}
}
