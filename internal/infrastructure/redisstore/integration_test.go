package redisstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sngm3741/avero-reporting/api/internal/reporting/domain"
)

func requireIntegration(t *testing.T) {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	name, port := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(name) })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rdb, err := Connect(ctx, Options{Addr: fmt.Sprintf("127.0.0.1:%s", port)})
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestResultCacheRoundTrip(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()
	rdb := newTestRedis(t)
	cache := NewResultCache(rdb, time.Minute)
	q := sampleQuery()
	result := domain.RollupResult{Report: q.Report, TimeInterval: q.TimeInterval, Count: 1,
		Data: []domain.RollupRow{{Value: 43.5}}}

	gen, err := cache.Generation(ctx, q.Report)
	if err != nil || gen != 0 {
		t.Fatalf("initial generation = %d, %v", gen, err)
	}
	if err := cache.Set(ctx, q, gen, result); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := cache.Get(ctx, q, gen)
	if err != nil || !ok || got.Data[0].Value != 43.5 {
		t.Fatalf("Get = %+v, %v, %v", got, ok, err)
	}
	if ttl := rdb.TTL(ctx, setKey(q.Report)).Val(); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("key set TTL = %v", ttl)
	}

	if err := cache.Invalidate(ctx, q.Report); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, q, gen); ok {
		t.Fatal("entry survived Invalidate")
	}
	if n := rdb.Exists(ctx, setKey(q.Report)).Val(); n != 0 {
		t.Fatal("key set survived Invalidate")
	}
	next, err := cache.Generation(ctx, q.Report)
	if err != nil || next != gen+1 {
		t.Fatalf("generation after Invalidate = %d, %v", next, err)
	}

	// a query that started before the regeneration finishes afterwards
	if err := cache.Set(ctx, q, gen, result); err != nil {
		t.Fatalf("stale Set: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, q, next); ok {
		t.Fatal("stale result visible under the new generation")
	}
	if n := rdb.Exists(ctx, resultKey(q, gen)).Val(); n != 0 {
		t.Fatal("stale result was written")
	}
}

func TestLockerRefreshAndRelease(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()
	rdb := newTestRedis(t)
	locker := NewLocker(rdb)

	lock, err := locker.Obtain(ctx, "generate:EGS", time.Second)
	if err != nil {
		t.Fatalf("Obtain: %v", err)
	}
	if err := lock.Refresh(ctx, time.Minute); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if ttl := rdb.PTTL(ctx, lockPrefix+"generate:EGS").Val(); ttl < 30*time.Second {
		t.Fatalf("TTL after refresh = %v", ttl)
	}

	if _, err := locker.Obtain(ctx, "generate:EGS", time.Minute); !errors.Is(err, domain.ErrRunInProgress) {
		t.Fatalf("second Obtain = %v", err)
	}
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	again, err := locker.Obtain(ctx, "generate:EGS", time.Minute)
	if err != nil {
		t.Fatalf("Obtain after release: %v", err)
	}
	_ = again.Release(ctx)
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("avero-reporting-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := dockerRun("exec", name, "redis-cli", "ping"); err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	m := regexp.MustCompile(`:(\d+)`).FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	b, err := exec.Command("docker", args...).CombinedOutput()
	return string(b), err
}
