package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinylink-io/tinylink/internal/model"
	"github.com/tinylink-io/tinylink/internal/repository"
	"github.com/tinylink-io/tinylink/internal/testutil"
)

var testDB *testutil.TestDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	testDB, err = testutil.SetupTestDB(ctx)
	if err != nil {
		panic("failed to setup test database: " + err.Error())
	}

	// Run tests
	code := m.Run()

	// Cleanup
	testDB.Teardown(ctx)
	os.Exit(code)
}

func newTestService() *URLService {
	store := repository.NewURLRepository(testDB.Pool)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewURLService(store, nil, logger, 8, 3)
}

func TestURLService_Shorten(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	t.Run("creates a short link for a valid URL", func(t *testing.T) {
		testDB.Cleanup(ctx)

		link, err := svc.Shorten(ctx, "https://example.com/very/long/url")
		require.NoError(t, err)

		assert.Len(t, link.ShortCode, 8)
		assert.Equal(t, "https://example.com/very/long/url", link.OriginalURL)
		assert.Equal(t, int64(0), link.Clicks)
		assert.Nil(t, link.LastAccessed)
		assert.WithinDuration(t, time.Now(), link.CreatedAt, time.Minute)

		// Verify in database
		var count int
		err = testDB.Pool.QueryRow(ctx,
			"SELECT COUNT(*) FROM urls WHERE short_code = $1", link.ShortCode).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("rejects malformed URLs before touching the store", func(t *testing.T) {
		testDB.Cleanup(ctx)

		for _, raw := range []string{
			"",
			"not-a-url",
			"example.com/missing-scheme",
			"/relative/path",
			"http://",
			"://missing-scheme.com",
		} {
			_, err := svc.Shorten(ctx, raw)
			assert.ErrorIs(t, err, ErrInvalidURL, "input %q", raw)
		}

		// Nothing persisted
		var count int
		err := testDB.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM urls").Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestURLService_Resolve(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	t.Run("round trip returns the original URL", func(t *testing.T) {
		testDB.Cleanup(ctx)

		link, err := svc.Shorten(ctx, "https://example.com/roundtrip")
		require.NoError(t, err)

		destination, err := svc.Resolve(ctx, link.ShortCode, model.Click{})
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/roundtrip", destination)
	})

	t.Run("unknown code fails with not found and causes no mutation", func(t *testing.T) {
		testDB.Cleanup(ctx)

		_, err := svc.Resolve(ctx, "missing1", model.Click{})
		assert.ErrorIs(t, err, ErrURLNotFound)

		var count int
		err = testDB.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM clicks").Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("records the click without blocking the resolve", func(t *testing.T) {
		testDB.Cleanup(ctx)

		link, err := svc.Shorten(ctx, "https://example.com/tracked")
		require.NoError(t, err)

		_, err = svc.Resolve(ctx, link.ShortCode, model.Click{
			IPAddress: "203.0.113.9",
			UserAgent: "test-agent",
			Referer:   "https://referrer.example",
		})
		require.NoError(t, err)

		// Click tracking is fire-and-forget, so poll for the write.
		require.Eventually(t, func() bool {
			var clicks int64
			if err := testDB.Pool.QueryRow(ctx,
				"SELECT clicks FROM urls WHERE short_code = $1", link.ShortCode).Scan(&clicks); err != nil {
				return false
			}
			return clicks == 1
		}, 5*time.Second, 50*time.Millisecond)

		var lastAccessed *time.Time
		err = testDB.Pool.QueryRow(ctx,
			"SELECT last_accessed FROM urls WHERE short_code = $1", link.ShortCode).Scan(&lastAccessed)
		require.NoError(t, err)
		require.NotNil(t, lastAccessed)
		assert.WithinDuration(t, time.Now(), *lastAccessed, time.Minute)

		var ip, agent, referer string
		err = testDB.Pool.QueryRow(ctx,
			"SELECT ip_address, user_agent, referer FROM clicks WHERE short_code = $1",
			link.ShortCode).Scan(&ip, &agent, &referer)
		require.NoError(t, err)
		assert.Equal(t, "203.0.113.9", ip)
		assert.Equal(t, "test-agent", agent)
		assert.Equal(t, "https://referrer.example", referer)
	})

	t.Run("concurrent resolves lose no click", func(t *testing.T) {
		testDB.Cleanup(ctx)

		link, err := svc.Shorten(ctx, "https://example.com/concurrent")
		require.NoError(t, err)

		const resolves = 25
		var wg sync.WaitGroup
		for i := 0; i < resolves; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.Resolve(ctx, link.ShortCode, model.Click{})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		require.Eventually(t, func() bool {
			var clicks int64
			if err := testDB.Pool.QueryRow(ctx,
				"SELECT clicks FROM urls WHERE short_code = $1", link.ShortCode).Scan(&clicks); err != nil {
				return false
			}
			return clicks == resolves
		}, 10*time.Second, 100*time.Millisecond)

		var events int
		err = testDB.Pool.QueryRow(ctx,
			"SELECT COUNT(*) FROM clicks WHERE short_code = $1", link.ShortCode).Scan(&events)
		require.NoError(t, err)
		assert.Equal(t, resolves, events)
	})
}

func TestURLService_GetStats(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	t.Run("returns the link with its click history", func(t *testing.T) {
		testDB.Cleanup(ctx)

		link, err := svc.Shorten(ctx, "https://example.com/stats")
		require.NoError(t, err)

		_, err = svc.Resolve(ctx, link.ShortCode, model.Click{UserAgent: "stats-agent"})
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			stats, err := svc.GetStats(ctx, link.ShortCode)
			return err == nil && len(stats.ClickEvents) == 1 && stats.Clicks == 1
		}, 5*time.Second, 50*time.Millisecond)

		stats, err := svc.GetStats(ctx, link.ShortCode)
		require.NoError(t, err)
		assert.Equal(t, link.ShortCode, stats.ShortCode)
		assert.Equal(t, "https://example.com/stats", stats.OriginalURL)
		assert.Equal(t, "stats-agent", stats.ClickEvents[0].UserAgent)
	})

	t.Run("unknown code fails with not found", func(t *testing.T) {
		testDB.Cleanup(ctx)

		_, err := svc.GetStats(ctx, "missing1")
		assert.ErrorIs(t, err, ErrURLNotFound)
	})
}

func TestURLService_ListAll(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	t.Run("returns an empty slice when no links exist", func(t *testing.T) {
		testDB.Cleanup(ctx)

		links, err := svc.ListAll(ctx)
		require.NoError(t, err)
		assert.NotNil(t, links)
		assert.Empty(t, links)
	})

	t.Run("orders links newest first", func(t *testing.T) {
		testDB.Cleanup(ctx)

		first, err := svc.Shorten(ctx, "https://example.com/first")
		require.NoError(t, err)
		time.Sleep(20 * time.Millisecond)
		second, err := svc.Shorten(ctx, "https://example.com/second")
		require.NoError(t, err)
		time.Sleep(20 * time.Millisecond)
		third, err := svc.Shorten(ctx, "https://example.com/third")
		require.NoError(t, err)

		links, err := svc.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, links, 3)
		assert.Equal(t, third.ShortCode, links[0].ShortCode)
		assert.Equal(t, second.ShortCode, links[1].ShortCode)
		assert.Equal(t, first.ShortCode, links[2].ShortCode)
	})
}
