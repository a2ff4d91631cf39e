package imagecache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gatehouse-console/gatehouse/internal/imagecache"
)

type stubFetcher struct {
	mu      sync.Mutex
	calls   map[string]int
	block   chan struct{}
	failing map[string]bool
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{calls: map[string]int{}, failing: map[string]bool{}}
}

func (f *stubFetcher) FetchImage(ctx context.Context, filename string) ([]byte, string, error) {
	f.mu.Lock()
	f.calls[filename]++
	block := f.block
	fail := f.failing[filename]
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
	}
	if fail {
		return nil, "", errors.New("no image")
	}
	return []byte("img:" + filename), "image/jpeg", nil
}

func (f *stubFetcher) callCount(filename string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[filename]
}

func TestResolveAndLookup(t *testing.T) {
	fetcher := newStubFetcher()
	cache, err := imagecache.New(fetcher, 8, nil)
	require.NoError(t, err)
	defer cache.Close()

	require.NoError(t, cache.Wait(context.Background(), []string{"a.jpg", "b.jpg"}))

	img, state := cache.Lookup("a.jpg")
	require.Equal(t, imagecache.StateResolved, state)
	require.Equal(t, []byte("img:a.jpg"), img.Data)
	require.Equal(t, "image/jpeg", img.ContentType)
}

func TestEmptyFilenameNeverFetches(t *testing.T) {
	fetcher := newStubFetcher()
	cache, err := imagecache.New(fetcher, 8, nil)
	require.NoError(t, err)
	defer cache.Close()

	require.NoError(t, cache.Wait(context.Background(), []string{"", "", ""}))
	require.Equal(t, 0, fetcher.callCount(""))

	_, state := cache.Lookup("")
	require.Equal(t, imagecache.StateFailed, state)
}

func TestConcurrentResolveIsIdempotent(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.block = make(chan struct{})
	cache, err := imagecache.New(fetcher, 8, nil)
	require.NoError(t, err)
	defer cache.Close()

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cache.Resolve(context.Background(), []string{"face.jpg"})
		}()
	}
	wg.Wait()

	_, state := cache.Lookup("face.jpg")
	require.Equal(t, imagecache.StatePending, state)

	close(fetcher.block)
	require.NoError(t, cache.Wait(context.Background(), []string{"face.jpg"}))

	require.Equal(t, 1, fetcher.callCount("face.jpg"))
	img, state := cache.Lookup("face.jpg")
	require.Equal(t, imagecache.StateResolved, state)
	require.Equal(t, []byte("img:face.jpg"), img.Data)
}

func TestFailureIsExplicitNullAndIndependent(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.failing["broken.jpg"] = true
	cache, err := imagecache.New(fetcher, 8, nil)
	require.NoError(t, err)
	defer cache.Close()

	require.NoError(t, cache.Wait(context.Background(), []string{"broken.jpg", "ok.jpg"}))

	_, state := cache.Lookup("broken.jpg")
	require.Equal(t, imagecache.StateFailed, state)

	img, state := cache.Lookup("ok.jpg")
	require.Equal(t, imagecache.StateResolved, state)
	require.Equal(t, []byte("img:ok.jpg"), img.Data)

	// Failed entries are never refetched.
	require.NoError(t, cache.Wait(context.Background(), []string{"broken.jpg"}))
	require.Equal(t, 1, fetcher.callCount("broken.jpg"))
}

func TestResolvedEntryNeverRefetched(t *testing.T) {
	fetcher := newStubFetcher()
	cache, err := imagecache.New(fetcher, 8, nil)
	require.NoError(t, err)
	defer cache.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, cache.Wait(context.Background(), []string{"same.jpg"}))
	}
	require.Equal(t, 1, fetcher.callCount("same.jpg"))
}

func TestLRUBoundEvictsOldEntries(t *testing.T) {
	fetcher := newStubFetcher()
	cache, err := imagecache.New(fetcher, 2, nil)
	require.NoError(t, err)
	defer cache.Close()

	require.NoError(t, cache.Wait(context.Background(), []string{"1.jpg", "2.jpg", "3.jpg"}))
	require.Equal(t, 2, cache.Len())

	// An evicted filename reads as unknown and would be refetched on demand.
	_, state := cache.Lookup("1.jpg")
	require.Equal(t, imagecache.StateUnknown, state)
}

func TestWaitHonorsContext(t *testing.T) {
	fetcher := newStubFetcher()
	fetcher.block = make(chan struct{})
	defer close(fetcher.block)
	cache, err := imagecache.New(fetcher, 8, nil)
	require.NoError(t, err)
	defer cache.Close()

	cache.Resolve(context.Background(), []string{"slow.jpg"})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err = cache.Wait(ctx, []string{"slow.jpg"})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, state := cache.Lookup("slow.jpg")
	require.Equal(t, imagecache.StatePending, state)
}
