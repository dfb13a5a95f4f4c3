package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-reports/internal/report"
)

type fakeBlobs struct {
	objects map[string][]byte
	listErr error
	opens   atomic.Int32
	lists   atomic.Int32
}

func (f *fakeBlobs) List(_ context.Context, prefix string) ([]Object, error) {
	f.lists.Add(1)
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []Object
	for name, data := range f.objects {
		if strings.HasPrefix(name, prefix) {
			out = append(out, Object{Name: name, Size: int64(len(data))})
		}
	}
	return out, nil
}

func (f *fakeBlobs) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f.opens.Add(1)
	data, ok := f.objects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func seoCategory(t *testing.T) report.Category {
	t.Helper()
	c, err := report.LookupCategory(report.CategorySEO)
	require.NoError(t, err)
	return c
}

func TestBlobStoreListFiltersAndSorts(t *testing.T) {
	t.Parallel()

	blobs := &fakeBlobs{objects: map[string][]byte{
		"reports/seo_report_2024-02-02.csv.gz":    nil,
		"reports/seo_report_2024-01-05.csv":       nil,
		"reports/seo_report_2024-01-05.json":      nil,
		"reports/accessibility_report_2024-01.csv": nil,
		"seo_report_2024-03-01.csv.gz":            nil,
	}}
	store := NewStore(blobs, Config{Prefix: "reports"}, zap.NewNop())

	ids, err := store.ListIdentifiers(context.Background(), seoCategory(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"reports/seo_report_2024-01-05.csv", "reports/seo_report_2024-02-02.csv.gz"}, ids)
}

func TestBlobStoreListError(t *testing.T) {
	t.Parallel()

	blobs := &fakeBlobs{listErr: fmt.Errorf("%w: timeout", ErrStorageUnavailable)}
	_, err := NewStore(blobs, Config{}, nil).ListIdentifiers(context.Background(), seoCategory(t))
	require.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestBlobStoreFetch(t *testing.T) {
	t.Parallel()

	blobs := &fakeBlobs{objects: map[string][]byte{"seo_report_2024-01-05.csv.gz": gzipBytes(t, seoCSV)}}
	store := NewStore(blobs, Config{}, nil)

	table, err := store.Fetch(context.Background(), "seo_report_2024-01-05.csv.gz")
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())

	_, err = store.Fetch(context.Background(), "seo_report_2024-09-01.csv.gz")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCachingStoreMemoizes(t *testing.T) {
	t.Parallel()

	blobs := &fakeBlobs{objects: map[string][]byte{"seo_report_2024-01-05.csv": []byte(seoCSV)}}
	cache := NewCachingStore(NewStore(blobs, Config{}, nil), 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ids, err := cache.ListIdentifiers(ctx, seoCategory(t))
		require.NoError(t, err)
		require.Len(t, ids, 1)
		_, err = cache.Fetch(ctx, ids[0])
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), blobs.lists.Load())
	assert.Equal(t, int32(1), blobs.opens.Load())

	cache.Invalidate()
	_, err := cache.ListIdentifiers(ctx, seoCategory(t))
	require.NoError(t, err)
	_, err = cache.Fetch(ctx, "seo_report_2024-01-05.csv")
	require.NoError(t, err)
	assert.Equal(t, int32(2), blobs.lists.Load())
	assert.Equal(t, int32(2), blobs.opens.Load())
}

func TestCachingStoreExpiresEntries(t *testing.T) {
	t.Parallel()

	blobs := &fakeBlobs{objects: map[string][]byte{"seo_report_2024-01-05.csv": []byte(seoCSV)}}
	cache := NewCachingStore(NewStore(blobs, Config{}, nil), 20*time.Millisecond)
	ctx := context.Background()

	_, err := cache.Fetch(ctx, "seo_report_2024-01-05.csv")
	require.NoError(t, err)
	_, err = cache.Fetch(ctx, "seo_report_2024-01-05.csv")
	require.NoError(t, err)
	assert.Equal(t, int32(1), blobs.opens.Load())

	time.Sleep(50 * time.Millisecond)
	_, err = cache.Fetch(ctx, "seo_report_2024-01-05.csv")
	require.NoError(t, err)
	assert.Equal(t, int32(2), blobs.opens.Load())
}

func TestCachingStoreListingIsACopy(t *testing.T) {
	t.Parallel()

	blobs := &fakeBlobs{objects: map[string][]byte{"seo_report_2024-01-05.csv": []byte(seoCSV)}}
	cache := NewCachingStore(NewStore(blobs, Config{}, nil), time.Minute)
	ctx := context.Background()

	ids, err := cache.ListIdentifiers(ctx, seoCategory(t))
	require.NoError(t, err)
	ids[0] = "mutated"

	again, err := cache.ListIdentifiers(ctx, seoCategory(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"seo_report_2024-01-05.csv"}, again)
}

func TestCachingStoreDoesNotCacheErrors(t *testing.T) {
	t.Parallel()

	blobs := &fakeBlobs{objects: map[string][]byte{}}
	cache := NewCachingStore(NewStore(blobs, Config{}, nil), 0)

	for i := 0; i < 2; i++ {
		_, err := cache.Fetch(context.Background(), "seo_report_2024-01-05.csv")
		require.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, int32(2), blobs.opens.Load())
}
