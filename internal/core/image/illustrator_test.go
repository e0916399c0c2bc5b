package image

import (
	"bytes"
	"context"
	"errors"
	stdimage "image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fridge-helper/internal/core/ai/cache"
	"fridge-helper/internal/core/ai/provider"
	"fridge-helper/internal/core/image/storage"
	"fridge-helper/internal/infrastructure/config"
	"fridge-helper/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fakeImageGen struct {
	data  []byte
	err   error
	calls atomic.Int32
	delay time.Duration
}

func (f *fakeImageGen) GenerateImage(_ context.Context, _ string) (*provider.Image, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Image{Data: f.data, MIMEType: "image/png"}, nil
}

func (f *fakeImageGen) Model() string { return "fake-imagen" }

func newTestIllustrator(t *testing.T, gen provider.ImageGenerator, keep int) (*Illustrator, *cache.CacheManager, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStore(dir, "https://bot.example.com")
	require.NoError(t, err)
	cm := cache.NewManager(config.CacheConfig{Enabled: true, MaxSize: 100, TTL: time.Hour})
	t.Cleanup(func() { cm.Close() })
	return NewIllustrator(gen, NewService(10<<20, 85), store, cm, keep), cm, dir
}

func TestNormalizeConvertsToJPEG(t *testing.T) {
	svc := NewService(10<<20, 85)
	out, err := svc.Normalize(pngBytes(t))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", out.ContentType)
	assert.Equal(t, ".jpg", out.Ext)
	assert.Equal(t, []byte{0xFF, 0xD8}, out.Data[:2])
}

func TestNormalizeRejects(t *testing.T) {
	svc := NewService(16, 85)
	_, err := svc.Normalize(nil)
	assert.ErrorIs(t, err, common.ErrNoImageData)

	_, err = svc.Normalize(bytes.Repeat([]byte{1}, 32))
	assert.ErrorIs(t, err, common.ErrInvalidImageSize)

	_, err = NewService(0, 85).Normalize([]byte("definitely not an image"))
	assert.ErrorIs(t, err, common.ErrInvalidImageFormat)
}

func TestIllustrateCachesByPrompt(t *testing.T) {
	gen := &fakeImageGen{data: pngBytes(t)}
	ill, _, dir := newTestIllustrator(t, gen, 10)
	ctx := context.Background()

	url1, err := ill.Illustrate(ctx, "  a bowl of ramen  ")
	require.NoError(t, err)
	key := common.HashString("a bowl of ramen")
	assert.Equal(t, "https://bot.example.com/static/generated/"+key+".jpg", url1)
	assert.FileExists(t, filepath.Join(dir, key+".jpg"))

	url2, err := ill.Illustrate(ctx, "a bowl of ramen")
	require.NoError(t, err)
	assert.Equal(t, url1, url2)
	assert.EqualValues(t, 1, gen.calls.Load())

	_, err = ill.Illustrate(ctx, "fried rice")
	require.NoError(t, err)
	assert.EqualValues(t, 2, gen.calls.Load())
}

func TestIllustrateReusesStoredFileAfterCacheLoss(t *testing.T) {
	gen := &fakeImageGen{data: pngBytes(t)}
	ill, cm, _ := newTestIllustrator(t, gen, 10)
	ctx := context.Background()

	url, err := ill.Illustrate(ctx, "dumplings")
	require.NoError(t, err)
	require.NoError(t, cm.Delete(ctx, common.HashString("dumplings")))

	again, err := ill.Illustrate(ctx, "dumplings")
	require.NoError(t, err)
	assert.Equal(t, url, again)
	assert.EqualValues(t, 1, gen.calls.Load())
}

func TestIllustrateReusesStoredNonJPEGFile(t *testing.T) {
	gen := &fakeImageGen{data: pngBytes(t)}
	ill, _, dir := newTestIllustrator(t, gen, 10)
	name := common.HashString("pancakes") + ".png"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), pngBytes(t), 0644))

	url, err := ill.Illustrate(context.Background(), "pancakes")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, "/"+name), url)
	assert.EqualValues(t, 0, gen.calls.Load())
}

func TestIllustrateCollapsesConcurrentPrompts(t *testing.T) {
	gen := &fakeImageGen{data: pngBytes(t), delay: 50 * time.Millisecond}
	ill, _, _ := newTestIllustrator(t, gen, 10)

	var wg sync.WaitGroup
	for n := 0; n < 8; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ill.Illustrate(context.Background(), "same prompt")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, gen.calls.Load())
}

func TestIllustrateErrors(t *testing.T) {
	ill, _, _ := newTestIllustrator(t, &fakeImageGen{err: errors.New("quota")}, 10)

	_, err := ill.Illustrate(context.Background(), "   ")
	assert.ErrorIs(t, err, common.ErrEmptyPrompt)

	_, err = ill.Illustrate(context.Background(), "soup")
	assert.ErrorIs(t, err, common.ErrAIServiceError)

	empty, _, _ := newTestIllustrator(t, &fakeImageGen{}, 10)
	_, err = empty.Illustrate(context.Background(), "soup")
	assert.ErrorIs(t, err, common.ErrNoImageData)
}

func TestIllustratePrunesAndInvalidatesCache(t *testing.T) {
	gen := &fakeImageGen{data: pngBytes(t)}
	ill, cm, dir := newTestIllustrator(t, gen, 2)
	ctx := context.Background()

	first, err := ill.Illustrate(ctx, "p1")
	require.NoError(t, err)
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, common.HashString("p1")+".jpg"), old, old))

	_, err = ill.Illustrate(ctx, "p2")
	require.NoError(t, err)
	_, err = ill.Illustrate(ctx, "p3")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = cm.Get(ctx, common.HashString("p1"))
	assert.ErrorIs(t, err, common.ErrCacheMiss)

	again, err := ill.Illustrate(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.EqualValues(t, 4, gen.calls.Load())
}

func TestIllustrateAllKeepsOrderAndSkipsFailures(t *testing.T) {
	gen := &fakeImageGen{data: pngBytes(t)}
	ill, _, _ := newTestIllustrator(t, gen, 10)

	urls := ill.IllustrateAll(context.Background(), []string{"a", "", "c"}, 2)
	require.Len(t, urls, 3)
	assert.Contains(t, urls[0], common.HashString("a"))
	assert.Empty(t, urls[1])
	assert.Contains(t, urls[2], common.HashString("c"))
}
