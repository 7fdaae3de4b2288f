package cart

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/storage"
	"github.com/stretchr/testify/require"
)

// recordingBackend wraps a Memory backend and counts writes.
type recordingBackend struct {
	*storage.Memory
	mu     sync.Mutex
	sets   int
	setErr error
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{Memory: storage.NewMemory(0)}
}

func (b *recordingBackend) Set(ctx context.Context, key, value string) error {
	b.mu.Lock()
	b.sets++
	err := b.setErr
	b.mu.Unlock()
	if err != nil {
		return err
	}
	return b.Memory.Set(ctx, key, value)
}

func (b *recordingBackend) writes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sets
}

func newTestStore(t *testing.T, backend storage.Backend) (*Store, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	store, err := NewStore(Params{
		Backend: backend,
		Logger:  logger.New(logger.Options{ServiceName: "cart-test", Output: buf}),
	})
	require.NoError(t, err)
	return store, buf
}

func product(id, price string) catalog.Product {
	return catalog.Product{ID: catalog.ID(id), Name: "product " + id, Price: catalog.Price(price)}
}
