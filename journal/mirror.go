package journal

import (
	"context"
	"errors"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/strata/iox"
	"github.com/justapithecus/strata/metrics"
)

// ErrInvalidMirrorPath is returned for keys that escape the mirror prefix.
var ErrInvalidMirrorPath = errors.New("mirror path must be relative and must not contain ..")

// Mirror copies materialized files to an object store at their
// root-relative paths. Files already present are left alone unless
// replace is requested.
type Mirror struct {
	factory lode.StoreFactory
	prefix  string
	metrics *metrics.Collector

	storeOnce sync.Once
	store     lode.Store
	storeErr  error
}

// NewMirror creates a mirror writing under prefix.
func NewMirror(factory lode.StoreFactory, prefix string, m *metrics.Collector) *Mirror {
	return &Mirror{factory: factory, prefix: strings.Trim(prefix, "/"), metrics: m}
}

// Key returns the object key for a root-relative path.
func (m *Mirror) Key(rel string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(rel, "\\", "/"))
	if rel == "" || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidMirrorPath
	}
	if m.prefix == "" {
		return clean, nil
	}
	return m.prefix + "/" + clean, nil
}

// Publish uploads local to rel. It reports whether an upload happened.
func (m *Mirror) Publish(ctx context.Context, local, rel string, replace bool) (bool, error) {
	uploaded, err := m.publish(ctx, local, rel, replace)
	if err != nil {
		m.metrics.IncMirrorWriteFailure()
		return false, err
	}
	if uploaded {
		m.metrics.IncMirrorWriteSuccess()
	}
	return uploaded, nil
}

func (m *Mirror) publish(ctx context.Context, local, rel string, replace bool) (bool, error) {
	key, err := m.Key(rel)
	if err != nil {
		return false, err
	}
	store, err := m.getOrCreateStore()
	if err != nil {
		return false, wrapError("init", key, err)
	}

	exists, err := store.Exists(ctx, key)
	if err != nil {
		return false, wrapError("mirror", key, err)
	}
	if exists {
		if !replace {
			return false, nil
		}
		if err := store.Delete(ctx, key); err != nil {
			return false, wrapError("mirror", key, err)
		}
	}

	f, err := os.Open(local)
	if err != nil {
		return false, wrapError("mirror", local, err)
	}
	defer iox.DiscardClose(f)

	if err := store.Put(ctx, key, f); err != nil {
		return false, wrapError("mirror", key, err)
	}
	return true, nil
}

// getOrCreateStore lazily initializes the store from the factory.
func (m *Mirror) getOrCreateStore() (lode.Store, error) {
	m.storeOnce.Do(func() {
		m.store, m.storeErr = m.factory()
	})
	return m.store, m.storeErr
}
