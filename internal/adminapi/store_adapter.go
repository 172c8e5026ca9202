package adminapi

import (
	"time"

	"github.com/dreamware/reconcile/internal/reconcile"
	"github.com/dreamware/reconcile/internal/storage"
)

// StoreAdapter presents a *reconcile.Service[string, []byte] through
// storage.Store's narrower, error-returning shape. It exists because
// Service's API is generic and bool-returning (it has to work for any K, V),
// while Store is the concrete string/[]byte interface the rest of the repo
// programs against.
type StoreAdapter struct {
	svc *reconcile.Service[string, []byte]
}

// NewStoreAdapter wraps svc so it satisfies storage.Store.
func NewStoreAdapter(svc *reconcile.Service[string, []byte]) *StoreAdapter {
	return &StoreAdapter{svc: svc}
}

var _ storage.Store = (*StoreAdapter)(nil)

func (a *StoreAdapter) Get(key string) ([]byte, error) {
	v, ok := a.svc.Get(key)
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (a *StoreAdapter) Put(key string, value []byte) error {
	a.svc.Insert(key, append([]byte(nil), value...), time.Now())
	return nil
}

func (a *StoreAdapter) Delete(key string) error {
	a.svc.Remove(key, time.Now())
	return nil
}

func (a *StoreAdapter) List() []string {
	keys := a.svc.Keys()
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

func (a *StoreAdapter) Stats() storage.StoreStats {
	keys := a.svc.Keys()
	total := 0
	for _, k := range keys {
		if v, ok := a.svc.Get(k); ok {
			total += len(v)
		}
	}
	return storage.StoreStats{Keys: len(keys), Bytes: total}
}
