package adminapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/dreamware/reconcile/internal/reconcile"
	"github.com/dreamware/reconcile/internal/storage"
)

// Server is the admin HTTP surface over a reconciliation service. It owns
// no state; every handler delegates to svc, the way torua's node handlers
// delegate straight to a shard rather than keeping a second copy of data.
type Server struct {
	svc   *reconcile.Service[string, []byte]
	store storage.Store
	log   *zap.Logger
}

// New builds a Server. log may be nil, in which case a no-op logger is used.
func New(svc *reconcile.Service[string, []byte], log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{svc: svc, store: NewStoreAdapter(svc), log: log}
}

// Handler returns the http.Handler exposing the routes documented in doc.go.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /store", s.handleListKeys)
	mux.HandleFunc("GET /store/{key}", s.handleGet)
	mux.HandleFunc("PUT /store/{key}", s.handlePut)
	mux.HandleFunc("DELETE /store/{key}", s.handleDelete)
	mux.HandleFunc("GET /peers", s.handlePeers)
	mux.HandleFunc("GET /stats", s.handleStats)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	value, err := s.store.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			http.Error(w, "key not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := w.Write(value); err != nil {
		s.log.Warn("write response", zap.String("key", key), zap.Error(err))
	}
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r.Body); err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if err := s.store.Put(key, buf.Bytes()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := s.store.Delete(key); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListKeys(w http.ResponseWriter, _ *http.Request) {
	keys := s.store.List()
	writeJSON(w, keysResponse{Keys: keys, Count: len(keys)})
}

func (s *Server) handlePeers(w http.ResponseWriter, _ *http.Request) {
	peers := s.svc.Peers()
	entries := make([]peerEntry, 0, len(peers))
	for addr, seen := range peers {
		entries = append(entries, peerEntry{Addr: addr, LastSeen: seen})
	}
	writeJSON(w, peersResponse{Peers: entries, Count: len(entries)})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	st := s.store.Stats()
	ops := s.svc.Stats()
	writeJSON(w, statsResponse{
		Keys:                 st.Keys,
		Bytes:                st.Bytes,
		Hash:                 s.svc.Hash(),
		Inserts:              ops.Inserts,
		Removes:              ops.Removes,
		Gets:                 ops.Gets,
		RemoteUpdatesApplied: ops.RemoteUpdatesApplied,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
