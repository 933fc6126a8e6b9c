// Package localstore provides fail-soft, namespaced JSON storage over a pluggable key-value store.
//
// # Overview
//
// localstore wraps a synchronous string key-value store (KeyValueStore) with
// JSON encoding and a fail-soft error policy. It separates the accessors
// callers use (Storage, Namespace) from the store holding the text
// (Memory, sqlitestore, ddbstore).
//
// # Architecture
//
// 1. KeyValueStore: the raw store, addressed by string keys holding string values
// 2. Storage: base accessors (GetItem, SetItem, RemoveItem, Clear, HasItem, GetItems, SetItems)
// 3. Namespace[TKey]: accessors scoped to keys of the form "namespace:key"
//
// # Quick Start
//
//	s := localstore.New(localstore.NewMemory(), localstore.WithLogger(logger))
//	ctx := context.Background()
//
//	s.SetItem(ctx, "theme", map[string]any{"dark": true})
//	theme := s.GetItem(ctx, "theme", nil)
//
//	audits, _ := s.Namespace("audits")
//	audits.Set(ctx, "draft", []string{"a", "b"}) // stored as "audits:draft"
//	audits.Clear(ctx)                            // removes only "audits:*"
//
// # Typed Reads
//
//	type Prefs struct{ Lang string }
//	prefs := localstore.Get(ctx, s, "prefs", Prefs{Lang: "en"})
//
// # Error Handling
//
// Storage never returns errors. A read that fails returns the default value,
// a write or delete that fails returns false, and the failure is logged to
// the configured zap logger with the operation and key. Because of this,
// GetItem cannot tell an absent key from a failed read; use HasItem first
// when the difference matters.
//
// Stores report failures with ErrUnavailable, ErrQuotaExceeded or a backend
// error, and absent keys with ErrNotFound.
//
// # Thread Safety
//
// Storage adds no locking of its own. Stores must be safe for concurrent use;
// the last writer for a key wins and there are no multi-key transactions.
package localstore
