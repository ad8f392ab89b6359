// Package clickwire is a typed client-side data-access layer for columnar
// analytical stores speaking the tab-separated HTTP text protocol.
//
// The module covers the full round trip between application documents and
// store tables:
//
//   - A tagged value variant (pkg/types) that every application value passes
//     through exactly once, replacing runtime type probing with a closed
//     kind switch.
//
//   - A wire codec (pkg/codec) and batch formatter (pkg/tabular) for the
//     TabSeparatedWithNamesAndTypes format, including array literals,
//     NULL markers and zero-date sentinels.
//
//   - Schema inference and generalization (pkg/schema) over the store's
//     type lattice, so heterogeneous record batches emit a single header
//     that fits every row.
//
//   - A document flattener (pkg/flatten) turning nested maps and arrays of
//     maps into positionally aligned columns, with a JSON fallback for
//     structures the wire format cannot carry.
//
//   - A statement client (pkg/client) with parameter interpolation, bulk
//     inserts that split oversized payloads, adaptive schema reconciliation
//     for document storage, and a filterable local result cache
//     (pkg/cache).
//
//   - An HTTP transport pool (pkg/transport) with optional gzip or zstd
//     request compression, owned and closed by the caller and injected
//     into each client.
//
// # Quick Start
//
// Store nested documents and query them back:
//
//	cfg := config.NewClientConfig("analytics", "localhost:8123")
//	pool, err := transport.NewPool(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Close()
//
//	cl := client.New(pool, cfg)
//	err = cl.StoreDocuments(ctx, "events", []map[string]interface{}{
//	    {"id": 1, "tags": []string{"cool", "Nikon"}},
//	})
//	rows, err := cl.Select(ctx, "SELECT id, tags FROM events WHERE id=?", 1)
//
// Clients are not safe for concurrent use; create one per logical session
// and share the transport pool between them.
package clickwire
