// Package symdex is the embedded Go client for symdex: a symbol DSL compiler
// and hybrid query engine over Valkey or Redis with search modules.
//
// The client works in two layers. The catalog layer needs no database: it
// assigns symbols to component names, validates Structure DSL against a
// relationship map and generates the smallest structure that holds a set of
// components. The query layer compiles Call DSL into filter, query and
// prefetch objects and runs them against a collection.
//
// # Catalog only
//
//	client, _ := symdex.New(ctx,
//	    symdex.WithRelationships("Page", map[string][]string{
//	        "Page":    {"Header", "Section"},
//	        "Section": {"Card"},
//	    }),
//	)
//	res, _ := client.Validate("ρ[§[δ×3]]")
//
// # Hybrid queries
//
//	client, _ := symdex.New(ctx,
//	    symdex.WithValkey("localhost:6379", ""),
//	    symdex.WithRelationshipsFile("config/relationships.yaml"),
//	    symdex.WithVectorSpace("dense", embedder, symdex.SingleVector, 1024),
//	)
//	_, _ = client.EnsureCollection(ctx, "components", symdex.Field("page", symdex.FieldTag))
//	_ = client.Upsert(ctx, "components", points)
//	res, _ := client.Query(ctx, symdex.QueryRequest{
//	    Collection: "components",
//	    Filter:     `ƒ{must=[ʄ{key="page", match=☆{value="pricing"}}]}`,
//	    Text:       "starter plan",
//	})
package symdex
