// Package search answers "find anything in this workspace" queries by merging
// the results of many independently searchable item types into one globally
// ordered, paginated list.
//
// # Item types
//
// Every searchable kind of object (databases, tables, fields, rows, ...)
// implements SearchableItemType and is added to a Registry at startup. A type
// contributes a Projection: a Relation (FROM, JOINs and filters) plus the
// expressions that fill the canonical result columns
//
//	search_type, object_id, sort_key, rank, priority, title, subtitle, payload
//
// Types only describe their query. They never execute it, so the engine can
// decide how to run all of them together. ModelType and BaseType cover the
// common cases with hooks instead of hand-written projections.
//
// # Ordering
//
// Results are ordered globally by
//
//	priority ASC, rank DESC NULLS LAST, sort_key ASC, search_type ASC, object_id ASC
//
// so a page boundary is stable and pages never overlap or skip rows.
//
// # Execution
//
// Handler.SearchWorkspace asks every registered type for its projection,
// validates it and hands the survivors to an Executor. StrategyUnion runs one
// UNION ALL statement with a single ORDER BY, LIMIT and OFFSET. StrategyMerge
// queries each type concurrently with LIMIT offset+limit and merges the rows
// in memory with the same ordering. Both yield identical pages.
//
// The handler fetches limit+1 rows to compute HasMore, runs each type's
// Postprocess over its own rows and trims the page back to limit.
//
// # Failures
//
// A type whose projection cannot be built, does not validate, or whose
// postprocessing fails is dropped from the response and reported as a
// TypeError in Response.Degraded. The remaining types are still returned.
//
// # Usage
//
//	registry := search.NewRegistry()
//	registry.MustRegister(searchtypes.NewDatabaseType())
//	registry.Freeze()
//
//	h := search.NewHandler(store.DB(), registry,
//		search.WithExecutor(search.NewExecutor(search.StrategyUnion)),
//		search.WithPermissions(perm.NewMembership(store.DB())),
//	)
//	resp, err := h.SearchWorkspace(ctx, user, workspace, "invoices", 20, 0)
package search
