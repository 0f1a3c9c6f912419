// Package engine is a rule-based decision engine over an in-memory
// knowledge graph. It combines a typed graph of subjects, cohorts,
// topics and action templates with declarative rules and per-subject
// feature vectors to produce ranked, explainable decision records.
//
// # Core Concepts
//
// The engine is organized around a handful of collaborating packages:
//
//   - graph: typed nodes and directed, typed, weighted edges, with
//     neighbor and bounded-path queries. Frozen before evaluation.
//   - feature: per-subject feature vectors and the store interface
//     they are read through (in-memory or Redis-backed).
//   - rule: declarative condition→consequence rules. Conditions are a
//     tagged expression tree, loadable from YAML or CEL expressions.
//   - evaluate: evaluates a rule set for one subject, producing scored
//     candidates with resolved rationales.
//   - decision: aggregates candidates into one conflict-resolved,
//     ranked record per subject.
//   - sink: the boundary records are emitted through; delivery is a
//     collaborator concern.
//   - registry: etcd-backed distribution of rule packs between
//     publishers and embedded engines.
//   - telemetry: OpenTelemetry provider setup for applications that
//     want the engine's spans and counters exported.
//
// # Getting Started
//
// Build a graph and a rule set, then run the engine over subjects:
//
//	g := graph.New()
//	// ... add nodes and edges ...
//
//	set, err := rule.LoadPackFile("rules.yaml", g)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	store := feature.NewMapStore()
//	// ... set vectors ...
//
//	eng, err := engine.New(g, set, store,
//		engine.WithAggregatorConfig(decision.Config{TopK: 3}),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	records, err := eng.RunAll(context.Background())
//
// New freezes the graph; from that point the graph and rule set are
// read-only, which is what makes concurrent subject evaluation safe.
//
// # Determinism
//
// Given identical graph, rules and features, a run produces identical
// decision content for every subject regardless of worker count: rule
// order is fixed at load time, graph queries follow edge insertion
// order, and aggregation breaks every tie deterministically.
package engine
