package engine

import "errors"

// Sentinel errors for engine construction.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrNilGraph indicates New was called without a graph.
	ErrNilGraph = errors.New("engine: graph is required")

	// ErrNilRules indicates New was called without a rule set.
	ErrNilRules = errors.New("engine: rule set is required")

	// ErrNilFeatureStore indicates New was called without a feature
	// store.
	ErrNilFeatureStore = errors.New("engine: feature store is required")
)

// Error kinds categorize failures for logging and audit. Load-time
// kinds are fatal to a run; evaluation-time recoveries never surface as
// errors at all, they only appear in debug logs.
const (
	// KindGraph covers malformed graph definitions: duplicate nodes,
	// dangling edges, self-loops.
	KindGraph = "graph"

	// KindRule covers rule validation failures.
	KindRule = "rule"

	// KindContract covers programming-contract violations such as
	// mutating a frozen graph.
	KindContract = "contract"

	// KindStorage covers feature store and registry backend failures.
	KindStorage = "storage"

	// KindCancelled covers runs aborted by context cancellation.
	KindCancelled = "cancelled"
)
