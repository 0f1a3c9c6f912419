package decision

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidConfig indicates an aggregator configuration that cannot be
// applied: a negative cutoff or threshold, or a degenerate exclusion.
var ErrInvalidConfig = errors.New("decision: invalid aggregator config")

// Exclusion declares that two actions cannot co-occur in one record.
// The pair is unordered.
type Exclusion struct {
	A string `yaml:"a" json:"a"`
	B string `yaml:"b" json:"b"`
}

// Config is the aggregator's explicit configuration. The zero value
// means: no cutoff, no score threshold, no exclusions.
type Config struct {
	// TopK caps the number of actions per record; 0 means unbounded.
	TopK int `yaml:"top_k" json:"top_k"`

	// MinScore drops action groups whose winning score is below the
	// threshold.
	MinScore float64 `yaml:"min_score" json:"min_score"`

	// Exclusions lists action pairs that cannot co-occur. The
	// higher-scoring action survives; the suppressed alternative is
	// noted on the survivor's rationale.
	Exclusions []Exclusion `yaml:"exclusions,omitempty" json:"exclusions,omitempty"`
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.TopK < 0 {
		return fmt.Errorf("%w: top_k must be >= 0", ErrInvalidConfig)
	}
	if c.MinScore < 0 {
		return fmt.Errorf("%w: min_score must be >= 0", ErrInvalidConfig)
	}
	for _, ex := range c.Exclusions {
		if ex.A == "" || ex.B == "" {
			return fmt.Errorf("%w: exclusion with empty action ID", ErrInvalidConfig)
		}
		if ex.A == ex.B {
			return fmt.Errorf("%w: exclusion of %q with itself", ErrInvalidConfig, ex.A)
		}
	}
	return nil
}

// Aggregator reduces one subject's candidates into a final Record. It
// holds no mutable state, so one Aggregator serves concurrent workers.
type Aggregator struct {
	cfg      Config
	excluded map[string][]string // action ID -> conflicting action IDs
}

// NewAggregator creates an aggregator from an explicit configuration.
func NewAggregator(cfg Config) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	excluded := make(map[string][]string, len(cfg.Exclusions)*2)
	for _, ex := range cfg.Exclusions {
		excluded[ex.A] = append(excluded[ex.A], ex.B)
		excluded[ex.B] = append(excluded[ex.B], ex.A)
	}
	return &Aggregator{cfg: cfg, excluded: excluded}, nil
}

// Aggregate resolves a subject's candidates into a record:
//
//  1. Candidates are grouped by action; a group's winning score is the
//     maximum candidate score (never a sum), its rationale the winning
//     candidate's, ties broken by lowest rule ID.
//  2. Groups sort by score descending, then action ID ascending.
//  3. The MinScore threshold and TopK cutoff apply.
//  4. Mutual exclusions suppress the lower-scoring action of each
//     conflicting pair; the survivor's rationale records the
//     suppression for audit.
//
// RunID and EvaluatedAt are left for the engine to stamp. An empty
// candidate list yields a record with an empty action sequence.
func (a *Aggregator) Aggregate(subjectID string, candidates []Candidate) Record {
	best := make(map[string]Candidate)
	for _, c := range candidates {
		cur, seen := best[c.ActionID]
		if !seen || c.Score > cur.Score || (c.Score == cur.Score && c.RuleID < cur.RuleID) {
			best[c.ActionID] = c
		}
	}

	groups := make([]ActionScore, 0, len(best))
	for actionID, c := range best {
		groups = append(groups, ActionScore{
			ActionID:  actionID,
			Score:     c.Score,
			Rationale: c.Rationale,
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Score != groups[j].Score {
			return groups[i].Score > groups[j].Score
		}
		return groups[i].ActionID < groups[j].ActionID
	})

	filtered := groups[:0]
	for _, g := range groups {
		if g.Score < a.cfg.MinScore {
			continue
		}
		filtered = append(filtered, g)
	}
	if a.cfg.TopK > 0 && len(filtered) > a.cfg.TopK {
		filtered = filtered[:a.cfg.TopK]
	}

	actions := a.applyExclusions(filtered)

	return Record{SubjectID: subjectID, Actions: actions}
}

// applyExclusions walks the ranked actions and drops any action that
// conflicts with one already kept; the kept action's rationale gains a
// note naming the suppressed alternative. Because the walk is in rank
// order, the higher-scoring action of a pair always survives.
func (a *Aggregator) applyExclusions(ranked []ActionScore) []ActionScore {
	if len(a.excluded) == 0 {
		return ranked
	}
	kept := make([]ActionScore, 0, len(ranked))
	keptIdx := make(map[string]int)
	for _, g := range ranked {
		conflict := -1
		for _, rival := range a.excluded[g.ActionID] {
			if idx, ok := keptIdx[rival]; ok {
				conflict = idx
				break
			}
		}
		if conflict >= 0 {
			winner := &kept[conflict]
			winner.Rationale = appendSuppression(winner.Rationale, g)
			continue
		}
		keptIdx[g.ActionID] = len(kept)
		kept = append(kept, g)
	}
	return kept
}

func appendSuppression(rationale string, dropped ActionScore) string {
	note := fmt.Sprintf("suppressed mutually exclusive action %s (score %.2f)", dropped.ActionID, dropped.Score)
	if rationale == "" {
		return note
	}
	return rationale + "; " + note
}
