package guard

// LimitPolicy decides what an exceeded threshold does: a hard limit
// reverts the operation, a soft limit approves it with a warning.
// The policy is applied by the orchestrator; the evaluator itself only
// reports exceeded or not.
type LimitPolicy string

const (
	PolicyHard LimitPolicy = "hard"
	PolicySoft LimitPolicy = "soft"
)

// Strategy selects the enforcement strategy.
type Strategy string

const (
	// StrategyCumulative sums deltas across discrete operations against
	// the movable last-valid reference.
	StrategyCumulative Strategy = "cumulative"
	// StrategySnapshot compares whole-project totals against a fixed
	// baseline set by an explicit checkpoint.
	StrategySnapshot Strategy = "snapshot"
)

// Scope selects the reference frame for cumulative enforcement.
type Scope string

const (
	ScopeSessionWide  Scope = "session-wide"
	ScopePerOperation Scope = "per-operation"
)

// ThresholdCheck is the outcome of a threshold evaluation.
type ThresholdCheck struct {
	Exceeded bool
	Current  int // total line count being judged
	Baseline int // reference total the delta is measured from
	Delta    int // Current - Baseline
}

// EvaluateThreshold is the pure threshold decision: a delta exceeds the
// allowance only when it is strictly greater. A delta exactly equal to
// the allowance is within budget.
func EvaluateThreshold(current, baseline, allowedPositiveDelta int) ThresholdCheck {
	delta := current - baseline
	return ThresholdCheck{
		Exceeded: delta > allowedPositiveDelta,
		Current:  current,
		Baseline: baseline,
		Delta:    delta,
	}
}
