package visibility

// Strategy is the bounded presentation strategy for a result set.
type Strategy string

const (
	StrategyEmpty   Strategy = "empty"
	StrategyFull    Strategy = "full"
	StrategySampled Strategy = "sampled"
)

// ScopePlan bounds a list request. The caller keeps the true count for
// explicit pagination when Strategy is sampled.
type ScopePlan struct {
	Limit    int      `json:"limit"`
	Strategy Strategy `json:"strategy"`
}

// Decide turns a cardinality estimate into a bounded presentation strategy.
// No unbounded list request is ever issued without first knowing the count.
func Decide(count, maxLimit int) ScopePlan {
	switch {
	case count <= 0:
		return ScopePlan{Limit: 0, Strategy: StrategyEmpty}
	case count <= maxLimit:
		return ScopePlan{Limit: count, Strategy: StrategyFull}
	default:
		return ScopePlan{Limit: maxLimit, Strategy: StrategySampled}
	}
}
