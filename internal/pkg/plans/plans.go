package plans

import "strings"

type Plan string

const (
	PlanFree    Plan = "free"
	PlanStarter Plan = "starter"
	PlanGrowth  Plan = "growth"
	PlanScale   Plan = "scale"
)

// Normalize maps arbitrary input to a known plan, defaulting to free.
func Normalize(plan string) Plan {
	switch Plan(strings.ToLower(strings.TrimSpace(plan))) {
	case PlanStarter:
		return PlanStarter
	case PlanGrowth:
		return PlanGrowth
	case PlanScale:
		return PlanScale
	default:
		return PlanFree
	}
}

// IsKnown reports whether the input names a paid-capable plan exactly.
// Unlike Normalize it does not coerce unknown input to free.
func IsKnown(plan string) bool {
	switch Plan(strings.ToLower(strings.TrimSpace(plan))) {
	case PlanFree, PlanStarter, PlanGrowth, PlanScale:
		return true
	default:
		return false
	}
}

// Rank orders plans for best-plan selection.
func Rank(plan Plan) int {
	switch plan {
	case PlanScale:
		return 3
	case PlanGrowth:
		return 2
	case PlanStarter:
		return 1
	default:
		return 0
	}
}
