package projects

// Plan is a subscription tier. Quota limits are resolved from the owner's
// plan when a project is created and stamped onto the project row.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

type PlanLimits struct {
	MaxProjects int   // 0 = unlimited
	MaxFiles    int
	MaxSizeKB   int64
}

var planLimits = map[Plan]PlanLimits{
	PlanFree: {MaxProjects: 1, MaxFiles: 20, MaxSizeKB: 10240},
	PlanPro:  {MaxProjects: 0, MaxFiles: 500, MaxSizeKB: 1048576},
}

// LimitsFor returns the quota limits for a plan. Unknown tiers fall back
// to the free plan.
func LimitsFor(plan Plan) PlanLimits {
	if l, ok := planLimits[plan]; ok {
		return l
	}
	return planLimits[PlanFree]
}
