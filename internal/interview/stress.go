package interview

import "github.com/mockloop/interview-engine/internal/model"

// StressOrder is the canonical order in which stress scenarios are presented.
var StressOrder = []model.StressType{
	model.StressTrafficSpike,
	model.StressFailureInjection,
	model.StressMultiRegion,
	model.StressCostAnalysis,
}

var StressQuestions = map[model.StressType]string{
	model.StressTrafficSpike: "Your system is running fine at current load. " +
		"You wake up to find traffic has spiked 10x overnight — " +
		"a viral event is sending massive unexpected load. " +
		"Walk me through exactly what breaks first in your design and how you handle it.",
	model.StressFailureInjection: "Your primary database just went down completely. " +
		"No warning, no graceful shutdown. " +
		"Walk me through what happens to your system second by second, " +
		"and what your recovery strategy is.",
	model.StressMultiRegion: "You now need to serve users in Southeast Asia with under 100ms latency. " +
		"Your entire system currently runs in us-east-1. " +
		"Walk me through your multi-region architecture changes, " +
		"including data replication, consistency trade-offs, and failover.",
	model.StressCostAnalysis: "Estimate the monthly AWS infrastructure cost for your design " +
		"at 1 million daily active users. " +
		"Break down the major cost components — compute, storage, data transfer, caching. " +
		"What would you optimize first to reduce costs by 30%?",
}

var StressCriteria = map[model.StressType]string{
	model.StressTrafficSpike: "Did they identify what breaks first? " +
		"Did they mention horizontal scaling, auto-scaling, queue-based load shedding, " +
		"or CDN offloading? Did they give specific strategies, not just 'scale up'?",
	model.StressFailureInjection: "Did they describe the failure cascade? " +
		"Did they mention circuit breakers, retries with backoff, read replicas, " +
		"write-ahead logs, or eventual consistency fallback? " +
		"Did they have a concrete recovery path?",
	model.StressMultiRegion: "Did they discuss data replication strategy (active-active vs active-passive)? " +
		"Did they mention consistency trade-offs (CAP theorem)? " +
		"Did they discuss latency routing (Route53, GeoDNS)? " +
		"Did they mention cross-region data sync challenges?",
	model.StressCostAnalysis: "Did they actually estimate numbers? " +
		"Did they break down compute, storage, transfer costs? " +
		"Did they identify the largest cost driver? " +
		"Did they propose specific optimizations (reserved instances, spot, tiered storage, caching)?",
}

func ValidStressType(t model.StressType) bool {
	_, ok := StressQuestions[t]
	return ok
}

// NextStressType scans the canonical order for the first scenario that is
// needed, not yet completed and not the one currently being answered. It
// reports false once every needed scenario has been seen.
func NextStressType(needed []model.StressType, completed map[model.StressType]bool, current model.StressType) (model.StressType, bool) {
	want := make(map[model.StressType]bool, len(needed))
	for _, t := range needed {
		want[t] = true
	}
	for _, t := range StressOrder {
		if want[t] && !completed[t] && t != current {
			return t, true
		}
	}
	return "", false
}

// FilterStressTypes keeps known scenario types in canonical order, dropping
// duplicates and anything the oracle invented.
func FilterStressTypes(types []model.StressType) []model.StressType {
	seen := make(map[model.StressType]bool, len(types))
	for _, t := range types {
		seen[t] = true
	}
	out := make([]model.StressType, 0, len(types))
	for _, t := range StressOrder {
		if seen[t] {
			out = append(out, t)
		}
	}
	return out
}

// CoverageChecklist names the areas a design answer is checked for.
var CoverageChecklist = []string{
	"scaling_discussion",
	"bottleneck_identification",
	"trade_off_explanation",
	"failure_mode_discussion",
	"data_model",
	"caching_strategy",
	"load_balancing",
	"database_choice_justification",
	"numbers_and_estimates",
	"api_design",
}
