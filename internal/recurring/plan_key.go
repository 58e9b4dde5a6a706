package recurring

import (
	"fmt"
	"time"
)

// PlanKey derives the deterministic plan identifier for a billing cadence.
// Amount is part of the key: every distinct price point is a distinct plan.
// Test-mode plans get their own namespace so a test run can never collide
// with a live plan.
func PlanKey(frequencyUnit string, frequencyInterval, amount int64, livemode bool) string {
	if frequencyInterval < 1 {
		frequencyInterval = 1
	}
	key := fmt.Sprintf("every-%d-%s-%d", frequencyInterval, frequencyUnit, amount)
	if !livemode {
		key += "-test"
	}
	return key
}

// EndTime computes when an installment-limited subscription runs out,
// as epoch seconds. Zero installments means indefinite: nil.
func EndTime(start time.Time, frequencyUnit string, frequencyInterval, installments int64) *int64 {
	if installments <= 0 {
		return nil
	}

	total := frequencyInterval * installments
	var end time.Time
	switch frequencyUnit {
	case "day":
		end = start.AddDate(0, 0, int(total))
	case "week":
		end = start.AddDate(0, 0, int(total*7))
	case "month":
		end = start.AddDate(0, int(total), 0)
	case "year":
		end = start.AddDate(int(total), 0, 0)
	default:
		end = start.AddDate(0, int(total), 0)
	}

	epoch := end.Unix()
	return &epoch
}
