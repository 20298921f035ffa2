package receipt

import (
	"sort"

	"github.com/Veraticus/expensesbot/internal/model"
)

const (
	// correctionThreshold is the gap above which the ×10 repair runs.
	correctionThreshold int64 = 100
	// correctionTolerance is the gap at which repairs stop, and the most a
	// repair may overshoot the total.
	correctionTolerance int64 = 50
	// smallItemLimit bounds the items considered mis-scaled.
	smallItemLimit int64 = 100
)

// Correct repairs the common OCR error of a dropped decimal place. When the
// total exceeds the item sum by more than one unit, items priced under one
// unit are tried at ten times their price, cheapest first, and a repair is
// kept when it narrows the gap without overshooting the total by more than
// half a unit. It returns the corrected items and how many were changed.
func Correct(items []model.ReceiptItem, total int64) ([]model.ReceiptItem, int) {
	out := make([]model.ReceiptItem, len(items))
	copy(out, items)

	var sum int64
	for _, item := range out {
		sum += item.Amount
	}
	diff := total - sum
	if diff <= correctionThreshold {
		return out, 0
	}

	order := make([]int, len(out))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return out[order[a]].Amount < out[order[b]].Amount })

	corrected := 0
	for _, i := range order {
		if abs(diff) <= correctionTolerance {
			break
		}
		amount := out[i].Amount
		if amount <= 0 || amount >= smallItemLimit {
			continue
		}
		candidate := amount * 10
		newDiff := diff - (candidate - amount)
		if abs(newDiff) < abs(diff) && newDiff >= -correctionTolerance {
			out[i].Amount = candidate
			diff = newDiff
			corrected++
		}
	}
	return out, corrected
}

// Tolerance is the largest item-sum mismatch accepted without a flag:
// max(5% of total, 50 minor units).
func Tolerance(total int64) int64 {
	if pct := abs(total) * 5 / 100; pct > correctionTolerance {
		return pct
	}
	return correctionTolerance
}

// Confidence scores a receipt by its item count.
func Confidence(items int) float64 {
	switch {
	case items > 3:
		return 0.9
	case items > 0:
		return 0.6
	default:
		return 0
	}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
