package opt

import "context"

// ImproveOrder2Opt applies 2-opt moves to a closed tour (order[0] and order[len-1] are the depot)
// until no move helps, the iteration cap is hit, or ctx is done.
func ImproveOrder2Opt(ctx context.Context, cost [][]int, order []int, iterations int) []int {
	if iterations <= 0 {
		iterations = 1
	}
	best := append([]int(nil), order...)
	bestCost := pathCost(cost, best)
	n := len(order)
	for it := 0; it < iterations; it++ {
		if ctx.Err() != nil {
			break
		}
		improved := false
		for i := 1; i < n-2; i++ {
			for k := i + 1; k < n-1; k++ {
				newOrder := twoOptSwap(best, i, k)
				if c := pathCost(cost, newOrder); c < bestCost {
					best = newOrder
					bestCost = c
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}

func twoOptSwap(ord []int, i, k int) []int {
	out := make([]int, len(ord))
	copy(out, ord[:i])
	// reverse i..k
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = ord[j]
		pos++
	}
	copy(out[pos:], ord[k+1:])
	return out
}

func pathCost(cost [][]int, order []int) int {
	total := 0
	for i := 0; i < len(order)-1; i++ {
		total += cost[order[i]][order[i+1]]
	}
	return total
}
