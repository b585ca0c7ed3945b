package opt

import (
	"context"
	"math/rand"

	"routeplay/internal/model"
)

// ruinRecreate is a small large-neighbourhood search over job tours: remove up to three
// random jobs, greedily reinsert each at its cheapest feasible position, and keep the
// result when the total closed-tour cost drops. Tours hold job indices; node i+1 in cost
// is job i and node 0 is the depot. The input is not modified.
func ruinRecreate(ctx context.Context, cost [][]int, vehicles []model.Vehicle, jobs []model.Job, tours [][]int, iterations int, seed int64) [][]int {
	best := cloneTours(tours)
	bestCost := toursCost(cost, best)
	assigned := 0
	for _, t := range best {
		assigned += len(t)
	}
	if assigned < 2 {
		return best
	}
	rng := rand.New(rand.NewSource(seed))
	for it := 0; it < iterations; it++ {
		if ctx.Err() != nil {
			break
		}
		k := 1 + rng.Intn(min(3, assigned))
		curr, removed := removeRandom(best, k, rng)
		ok := true
		for _, j := range removed {
			if !insertCheapest(cost, vehicles, jobs, curr, j) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		if c := toursCost(cost, curr); c < bestCost {
			best, bestCost = curr, c
		}
	}
	return best
}

func removeRandom(tours [][]int, k int, rng *rand.Rand) ([][]int, []int) {
	out := cloneTours(tours)
	removed := make([]int, 0, k)
	for len(removed) < k {
		v := rng.Intn(len(out))
		if len(out[v]) == 0 {
			continue
		}
		p := rng.Intn(len(out[v]))
		removed = append(removed, out[v][p])
		out[v] = append(out[v][:p], out[v][p+1:]...)
	}
	rng.Shuffle(len(removed), func(i, j int) { removed[i], removed[j] = removed[j], removed[i] })
	return out, removed
}

// insertCheapest places job j at the feasible position with the smallest added cost.
func insertCheapest(cost [][]int, vehicles []model.Vehicle, jobs []model.Job, tours [][]int, j int) bool {
	bestV, bestP, bestD := -1, -1, 0
	node := j + 1
	for v, t := range tours {
		if !fits(vehicles[v], tourLoad(jobs, t), jobs[j]) {
			continue
		}
		for p := 0; p <= len(t); p++ {
			prev, next := 0, 0
			if p > 0 {
				prev = t[p-1] + 1
			}
			if p < len(t) {
				next = t[p] + 1
			}
			d := cost[prev][node] + cost[node][next] - cost[prev][next]
			if bestV < 0 || d < bestD {
				bestV, bestP, bestD = v, p, d
			}
		}
	}
	if bestV < 0 {
		return false
	}
	t := tours[bestV]
	t = append(t, 0)
	copy(t[bestP+1:], t[bestP:])
	t[bestP] = j
	tours[bestV] = t
	return true
}

func tourLoad(jobs []model.Job, tour []int) int {
	load := 0
	for _, j := range tour {
		d, _ := jobs[j].Delivery.First()
		load += d
	}
	return load
}

// toursCost sums depot-to-depot tour lengths. Empty tours cost nothing.
func toursCost(cost [][]int, tours [][]int) int {
	total := 0
	for _, t := range tours {
		if len(t) == 0 {
			continue
		}
		prev := 0
		for _, j := range t {
			total += cost[prev][j+1]
			prev = j + 1
		}
		total += cost[prev][0]
	}
	return total
}

func cloneTours(tours [][]int) [][]int {
	out := make([][]int, len(tours))
	for i, t := range tours {
		out[i] = append([]int(nil), t...)
	}
	return out
}
