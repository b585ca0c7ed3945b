package opt

import (
	"context"

	"routeplay/internal/model"
)

// EngineName is reported in responses produced by the embedded solver.
const EngineName = "OR-Tools"

const (
	improveIterations = 50
	searchIterations  = 200
)

// Solve assigns jobs to vehicles from a single depot (the first vehicle's start).
// A greedy cheapest-arc pass builds the first solution; a ruin-and-recreate search moves
// jobs between tours and 2-opt then shortens each tour, both only while ctx allows. The
// greedy pass always runs to completion.
func Solve(ctx context.Context, req model.RoutingRequest) model.RoutingResponse {
	if len(req.Vehicles) == 0 {
		return Infeasible(req.Jobs)
	}
	depot := req.Vehicles[0].Start
	points := make([]model.Location, 0, len(req.Jobs)+1)
	points = append(points, depot)
	for _, j := range req.Jobs {
		points = append(points, j.Location)
	}
	cost := costMatrix(req.Matrix, points)

	tours := greedyCheapestArc(cost, req.Vehicles, req.Jobs)
	assigned := 0
	for v := range tours {
		assigned += len(tours[v])
	}
	if assigned == 0 && len(req.Jobs) > 0 {
		return Infeasible(req.Jobs)
	}
	tours = ruinRecreate(ctx, cost, req.Vehicles, req.Jobs, tours, searchIterations, 1)

	resp := model.RoutingResponse{Engine: EngineName, Routes: []model.Route{}, Unassigned: []model.Unassigned{}}
	served := make([]bool, len(req.Jobs))
	for v, tour := range tours {
		if len(tour) == 0 {
			continue
		}
		order := make([]int, 0, len(tour)+2)
		order = append(order, 0)
		for _, ji := range tour {
			order = append(order, ji+1)
			served[ji] = true
		}
		order = append(order, 0)
		order = ImproveOrder2Opt(ctx, cost, order, improveIterations)
		rt := buildRoute(req.Vehicles[v].ID, order, cost, points, req.Jobs)
		resp.Routes = append(resp.Routes, rt)
		resp.Summary.Cost += rt.Cost
		resp.Summary.Service += rt.Service
	}
	for i, ok := range served {
		if !ok {
			resp.Unassigned = append(resp.Unassigned, model.Unassigned{ID: req.Jobs[i].ID, Location: req.Jobs[i].Location.LatLng()})
		}
	}
	resp.Summary.Unassigned = len(resp.Unassigned)
	resp.Summary.Duration = resp.Summary.Cost
	resp.Summary.Delivery = []int{1}
	resp.Summary.Amount = []int{1}
	resp.Summary.Pickup = []int{0}
	resp.Summary.Priority = model.DefaultPriority
	return resp
}

// Infeasible is the "no solution" response: code 1 with every job unassigned.
func Infeasible(jobs []model.Job) model.RoutingResponse {
	resp := model.RoutingResponse{
		Code:       1,
		Engine:     EngineName,
		Routes:     []model.Route{},
		Unassigned: make([]model.Unassigned, 0, len(jobs)),
		Summary:    model.Summary{Unassigned: len(jobs), Delivery: []int{0}, Amount: []int{0}, Pickup: []int{0}},
	}
	for _, j := range jobs {
		resp.Unassigned = append(resp.Unassigned, model.Unassigned{ID: j.ID, Location: j.Location.LatLng()})
	}
	return resp
}

// costMatrix uses a caller supplied matrix when it matches the node count.
func costMatrix(custom [][]float64, points []model.Location) [][]int {
	n := len(points)
	if len(custom) == n {
		out := make([][]int, n)
		for i, row := range custom {
			if len(row) != n {
				return DistanceMatrix(points)
			}
			out[i] = make([]int, n)
			for j, v := range row {
				out[i][j] = int(v)
			}
		}
		return out
	}
	return DistanceMatrix(points)
}

// greedyCheapestArc repeatedly extends whichever vehicle tour has the cheapest arc to an
// unvisited job. Ties go to the lower vehicle index, then the lower job index. Vehicles with
// a capacity only take jobs whose first delivery dimension still fits.
func greedyCheapestArc(cost [][]int, vehicles []model.Vehicle, jobs []model.Job) [][]int {
	tours := make([][]int, len(vehicles))
	tails := make([]int, len(vehicles))
	loads := make([]int, len(vehicles))
	visited := make([]bool, len(jobs))
	for {
		bestV, bestJ, bestC := -1, -1, 0
		for v := range vehicles {
			for j := range jobs {
				if visited[j] || !fits(vehicles[v], loads[v], jobs[j]) {
					continue
				}
				c := cost[tails[v]][j+1]
				if bestV < 0 || c < bestC {
					bestV, bestJ, bestC = v, j, c
				}
			}
		}
		if bestV < 0 {
			return tours
		}
		visited[bestJ] = true
		tours[bestV] = append(tours[bestV], bestJ)
		tails[bestV] = bestJ + 1
		d, _ := jobs[bestJ].Delivery.First()
		loads[bestV] += d
	}
}

func fits(v model.Vehicle, load int, j model.Job) bool {
	capacity, ok := v.Capacity.First()
	if !ok {
		return true
	}
	d, _ := j.Delivery.First()
	return load+d <= capacity
}

func buildRoute(vehicleID int, order []int, cost [][]int, points []model.Location, jobs []model.Job) model.Route {
	rt := model.Route{Vehicle: vehicleID, Steps: make([]model.Step, 0, len(order))}
	zero := 0
	rt.Steps = append(rt.Steps, model.Step{Type: model.StepStart, Location: points[0].LatLng(), Arrival: &zero, Duration: &zero})
	travel, service := 0, 0
	for i := 1; i < len(order); i++ {
		travel += cost[order[i-1]][order[i]]
		arrival := travel + service
		node := order[i]
		if i == len(order)-1 {
			rt.Steps = append(rt.Steps, model.Step{Type: model.StepEnd, Location: points[node].LatLng(), Arrival: &arrival})
			break
		}
		id := jobs[node-1].ID
		dur := model.DefaultServiceSec
		rt.Steps = append(rt.Steps, model.Step{Type: model.StepJob, Location: points[node].LatLng(), Job: &id, Arrival: &arrival, Duration: &dur})
		service += dur
	}
	rt.Cost = travel
	rt.Service = service
	rt.Duration = travel + service
	return rt
}
