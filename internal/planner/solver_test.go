package planner

import "testing"

func totalCost(cost [][]float64, assignment []int) float64 {
	var sum float64
	for i, j := range assignment {
		if j >= 0 {
			sum += cost[i][j]
		}
	}
	return sum
}

func TestHungarianSolverFindsOptimalAssignment(t *testing.T) {
	cost := [][]float64{
		{4, 1, 3},
		{2, 0, 5},
		{3, 2, 2},
	}
	s := &hungarianSolver{}
	assignment, err := s.Solve(cost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := totalCost(cost, assignment)
	if got != 5 {
		t.Fatalf("expected optimal total cost 5, got %v (assignment=%v)", got, assignment)
	}
}

func TestHungarianSolverHandlesRectangularMatrix(t *testing.T) {
	cost := [][]float64{
		{1, 2},
		{2, 1},
		{5, 5},
	}
	s := &hungarianSolver{}
	assignment, err := s.Solve(cost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assigned := 0
	seen := map[int]bool{}
	for _, j := range assignment {
		if j < 0 {
			continue
		}
		if seen[j] {
			t.Fatalf("column %d assigned twice", j)
		}
		seen[j] = true
		assigned++
	}
	if assigned != 2 {
		t.Fatalf("expected exactly 2 routes covered (min(rows,cols)), got %d", assigned)
	}
}

func TestGreedySolverAssignsDistinctColumns(t *testing.T) {
	cost := [][]float64{
		{1, 9},
		{2, 1},
	}
	s := &greedySolver{}
	assignment, err := s.Solve(cost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assignment[0] == assignment[1] {
		t.Fatalf("expected distinct columns, got %v", assignment)
	}
}

func TestLPSolverIsPermanentlyUnavailable(t *testing.T) {
	s := &lpSolver{}
	if s.Available() {
		t.Fatal("lpSolver must report Available()=false: no LP library is wired in this build")
	}
}

func TestChainFallsBackPastUnavailableSolvers(t *testing.T) {
	chain := NewChain()
	cost := [][]float64{{1, 2}, {2, 1}}
	_, name, err := chain.Solve(cost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "hungarian" {
		t.Fatalf("expected the chain to skip the unavailable lp tier and land on hungarian, got %q", name)
	}
}
