// Package cpsat provides a small 0/1 integer optimizer: boolean decision
// variables, bounded linear constraints, and a linear objective extended with
// absolute-deviation penalty terms, solved by branch-and-bound with
// constraint propagation under a wall-clock budget. The model surface mirrors
// what a full MIP backend offers so one can be swapped in behind it.
package cpsat

import (
	"math"
	"time"
)

// BoolVar identifies one 0/1 decision variable of a Model.
type BoolVar int

// Term is one coefficient*variable entry of a linear expression.
type Term struct {
	Var  BoolVar
	Coef int
}

// Status of a solve.
type Status int

const (
	// Optimal: search space exhausted, best solution proven optimal.
	Optimal Status = iota
	// Feasible: a solution was found but the budget expired before the
	// search finished.
	Feasible
	// Infeasible: search space exhausted with no solution.
	Infeasible
	// Unknown: budget expired before any solution was found.
	Unknown
)

type linearConstraint struct {
	terms []Term
	lo    int
	hi    int
}

type absPenalty struct {
	vars   []BoolVar
	target int
	weight int
}

// Model accumulates variables, constraints and the objective.
type Model struct {
	numVars     int
	constraints []linearConstraint
	objective   []int // per-variable objective weight
	absTerms    []absPenalty
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{}
}

// NewBoolVar adds a fresh 0/1 variable.
func (m *Model) NewBoolVar() BoolVar {
	v := BoolVar(m.numVars)
	m.numVars++
	m.objective = append(m.objective, 0)
	return v
}

// AddLinear constrains lo <= sum(terms) <= hi.
func (m *Model) AddLinear(terms []Term, lo, hi int) {
	m.constraints = append(m.constraints, linearConstraint{terms: terms, lo: lo, hi: hi})
}

func unitTerms(vars []BoolVar) []Term {
	terms := make([]Term, len(vars))
	for i, v := range vars {
		terms[i] = Term{Var: v, Coef: 1}
	}
	return terms
}

// AddSumEquals constrains the variables to sum to exactly k.
func (m *Model) AddSumEquals(vars []BoolVar, k int) {
	m.AddLinear(unitTerms(vars), k, k)
}

// AddSumAtMost constrains the variables to sum to at most k.
func (m *Model) AddSumAtMost(vars []BoolVar, k int) {
	m.AddLinear(unitTerms(vars), 0, k)
}

// AddSumAtLeast constrains the variables to sum to at least k.
func (m *Model) AddSumAtLeast(vars []BoolVar, k int) {
	m.AddLinear(unitTerms(vars), k, len(vars))
}

// AddImplication encodes a=1 => b=1 as a-b <= 0.
func (m *Model) AddImplication(a, b BoolVar) {
	m.AddLinear([]Term{{Var: a, Coef: 1}, {Var: b, Coef: -1}}, -1, 0)
}

// FixVar pins a variable to a value.
func (m *Model) FixVar(v BoolVar, value int) {
	m.AddLinear([]Term{{Var: v, Coef: 1}}, value, value)
}

// AddObjectiveTerm adds weight*v to the maximized objective. Repeated calls
// for the same variable accumulate.
func (m *Model) AddObjectiveTerm(v BoolVar, weight int) {
	m.objective[v] += weight
}

// AddAbsDeviationPenalty subtracts weight*|sum(vars)-target| from the
// objective. This is the linearized |x| objective a MIP backend would model
// with an auxiliary integer variable.
func (m *Model) AddAbsDeviationPenalty(vars []BoolVar, target, weight int) {
	if weight == 0 || len(vars) == 0 {
		return
	}
	m.absTerms = append(m.absTerms, absPenalty{vars: vars, target: target, weight: weight})
}

// Solution holds the best assignment found.
type Solution struct {
	Status    Status
	Objective int
	values    []int8
}

// Value reports the chosen value of a variable. Only meaningful when Status
// is Optimal or Feasible.
func (s Solution) Value(v BoolVar) bool {
	if int(v) >= len(s.values) {
		return false
	}
	return s.values[v] == 1
}

const unassigned = int8(-1)

type searcher struct {
	m         *Model
	deadline  time.Time
	nodes     int
	timedOut  bool
	found     bool
	bestObj   int
	bestVals  []int8
	varOrder  []BoolVar
}

// Solve runs branch-and-bound until the space is exhausted or the budget
// expires. The budget is the only cancellation mechanism; the solve is not
// interruptible from outside.
func (m *Model) Solve(budget time.Duration) Solution {
	s := &searcher{
		m:        m,
		deadline: time.Now().Add(budget),
		bestObj:  math.MinInt,
	}
	s.varOrder = make([]BoolVar, m.numVars)
	for i := range s.varOrder {
		s.varOrder[i] = BoolVar(i)
	}

	values := make([]int8, m.numVars)
	for i := range values {
		values[i] = unassigned
	}
	s.dfs(values)

	switch {
	case s.found && !s.timedOut:
		return Solution{Status: Optimal, Objective: s.bestObj, values: s.bestVals}
	case s.found:
		return Solution{Status: Feasible, Objective: s.bestObj, values: s.bestVals}
	case s.timedOut:
		return Solution{Status: Unknown}
	default:
		return Solution{Status: Infeasible}
	}
}

func (s *searcher) expired() bool {
	s.nodes++
	if s.timedOut {
		return true
	}
	if s.nodes%256 == 0 && time.Now().After(s.deadline) {
		s.timedOut = true
	}
	return s.timedOut
}

func (s *searcher) dfs(values []int8) {
	if s.expired() {
		return
	}
	if !s.propagate(values) {
		return
	}

	branch := BoolVar(-1)
	for _, v := range s.varOrder {
		if values[v] == unassigned {
			branch = v
			break
		}
	}
	if branch == -1 {
		obj := s.evaluate(values)
		if obj > s.bestObj {
			s.bestObj = obj
			s.bestVals = append([]int8(nil), values...)
			s.found = true
		}
		return
	}

	if s.found && s.upperBound(values) <= s.bestObj {
		return
	}

	first, second := int8(1), int8(0)
	if s.m.objective[branch] < 0 {
		first, second = 0, 1
	}
	for _, val := range []int8{first, second} {
		child := append([]int8(nil), values...)
		child[branch] = val
		s.dfs(child)
		if s.timedOut {
			return
		}
	}
}

// propagate runs bounds-consistency over all constraints to a fixpoint,
// forcing variables whose alternative value cannot satisfy some constraint.
// Returns false on conflict.
func (s *searcher) propagate(values []int8) bool {
	for {
		changed := false
		for _, c := range s.m.constraints {
			sumFixed, minRem, maxRem := 0, 0, 0
			for _, t := range c.terms {
				switch values[t.Var] {
				case unassigned:
					if t.Coef > 0 {
						maxRem += t.Coef
					} else {
						minRem += t.Coef
					}
				case 1:
					sumFixed += t.Coef
				}
			}
			if sumFixed+minRem > c.hi || sumFixed+maxRem < c.lo {
				return false
			}
			for _, t := range c.terms {
				if values[t.Var] != unassigned {
					continue
				}
				minPart, maxPart := 0, 0
				if t.Coef > 0 {
					maxPart = t.Coef
				} else {
					minPart = t.Coef
				}
				// Can this variable still take 1? 0?
				canOne := sumFixed+minRem-minPart+t.Coef <= c.hi &&
					sumFixed+maxRem-maxPart+t.Coef >= c.lo
				canZero := sumFixed+minRem-minPart <= c.hi &&
					sumFixed+maxRem-maxPart >= c.lo
				switch {
				case !canOne && !canZero:
					return false
				case !canOne:
					values[t.Var] = 0
					changed = true
				case !canZero:
					values[t.Var] = 1
					changed = true
				}
			}
		}
		if !changed {
			return true
		}
	}
}

// evaluate computes the objective of a complete assignment.
func (s *searcher) evaluate(values []int8) int {
	obj := 0
	for i, w := range s.m.objective {
		if values[i] == 1 {
			obj += w
		}
	}
	for _, a := range s.m.absTerms {
		sum := 0
		for _, v := range a.vars {
			if values[v] == 1 {
				sum++
			}
		}
		dev := sum - a.target
		if dev < 0 {
			dev = -dev
		}
		obj -= a.weight * dev
	}
	return obj
}

// upperBound is an optimistic completion of a partial assignment: positive
// objective weights for unassigned variables are taken, and each abs term
// contributes its smallest reachable deviation.
func (s *searcher) upperBound(values []int8) int {
	obj := 0
	for i, w := range s.m.objective {
		switch values[i] {
		case 1:
			obj += w
		case unassigned:
			if w > 0 {
				obj += w
			}
		}
	}
	for _, a := range s.m.absTerms {
		ones, open := 0, 0
		for _, v := range a.vars {
			switch values[v] {
			case 1:
				ones++
			case unassigned:
				open++
			}
		}
		minDev := 0
		if a.target < ones {
			minDev = ones - a.target
		} else if a.target > ones+open {
			minDev = a.target - ones - open
		}
		obj -= a.weight * minDev
	}
	return obj
}
