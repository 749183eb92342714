package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrViewCycle is returned when view dependencies form a cycle.
var ErrViewCycle = errors.New("view dependency cycle")

// ViewChanges holds dependency-safe orderings of views to drop and deploy.
type ViewChanges struct {
	// Drop lists views so that every view precedes the views it depends on.
	Drop []View
	// Deploy lists views so that every view follows the views it depends on.
	Deploy []View
}

// ViewPlanner orders view drops and deploys by their declared dependencies.
type ViewPlanner struct {
	names NamePolicy
}

// NewViewPlanner creates a planner using the given name policy (nil means UpperCase).
func NewViewPlanner(names NamePolicy) *ViewPlanner {
	if names == nil {
		names = UpperCase
	}
	return &ViewPlanner{names: names}
}

// Plan orders the candidate drops and deploys.
//
// all is the full set of required views and carries the dependency information.
// drops are views present in the database; deploys not also listed in drops are
// absent. A present view that depends (directly or transitively) on a dropped
// view is dropped as well, and redeployed when required.
func (p *ViewPlanner) Plan(all, drops, deploys []View) (ViewChanges, error) {
	nodes := make(map[string]View)
	required := make(map[string]View, len(all))
	for _, v := range all {
		key := p.names.Normalize(v.Name)
		required[key] = v
		nodes[key] = v
	}

	dropSet := make(map[string]View, len(drops))
	for _, v := range drops {
		key := p.names.Normalize(v.Name)
		dropSet[key] = v
		if _, ok := nodes[key]; !ok {
			nodes[key] = v
		}
	}

	deploySet := make(map[string]View, len(deploys))
	for _, v := range deploys {
		deploySet[p.names.Normalize(v.Name)] = v
	}

	// dependents[x] lists the nodes that select from x.
	dependents := make(map[string][]string)
	inDegree := make(map[string]int, len(nodes))
	for key := range nodes {
		inDegree[key] = 0
	}
	for key, v := range nodes {
		for _, dep := range v.DependsOn {
			depKey := p.names.Normalize(dep)
			if _, ok := nodes[depKey]; !ok || depKey == key {
				continue
			}
			dependents[depKey] = append(dependents[depKey], key)
			inDegree[key]++
		}
	}

	// A pending deploy that is not a drop candidate does not exist yet, so it
	// is walked through but never dropped.
	visited := make(map[string]bool, len(nodes))
	queue := make([]string, 0, len(dropSet))
	for key := range dropSet {
		visited[key] = true
		queue = append(queue, key)
	}
	sort.Strings(queue)
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		for _, d := range dependents[key] {
			if visited[d] {
				continue
			}
			visited[d] = true
			queue = append(queue, d)
			if _, pending := deploySet[d]; pending {
				continue
			}
			dropSet[d] = nodes[d]
			if v, ok := required[d]; ok {
				deploySet[d] = v
			}
		}
	}

	order, err := p.topologicalOrder(nodes, dependents, inDegree)
	if err != nil {
		return ViewChanges{}, err
	}

	var changes ViewChanges
	for i := len(order) - 1; i >= 0; i-- {
		if v, ok := dropSet[order[i]]; ok {
			changes.Drop = append(changes.Drop, v)
		}
	}
	for _, key := range order {
		if v, ok := deploySet[key]; ok {
			changes.Deploy = append(changes.Deploy, v)
		}
	}
	return changes, nil
}

// topologicalOrder returns node keys with dependencies first, ties broken by name.
func (p *ViewPlanner) topologicalOrder(nodes map[string]View, dependents map[string][]string, inDegree map[string]int) ([]string, error) {
	var ready []string
	for key, n := range inDegree {
		if n == 0 {
			ready = append(ready, key)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(nodes))
	for len(ready) > 0 {
		key := ready[0]
		ready = ready[1:]
		order = append(order, key)

		next := dependents[key]
		sort.Strings(next)
		for _, d := range next {
			inDegree[d]--
			if inDegree[d] == 0 {
				ready = append(ready, d)
			}
		}
		sort.Strings(ready)
	}

	if len(order) != len(nodes) {
		var stuck []string
		for key, n := range inDegree {
			if n > 0 {
				stuck = append(stuck, nodes[key].Name)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("%w: %s", ErrViewCycle, strings.Join(stuck, ", "))
	}
	return order, nil
}
