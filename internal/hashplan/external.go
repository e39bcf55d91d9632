package hashplan

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// externalClosures maps every external node to the sorted names of all nodes
// reachable from it through the project graph dependencies, itself excluded.
// Closures are independent and computed in parallel.
func (p *Planner) externalClosures(ctx context.Context) (map[string][]string, error) {
	closures := make([][]string, len(p.externalNames))
	g, ctx := errgroup.WithContext(ctx)
	if p.parallelism > 0 {
		g.SetLimit(p.parallelism)
	}
	for i, name := range p.externalNames {
		i, name := i, name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			closures[i] = p.closure(name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]string, len(p.externalNames))
	for i, name := range p.externalNames {
		out[name] = closures[i]
	}
	return out, nil
}

func (p *Planner) closure(root string) []string {
	seen := map[string]bool{root: true}
	stack := []string{root}
	var out []string
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, dep := range p.graph.Dependencies[n] {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			out = append(out, dep)
			stack = append(stack, dep)
		}
	}
	sort.Strings(out)
	return out
}
