package stack

import (
	"github.com/stackup-dev/stackup/internal/core/compose"
)

// SortServices orders services by their depends_on declarations using
// Kahn's algorithm, so dependencies start before their dependents. The
// intra-phase ordering is entirely the manifest's: the phase table never
// expresses it.
//
// Cycles are rejected at parse time; should one slip through, remaining
// services are appended in input order as a fallback.
func SortServices(services []compose.Service) []compose.Service {
	if len(services) == 0 {
		return services
	}

	serviceMap := make(map[string]compose.Service)
	inDegree := make(map[string]int)
	dependents := make(map[string][]string)

	for _, svc := range services {
		serviceMap[svc.Name] = svc
		inDegree[svc.Name] = len(svc.DependsOn)
		for _, dep := range svc.DependsOn {
			dependents[dep] = append(dependents[dep], svc.Name)
		}
	}

	// Seed with services that have no dependencies, in input order to keep
	// the result deterministic. The parser emits services sorted by name.
	var queue []string
	for _, svc := range services {
		if inDegree[svc.Name] == 0 {
			queue = append(queue, svc.Name)
		}
	}

	var result []compose.Service
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		if svc, ok := serviceMap[name]; ok {
			result = append(result, svc)
		}

		for _, dep := range dependents[name] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(result) < len(services) {
		seen := make(map[string]bool, len(result))
		for _, r := range result {
			seen[r.Name] = true
		}
		for _, svc := range services {
			if !seen[svc.Name] {
				result = append(result, svc)
			}
		}
	}

	return result
}
