// Package stack provides pure helpers for naming, ordering, and variable
// substitution of phase resources on the container runtime.
package stack

import "fmt"

// Labels applied to every resource the orchestrator creates, used to find
// and tear down stale instances.
const (
	LabelManaged = "sh.stackup.managed"
	LabelPhase   = "sh.stackup.phase"
	LabelService = "sh.stackup.service"
)

// NamePrefix prefixes every managed resource name.
const NamePrefix = "stackup"

// NetworkName generates the network name for a phase.
// Pattern: stackup_{phase}
func NetworkName(phase string) string {
	return fmt.Sprintf("%s_%s", NamePrefix, phase)
}

// VolumeName generates a volume name for a phase.
// Pattern: stackup_{phase}_{volume}
func VolumeName(phase, volume string) string {
	return fmt.Sprintf("%s_%s_%s", NamePrefix, phase, volume)
}

// ContainerName generates a container name for a service in a phase.
// Pattern: stackup_{phase}_{service}
func ContainerName(phase, service string) string {
	return fmt.Sprintf("%s_%s_%s", NamePrefix, phase, service)
}
