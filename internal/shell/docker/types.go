// Package docker provides the container runtime client and the compose
// engine the orchestrator drives deployments through.
package docker

import (
	"context"
	"io"
	"time"
)

// =============================================================================
// Client Interface
// =============================================================================

// Client abstracts the container runtime operations the engine needs.
type Client interface {
	Ping(ctx context.Context) error
	ServerVersion(ctx context.Context) (string, error)
	Info(ctx context.Context) (HostInfo, error)

	CreateContainer(ctx context.Context, spec ContainerSpec) (string, error)
	StartContainer(ctx context.Context, containerID string) error
	StopContainer(ctx context.Context, containerID string, timeout *time.Duration) error
	RemoveContainer(ctx context.Context, containerID string, opts RemoveOptions) error
	InspectContainer(ctx context.Context, containerID string) (*ContainerInfo, error)
	ListContainers(ctx context.Context, opts ListOptions) ([]ContainerInfo, error)
	ContainerLogs(ctx context.Context, containerID string, opts LogOptions) (io.ReadCloser, error)
	ExecContainer(ctx context.Context, containerID string, cmd []string) (int, error)

	CreateNetwork(ctx context.Context, spec NetworkSpec) (string, error)
	RemoveNetwork(ctx context.Context, networkID string) error

	CreateVolume(ctx context.Context, spec VolumeSpec) (string, error)
	RemoveVolume(ctx context.Context, volumeName string, force bool) error

	PullImage(ctx context.Context, imageName string, opts PullOptions) error
	BuildImage(ctx context.Context, opts BuildOptions) error
	ImageExists(ctx context.Context, imageName string) (bool, error)

	Close() error
}

// HostInfo is the subset of daemon information the validator consumes.
type HostInfo struct {
	ServerVersion string
	NCPU          int
	MemTotal      int64
}

// =============================================================================
// Container Types
// =============================================================================

// ContainerSpec defines the specification for creating a container.
type ContainerSpec struct {
	Name           string
	Image          string
	Command        []string
	Entrypoint     []string
	Env            map[string]string
	Labels         map[string]string
	Ports          []PortBinding
	Volumes        []VolumeMount
	Networks       []string
	NetworkAliases map[string][]string // network name -> DNS aliases
	RestartPolicy  RestartPolicy
	HealthCheck    *HealthCheck
}

// PortBinding defines a port mapping.
type PortBinding struct {
	ContainerPort int
	HostPort      int    // 0 for auto-assign
	Protocol      string // "tcp" or "udp"
	HostIP        string // "" for 0.0.0.0
}

// VolumeMount defines a volume mount.
type VolumeMount struct {
	Source   string // Volume name or host path
	Target   string // Container path
	ReadOnly bool
}

// RestartPolicy defines the container restart policy.
type RestartPolicy struct {
	Name              string // "no", "always", "on-failure", "unless-stopped"
	MaximumRetryCount int
}

// HealthCheck defines container health check configuration.
type HealthCheck struct {
	Test        []string
	Interval    time.Duration
	Timeout     time.Duration
	Retries     int
	StartPeriod time.Duration
}

// =============================================================================
// Container Info
// =============================================================================

// ContainerStatus represents the container status.
type ContainerStatus string

const (
	ContainerStatusCreated    ContainerStatus = "created"
	ContainerStatusRunning    ContainerStatus = "running"
	ContainerStatusPaused     ContainerStatus = "paused"
	ContainerStatusRestarting ContainerStatus = "restarting"
	ContainerStatusRemoving   ContainerStatus = "removing"
	ContainerStatusExited     ContainerStatus = "exited"
	ContainerStatusDead       ContainerStatus = "dead"
)

// ContainerInfo contains information about a container.
type ContainerInfo struct {
	ID        string
	Name      string
	Image     string
	Status    ContainerStatus
	Health    string // "healthy", "unhealthy", "starting", ""
	CreatedAt time.Time
	Ports     []PortBinding
	Labels    map[string]string
	ExitCode  int
}

// =============================================================================
// Network / Volume Types
// =============================================================================

// NetworkSpec defines the specification for creating a network.
type NetworkSpec struct {
	Name   string
	Driver string
	Labels map[string]string
}

// VolumeSpec defines the specification for creating a volume.
type VolumeSpec struct {
	Name   string
	Driver string
	Labels map[string]string
}

// =============================================================================
// Options
// =============================================================================

// RemoveOptions defines options for removing containers.
type RemoveOptions struct {
	Force         bool
	RemoveVolumes bool
}

// ListOptions defines options for listing containers.
type ListOptions struct {
	All     bool              // Include stopped containers
	Filters map[string]string // e.g., {"label": "sh.stackup.phase=edge"}
}

// LogOptions defines options for container logs.
type LogOptions struct {
	Follow     bool
	Tail       string // "all" or number
	Timestamps bool
}

// PullOptions defines options for pulling images.
type PullOptions struct {
	Platform string // e.g., "linux/amd64"
}

// BuildOptions defines options for building an image from a local context.
type BuildOptions struct {
	Tag        string
	ContextDir string
	Dockerfile string // relative to ContextDir, default "Dockerfile"
}

// =============================================================================
// Engine Types
// =============================================================================

// ServiceStatus is one managed container as reported by Ps.
type ServiceStatus struct {
	Container string
	Phase     string
	Service   string
	State     string
	Health    string // "healthy", "unhealthy", "starting", ""
}
