package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/stackup-dev/stackup/internal/core/compose"
	"github.com/stackup-dev/stackup/internal/core/stack"
)

// =============================================================================
// Engine - Compose Bring-Up / Teardown
// =============================================================================

// Engine drives phase deployments against the container runtime. It is the
// orchestration collaborator the executor and validator talk to: version,
// up, down, ps, logs, build, and in-container readiness execs.
type Engine struct {
	docker Client
	logger *slog.Logger
}

// NewEngine creates a new engine.
func NewEngine(docker Client, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		docker: docker,
		logger: logger,
	}
}

// Version returns the runtime version, proving the daemon responds.
func (e *Engine) Version(ctx context.Context) (string, error) {
	return e.docker.ServerVersion(ctx)
}

// HostInfo exposes daemon host information for environment validation.
func (e *Engine) HostInfo(ctx context.Context) (HostInfo, error) {
	return e.docker.Info(ctx)
}

// =============================================================================
// Up
// =============================================================================

// Up brings up every service of a phase from its manifest in one operation.
// Intra-phase ordering comes from the manifest's depends_on declarations;
// the caller never starts services individually.
//
// A nil error means the bring-up calls were issued, not that the services
// are ready. Readiness is established only by the health gate.
func (e *Engine) Up(ctx context.Context, phaseName, manifestYAML string, vars map[string]string) error {
	manifest, err := compose.ParseManifest(manifestYAML)
	if err != nil {
		return fmt.Errorf("parse manifest for phase %s: %w", phaseName, err)
	}

	e.logger.Info("bringing up phase",
		"phase", phaseName,
		"services", len(manifest.Services),
	)

	networkName := stack.NetworkName(phaseName)
	if _, err := e.ensureNetwork(ctx, phaseName, networkName); err != nil {
		return fmt.Errorf("create network: %w", err)
	}
	e.logger.Debug("network ready", "network", networkName)

	for _, vol := range manifest.Volumes {
		if vol.External {
			continue
		}
		volumeName := stack.VolumeName(phaseName, vol.Name)
		if err := e.ensureVolume(ctx, phaseName, volumeName); err != nil {
			return fmt.Errorf("create volume %s: %w", vol.Name, err)
		}
		e.logger.Debug("volume ready", "volume", volumeName)
	}

	for _, svc := range manifest.Services {
		if svc.Image == "" {
			continue // locally built, handled by Build
		}
		exists, _ := e.docker.ImageExists(ctx, svc.Image)
		if !exists {
			e.logger.Info("pulling image", "image", svc.Image)
			if err := e.docker.PullImage(ctx, svc.Image, PullOptions{}); err != nil {
				e.logger.Warn("failed to pull image, trying anyway", "image", svc.Image, "error", err)
			}
		}
	}

	// Reuse containers surviving from a previous instance of this phase. A
	// list failure leaves survivors undetected, so surface it before it
	// resurfaces as a confusing name conflict on create.
	existing, err := e.docker.ListContainers(ctx, ListOptions{
		All: true,
		Filters: map[string]string{
			"label": fmt.Sprintf("%s=%s", stack.LabelPhase, phaseName),
		},
	})
	if err != nil {
		e.logger.Warn("could not list existing containers", "phase", phaseName, "error", err)
	}
	existingByService := make(map[string]ContainerInfo)
	for _, c := range existing {
		if svc, ok := c.Labels[stack.LabelService]; ok {
			existingByService[svc] = c
		}
	}

	started := make(map[string]string) // serviceName -> containerID

	for _, svc := range stack.SortServices(manifest.Services) {
		var containerID string

		if prior, found := existingByService[svc.Name]; found {
			containerID = prior.ID
			e.logger.Debug("reusing container", "service", svc.Name, "container_id", shortID(containerID))
		} else {
			spec := e.buildContainerSpec(phaseName, svc, networkName, vars)
			containerID, err = e.docker.CreateContainer(ctx, spec)
			if err != nil {
				e.cleanupStarted(ctx, started)
				return fmt.Errorf("create container %s: %w", svc.Name, err)
			}
			e.logger.Debug("created container", "service", svc.Name, "container_id", shortID(containerID))
		}

		started[svc.Name] = containerID

		if err := e.docker.StartContainer(ctx, containerID); err != nil {
			// Already-running containers are fine on re-up.
			if !errors.Is(err, ErrContainerAlreadyRunning) {
				e.cleanupStarted(ctx, started)
				return fmt.Errorf("start container %s: %w", svc.Name, err)
			}
		}
		e.logger.Debug("started container", "service", svc.Name, "container_id", shortID(containerID))
	}

	e.logger.Info("phase bring-up issued", "phase", phaseName, "containers", len(started))
	return nil
}

// =============================================================================
// Down
// =============================================================================

// Down tears down every container of a phase and its network. Teardown is
// best-effort: individual failures are logged and the rest proceeds.
func (e *Engine) Down(ctx context.Context, phaseName string) error {
	e.logger.Info("tearing down phase", "phase", phaseName)

	containers, err := e.docker.ListContainers(ctx, ListOptions{
		All: true,
		Filters: map[string]string{
			"label": fmt.Sprintf("%s=%s", stack.LabelPhase, phaseName),
		},
	})
	if err != nil {
		return fmt.Errorf("list containers: %w", err)
	}

	timeout := 10 * time.Second
	for _, c := range containers {
		if c.Status == ContainerStatusRunning {
			if err := e.docker.StopContainer(ctx, c.ID, &timeout); err != nil {
				e.logger.Warn("failed to stop container", "container_id", shortID(c.ID), "error", err)
			}
		}
		if err := e.docker.RemoveContainer(ctx, c.ID, RemoveOptions{Force: true}); err != nil {
			e.logger.Warn("failed to remove container", "container_id", shortID(c.ID), "error", err)
		} else {
			e.logger.Debug("removed container", "container_id", shortID(c.ID))
		}
	}

	networkName := stack.NetworkName(phaseName)
	if err := e.docker.RemoveNetwork(ctx, networkName); err != nil {
		e.logger.Debug("network not removed", "network", networkName, "error", err)
	}

	e.logger.Info("phase torn down", "phase", phaseName, "containers_removed", len(containers))
	return nil
}

// =============================================================================
// Ps / Logs
// =============================================================================

// Ps lists the managed containers currently known to the runtime.
func (e *Engine) Ps(ctx context.Context) ([]ServiceStatus, error) {
	containers, err := e.docker.ListContainers(ctx, ListOptions{
		All: true,
		Filters: map[string]string{
			"label": fmt.Sprintf("%s=true", stack.LabelManaged),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("list managed containers: %w", err)
	}

	var result []ServiceStatus
	for _, c := range containers {
		health := c.Health
		if health == "" {
			// List responses carry no health; inspect for it.
			if info, err := e.docker.InspectContainer(ctx, c.ID); err == nil {
				health = info.Health
			}
		}
		result = append(result, ServiceStatus{
			Container: c.Name,
			Phase:     c.Labels[stack.LabelPhase],
			Service:   c.Labels[stack.LabelService],
			State:     string(c.Status),
			Health:    health,
		})
	}

	return result, nil
}

// RunningManaged returns the names of managed containers currently running,
// used by the validator's conflict check.
func (e *Engine) RunningManaged(ctx context.Context) ([]string, error) {
	containers, err := e.docker.ListContainers(ctx, ListOptions{
		Filters: map[string]string{
			"label": fmt.Sprintf("%s=true", stack.LabelManaged),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("list running containers: %w", err)
	}

	var names []string
	for _, c := range containers {
		names = append(names, c.Name)
	}
	return names, nil
}

// Logs returns the tail of a service's container logs.
func (e *Engine) Logs(ctx context.Context, phaseName, service, tail string) (string, error) {
	containerID, err := e.findContainer(ctx, phaseName, service)
	if err != nil {
		return "", err
	}

	reader, err := e.docker.ContainerLogs(ctx, containerID, LogOptions{
		Tail:       tail,
		Timestamps: true,
	})
	if err != nil {
		return "", err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read logs for %s: %w", service, err)
	}
	return string(data), nil
}

// =============================================================================
// Build
// =============================================================================

// Build builds the images for every service in the manifest that declares a
// build context. Services with a registry image are left to pull at Up.
func (e *Engine) Build(ctx context.Context, phaseName, manifestYAML, manifestDir string) error {
	manifest, err := compose.ParseManifest(manifestYAML)
	if err != nil {
		return fmt.Errorf("parse manifest for phase %s: %w", phaseName, err)
	}

	for _, svc := range manifest.Services {
		if svc.Build == nil {
			continue
		}

		tag := svc.Image
		if tag == "" {
			tag = fmt.Sprintf("%s/%s:latest", stack.NamePrefix, svc.Name)
		}

		e.logger.Info("building image", "phase", phaseName, "service", svc.Name, "tag", tag)
		err := e.docker.BuildImage(ctx, BuildOptions{
			Tag:        tag,
			ContextDir: joinContext(manifestDir, svc.Build.Context),
			Dockerfile: svc.Build.Dockerfile,
		})
		if err != nil {
			return fmt.Errorf("build image for %s: %w", svc.Name, err)
		}
	}

	return nil
}

// =============================================================================
// Readiness Exec
// =============================================================================

// ExecProbe runs a readiness command inside a phase service's container and
// returns the command's exit code. An error means the command could not run
// at all (container missing or stopped), which is distinct from a nonzero
// exit.
func (e *Engine) ExecProbe(ctx context.Context, phaseName, service string, cmd []string) (int, error) {
	containerID, err := e.findContainer(ctx, phaseName, service)
	if err != nil {
		return 0, err
	}
	return e.docker.ExecContainer(ctx, containerID, cmd)
}

// ServiceRunning reports whether the service's container is currently
// running, regardless of health information.
func (e *Engine) ServiceRunning(ctx context.Context, phaseName, service string) (bool, error) {
	containerID, err := e.findContainer(ctx, phaseName, service)
	if err != nil {
		return false, err
	}
	info, err := e.docker.InspectContainer(ctx, containerID)
	if err != nil {
		return false, err
	}
	return info.Status == ContainerStatusRunning, nil
}

// =============================================================================
// Helpers
// =============================================================================

func (e *Engine) findContainer(ctx context.Context, phaseName, service string) (string, error) {
	containers, err := e.docker.ListContainers(ctx, ListOptions{
		All: true,
		Filters: map[string]string{
			"label": fmt.Sprintf("%s=%s", stack.LabelService, service),
		},
	})
	if err != nil {
		return "", err
	}

	for _, c := range containers {
		if c.Labels[stack.LabelPhase] == phaseName {
			return c.ID, nil
		}
	}
	return "", NewRuntimeError("findContainer", "container",
		stack.ContainerName(phaseName, service), "container not found", ErrContainerNotFound)
}

func (e *Engine) ensureNetwork(ctx context.Context, phaseName, networkName string) (string, error) {
	networkID, err := e.docker.CreateNetwork(ctx, NetworkSpec{
		Name:   networkName,
		Driver: "bridge",
		Labels: map[string]string{
			stack.LabelManaged: "true",
			stack.LabelPhase:   phaseName,
		},
	})
	if err != nil {
		if errors.Is(err, ErrNetworkAlreadyExists) {
			e.logger.Debug("network already exists, reusing", "network", networkName)
			return networkName, nil
		}
		return "", err
	}
	return networkID, nil
}

func (e *Engine) ensureVolume(ctx context.Context, phaseName, volumeName string) error {
	_, err := e.docker.CreateVolume(ctx, VolumeSpec{
		Name: volumeName,
		Labels: map[string]string{
			stack.LabelManaged: "true",
			stack.LabelPhase:   phaseName,
		},
	})
	return err
}

// buildContainerSpec maps a compose service onto a runtime container spec.
func (e *Engine) buildContainerSpec(phaseName string, svc compose.Service, networkName string, vars map[string]string) ContainerSpec {
	spec := ContainerSpec{
		Name:       stack.ContainerName(phaseName, svc.Name),
		Image:      svc.Image,
		Command:    svc.Command,
		Entrypoint: svc.Entrypoint,
		Env:        make(map[string]string),
		Labels: map[string]string{
			stack.LabelManaged: "true",
			stack.LabelPhase:   phaseName,
			stack.LabelService: svc.Name,
		},
		Networks: []string{networkName},
		NetworkAliases: map[string][]string{
			networkName: {svc.Name},
		},
	}

	if spec.Image == "" && svc.Build != nil {
		spec.Image = fmt.Sprintf("%s/%s:latest", stack.NamePrefix, svc.Name)
	}

	for k, v := range svc.Environment {
		spec.Env[k] = stack.SubstituteVariables(v, vars)
	}

	for _, p := range svc.Ports {
		spec.Ports = append(spec.Ports, PortBinding{
			ContainerPort: int(p.Target),
			HostPort:      int(p.Published),
			Protocol:      p.Protocol,
			HostIP:        p.HostIP,
		})
	}

	for _, v := range svc.Volumes {
		source := v.Source
		if v.Type == compose.VolumeMountTypeVolume {
			source = stack.VolumeName(phaseName, v.Source)
		}
		spec.Volumes = append(spec.Volumes, VolumeMount{
			Source:   source,
			Target:   v.Target,
			ReadOnly: v.ReadOnly,
		})
	}

	if svc.HealthCheck != nil {
		spec.HealthCheck = &HealthCheck{
			Test:    svc.HealthCheck.Test,
			Retries: svc.HealthCheck.Retries,
		}
		if d, err := time.ParseDuration(svc.HealthCheck.Interval); err == nil {
			spec.HealthCheck.Interval = d
		}
		if d, err := time.ParseDuration(svc.HealthCheck.Timeout); err == nil {
			spec.HealthCheck.Timeout = d
		}
		if d, err := time.ParseDuration(svc.HealthCheck.StartPeriod); err == nil {
			spec.HealthCheck.StartPeriod = d
		}
	}

	switch svc.Restart {
	case compose.RestartAlways:
		spec.RestartPolicy = RestartPolicy{Name: "always"}
	case compose.RestartOnFailure:
		spec.RestartPolicy = RestartPolicy{Name: "on-failure"}
	case compose.RestartUnlessStopped:
		spec.RestartPolicy = RestartPolicy{Name: "unless-stopped"}
	default:
		spec.RestartPolicy = RestartPolicy{Name: "no"}
	}

	for k, v := range svc.Labels {
		spec.Labels[k] = v
	}

	return spec
}

// cleanupStarted stops and removes containers created during a failed Up.
func (e *Engine) cleanupStarted(ctx context.Context, containers map[string]string) {
	timeout := 5 * time.Second
	for name, id := range containers {
		_ = e.docker.StopContainer(ctx, id, &timeout)
		_ = e.docker.RemoveContainer(ctx, id, RemoveOptions{Force: true})
		e.logger.Debug("cleaned up container", "service", name, "container_id", shortID(id))
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func joinContext(manifestDir, buildContext string) string {
	if buildContext == "" {
		return manifestDir
	}
	if buildContext[0] == '/' {
		return buildContext
	}
	return manifestDir + "/" + buildContext
}
