package docker

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/jim-wyatt/saas-tesa/internal/model"
)

const source = "docker"

// engineAPI is the part of the docker client the audit needs.
type engineAPI interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]types.Container, error)
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
}

// Provider audits the running containers of a docker engine.
type Provider struct {
	cli engineAPI
	now func() time.Time
}

func NewProvider(cli engineAPI) *Provider {
	return &Provider{cli: cli, now: func() time.Time { return time.Now().UTC() }}
}

func (*Provider) Name() string { return source }

func (p *Provider) FetchSignals(ctx context.Context) ([]model.ThreatSignal, error) {
	logger := otelzap.Ctx(ctx)
	containers, err := p.cli.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "list containers")
	}
	now := p.now()
	signals := []model.ThreatSignal{}
	for _, c := range containers {
		info, err := p.cli.ContainerInspect(ctx, c.ID)
		if err != nil {
			// The container may have exited between list and inspect.
			logger.Warn("Skipping container that could not be inspected",
				zap.String("container_id", c.ID),
				zap.Error(err))
			continue
		}
		signals = append(signals, auditContainer(info, now)...)
	}
	logger.Info("Docker audit complete",
		zap.Int("containers", len(containers)),
		zap.Int("signals", len(signals)))
	return signals, nil
}

type check struct {
	signalType string
	severity   int
	privileged bool
	detail     string
}

// auditContainer compares one container against Baseline. Every signal of a
// container with a public port binding is marked internet exposed.
func auditContainer(info types.ContainerJSON, detectedAt time.Time) []model.ThreatSignal {
	if info.ContainerJSONBase == nil || info.HostConfig == nil {
		return nil
	}
	hc := info.HostConfig
	baseline := Baseline()
	var checks []check

	if hc.Privileged && !baseline.Privileged {
		checks = append(checks, check{"privileged_container", 4, true, "container runs with --privileged"})
	}
	// One signal type per capability, so each added capability is its own
	// finding.
	for _, capability := range hc.CapAdd {
		if dangerousCapabilities[strings.ToUpper(capability)] {
			name := strings.ToLower(strings.TrimPrefix(strings.ToUpper(capability), "CAP_"))
			checks = append(checks, check{"dangerous_capability_" + name, 4, true, "capability " + capability + " added"})
		}
	}
	if hc.NetworkMode.IsHost() {
		checks = append(checks, check{"host_network", 3, false, "container shares the host network namespace"})
	}
	exposed := publicBindings(hc)
	if len(exposed) > 0 {
		checks = append(checks, check{"public_port_binding", 3, false, "ports published on all interfaces: " + strings.Join(exposed, ",")})
	}
	if info.Config != nil && runsAsRoot(info.Config.User) {
		checks = append(checks, check{"container_runs_as_root", 2, false, "no non-root user configured"})
	}
	if baseline.ReadonlyRootfs && !hc.ReadonlyRootfs {
		checks = append(checks, check{"writable_root_filesystem", 2, false, "root filesystem is writable"})
	}
	if baseline.Memory > 0 && hc.Memory == 0 {
		checks = append(checks, check{"unbounded_memory", 1, false, "no memory limit"})
	}
	if baseline.PidsLimit != nil && (hc.PidsLimit == nil || *hc.PidsLimit <= 0) {
		checks = append(checks, check{"unbounded_pids", 1, false, "no pids limit"})
	}

	name := strings.TrimPrefix(info.Name, "/")
	image := ""
	if info.Config != nil {
		image = info.Config.Image
	}
	signals := make([]model.ThreatSignal, 0, len(checks))
	for _, c := range checks {
		signals = append(signals, model.ThreatSignal{
			Source:     source,
			SignalType: c.signalType,
			Severity:   c.severity,
			DetectedAt: detectedAt,
			Metadata: model.Metadata{
				Domain:           "container",
				InternetExposed:  len(exposed) > 0,
				PrivilegedAccess: c.privileged,
				ResourceUID:      info.ID,
				ResourceName:     name,
				ResourceType:     "container",
				Platform:         "docker",
				Extra: map[string]any{
					"image":  image,
					"detail": c.detail,
				},
			},
		})
	}
	return signals
}

func publicBindings(hc *container.HostConfig) []string {
	var out []string
	for port, bindings := range hc.PortBindings {
		for _, b := range bindings {
			if b.HostIP == "" || b.HostIP == "0.0.0.0" || b.HostIP == "::" {
				out = append(out, string(port))
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

func runsAsRoot(user string) bool {
	u := strings.TrimSpace(user)
	if i := strings.Index(u, ":"); i >= 0 {
		u = u[:i]
	}
	return u == "" || u == "0" || u == "root"
}
