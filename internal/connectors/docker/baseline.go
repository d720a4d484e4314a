package docker

import "github.com/docker/docker/api/types/container"

// Baseline is the hardened host configuration running containers are
// audited against.
func Baseline() container.HostConfig {
	return container.HostConfig{
		ReadonlyRootfs: true,
		CapDrop:        []string{"ALL"},
		Privileged:     false,
		Resources: container.Resources{
			Memory:    512 * 1024 * 1024,
			NanoCPUs:  1_000_000_000,
			PidsLimit: func() *int64 { v := int64(64); return &v }(),
		},
		NetworkMode: "bridge",
	}
}

var dangerousCapabilities = map[string]bool{
	"ALL":            true,
	"SYS_ADMIN":      true,
	"CAP_SYS_ADMIN":  true,
	"NET_ADMIN":      true,
	"CAP_NET_ADMIN":  true,
	"SYS_PTRACE":     true,
	"CAP_SYS_PTRACE": true,
	"SYS_MODULE":     true,
	"CAP_SYS_MODULE": true,
}
