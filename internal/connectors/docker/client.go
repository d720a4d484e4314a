package docker

import (
	"github.com/docker/docker/client"
)

// New connects to the engine named by DOCKER_HOST (or the default socket).
// Extra options are applied after the environment.
func New(extra ...client.Opt) (*client.Client, error) {
	opts := append([]client.Opt{
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	}, extra...)
	return client.NewClientWithOpts(opts...)
}
