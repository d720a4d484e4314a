package connectors

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryBuildsInOrder(t *testing.T) {
	r := NewRegistry()
	r.Register("mock", func() (Provider, error) { return MockProvider{}, nil })
	r.Register("broken", func() (Provider, error) { return nil, errors.New("no socket") })

	assert.Equal(t, []string{"broken", "mock"}, r.Names())

	ps, err := r.Build("mock")
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, "mock", ps[0].Name())

	_, err = r.Build("mock", "broken")
	assert.ErrorContains(t, err, `build provider "broken"`)

	_, err = r.Build("nessus")
	require.Error(t, err)
	assert.Contains(t, errors.FlattenHints(err), "known providers")
}

func TestMockProviderSignals(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	signals, err := MockProvider{Now: func() time.Time { return at }}.FetchSignals(context.Background())
	require.NoError(t, err)
	require.Len(t, signals, 2)

	assert.Equal(t, "cicd", signals[0].Source)
	assert.Equal(t, 4, signals[0].Severity)
	assert.True(t, signals[0].Metadata.InternetExposed)

	assert.Equal(t, "stale_admin_credential", signals[1].SignalType)
	assert.Equal(t, 5, signals[1].Severity)
	assert.True(t, signals[1].Metadata.PrivilegedAccess)
	assert.Equal(t, at, signals[1].DetectedAt)
}
