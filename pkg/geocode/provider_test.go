package geocode

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockProvider implements Provider for testing cascade behavior.
type mockProvider struct {
	name      string
	available bool
	result    *Result
	err       error
	calls     int
}

func (m *mockProvider) Name() string    { return m.name }
func (m *mockProvider) Available() bool { return m.available }
func (m *mockProvider) Geocode(_ context.Context, _ string) (*Result, error) {
	m.calls++
	return m.result, m.err
}

func TestCascadeClient_FirstProviderMatches(t *testing.T) {
	p1 := &mockProvider{
		name:      "provider1",
		available: true,
		result:    &Result{Matched: true, Source: "provider1", Latitude: 25.77, Longitude: -80.19, Quality: "rooftop"},
	}
	p2 := &mockProvider{
		name:      "provider2",
		available: true,
		result:    &Result{Matched: true, Source: "provider2", Latitude: 30.0, Longitude: -85.0, Quality: "rooftop"},
	}

	c := NewCascadeClient(p1, p2)
	result, err := c.Geocode(context.Background(), "100 Main St, Miami, FL")

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Matched)
	assert.Equal(t, "provider1", result.Source)
	assert.InDelta(t, 25.77, result.Latitude, 0.01)
	assert.Zero(t, p2.calls, "second provider should not be called after a match")
}

func TestCascadeClient_FirstMissesSecondMatches(t *testing.T) {
	p1 := &mockProvider{name: "arcgis", available: true, result: &Result{Matched: false, Source: "arcgis"}}
	p2 := &mockProvider{
		name:      "census",
		available: true,
		result:    &Result{Matched: true, Source: "census", Latitude: 38.899, Longitude: -77.016, Quality: "range"},
	}

	result, err := NewCascadeClient(p1, p2).Geocode(context.Background(), "1600 Pennsylvania Ave NW, Washington, DC")

	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, "census", result.Source)
}

func TestCascadeClient_AllProvidersMiss(t *testing.T) {
	p1 := &mockProvider{name: "arcgis", available: true, result: &Result{Matched: false, Source: "arcgis"}}
	p2 := &mockProvider{name: "census", available: true, result: &Result{Matched: false, Source: "census"}}

	result, err := NewCascadeClient(p1, p2).Geocode(context.Background(), "000 Nowhere")

	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, "census", result.Source)
}

func TestCascadeClient_ErrorThenMatch(t *testing.T) {
	p1 := &mockProvider{name: "arcgis", available: true, err: errors.New("arcgis down")}
	p2 := &mockProvider{name: "census", available: true, result: &Result{Matched: true, Source: "census", Latitude: 1, Longitude: 2}}

	result, err := NewCascadeClient(p1, p2).Geocode(context.Background(), "1 Main St")

	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, "census", result.Source)
}

func TestCascadeClient_ErrorThenMissIsNotFound(t *testing.T) {
	p1 := &mockProvider{name: "arcgis", available: true, err: errors.New("arcgis down")}
	p2 := &mockProvider{name: "census", available: true, result: &Result{Matched: false, Source: "census"}}

	result, err := NewCascadeClient(p1, p2).Geocode(context.Background(), "1 Main St")

	require.NoError(t, err)
	assert.False(t, result.Matched)
}

func TestCascadeClient_SingleProviderErrorPassesThrough(t *testing.T) {
	boom := errors.New("geocode: arcgis: unexpected status 500")
	p := &mockProvider{name: "arcgis", available: true, err: boom}

	_, err := NewCascadeClient(p).Geocode(context.Background(), "1 Main St")
	require.Error(t, err)
	assert.Equal(t, boom, err)
}

func TestCascadeClient_AllProvidersFail(t *testing.T) {
	p1 := &mockProvider{name: "arcgis", available: true, err: errors.New("arcgis down")}
	p2 := &mockProvider{name: "census", available: true, err: errors.New("census down")}

	_, err := NewCascadeClient(p1, p2).Geocode(context.Background(), "1 Main St")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 providers failed")
	assert.Contains(t, err.Error(), "census down")
}

func TestCascadeClient_SkipsUnavailable(t *testing.T) {
	p1 := &mockProvider{name: "google", available: false, result: &Result{Matched: true, Source: "google"}}
	p2 := &mockProvider{name: "arcgis", available: true, result: &Result{Matched: true, Source: "arcgis"}}

	result, err := NewCascadeClient(p1, p2).Geocode(context.Background(), "1 Main St")
	require.NoError(t, err)
	assert.Equal(t, "arcgis", result.Source)
	assert.Zero(t, p1.calls)
}

func TestCascadeClient_NoneAvailable(t *testing.T) {
	p := &mockProvider{name: "google", available: false}

	_, err := NewCascadeClient(p).Geocode(context.Background(), "1 Main St")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no provider available")
}

func TestCascadeClient_NilResultCountsAsMiss(t *testing.T) {
	p := &mockProvider{name: "arcgis", available: true}

	result, err := NewCascadeClient(p).Geocode(context.Background(), "1 Main St")
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, "cascade", result.Source)
}

func TestCascadeClient_Providers(t *testing.T) {
	c := NewCascadeClient(&mockProvider{name: "arcgis"}, &mockProvider{name: "nominatim"})
	assert.Equal(t, []string{"arcgis", "nominatim"}, c.Providers())
}
