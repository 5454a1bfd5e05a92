package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarOverridePrecedence(t *testing.T) {
	b := NewBuilder()
	b.Apply(LayerUserRC, map[string]string{"jobs": "2"})
	b.Apply(LayerProject, map[string]string{"jobs": "4"})
	b.Apply(LayerEnv, map[string]string{"jobs": "8"})
	s := b.Freeze()

	assert.Equal(t, 8, s.Jobs)

	sources := s.Sources("jobs")
	require.Len(t, sources, 4) // defaults + three layers
	assert.Equal(t, LayerEnv, sources[len(sources)-1].Layer)
}

func TestUnionListsCombineAcrossLayers(t *testing.T) {
	b := NewBuilder()
	b.Apply(LayerUserRC, map[string]string{"exclude": "vendor,dist"})
	b.Apply(LayerProject, map[string]string{"exclude": "node_modules"})
	b.Apply(LayerCLI, map[string]string{"exclude": "dist,build"})
	s := b.Freeze()

	assert.Equal(t, []string{"vendor", "dist", "node_modules", "build"}, s.Exclude)
	assert.True(t, IsUnionKey("exclude"))
	assert.False(t, IsUnionKey("jobs"))
}

func TestSkipListsUnion(t *testing.T) {
	b := NewBuilder()
	b.Apply(LayerEnv, map[string]string{"skip_steps": "slow-lint"})
	b.Apply(LayerCLI, map[string]string{"skip_steps": "fmt"})
	s := b.Freeze()
	assert.Equal(t, []string{"slow-lint", "fmt"}, s.SkipSteps)
}

func TestProfileParsing(t *testing.T) {
	b := NewBuilder()
	b.Apply(LayerEnv, map[string]string{"profile": "ci,!slow"})
	s := b.Freeze()

	assert.True(t, s.ProfileEnabled("ci"))
	assert.False(t, s.ProfileEnabled("slow"))
	assert.False(t, s.ProfileEnabled("unknown"))
}

func TestProfileDisableWinsOverEnable(t *testing.T) {
	b := NewBuilder()
	b.Apply(LayerProject, map[string]string{"profile": "slow"})
	b.Apply(LayerCLI, map[string]string{"profile": "!slow"})
	s := b.Freeze()
	assert.False(t, s.ProfileEnabled("slow"))
}

func TestBoolParsing(t *testing.T) {
	b := NewBuilder()
	b.Apply(LayerEnv, map[string]string{"fail_fast": "0"})
	s := b.Freeze()
	assert.False(t, s.FailFast)

	b = NewBuilder()
	b.Apply(LayerEnv, map[string]string{"fail_fast": "not-a-bool"})
	assert.True(t, b.Freeze().FailFast) // defaults survive garbage
}

func TestStashMethodValidation(t *testing.T) {
	b := NewBuilder()
	b.Apply(LayerEnv, map[string]string{"stash": "patch-file"})
	assert.Equal(t, "patch-file", b.Freeze().Stash)

	b = NewBuilder()
	b.Apply(LayerEnv, map[string]string{"stash": "bogus"})
	assert.Equal(t, "auto", b.Freeze().Stash)
}

func TestEffectiveJobs(t *testing.T) {
	b := NewBuilder()
	s := b.Freeze()
	assert.Greater(t, s.EffectiveJobs(), 0)

	b = NewBuilder()
	b.Apply(LayerCLI, map[string]string{"jobs": "3"})
	assert.Equal(t, 3, b.Freeze().EffectiveJobs())
}

func TestEnvLayerExtraction(t *testing.T) {
	values := envLayerFrom([]string{
		"HK_JOBS=6",
		"HK_PROFILE=ci",
		"HK_STASH=git",
		"HOME=/home/u",
		"HK_UNKNOWN_THING=x",
	})
	assert.Equal(t, map[string]string{
		"jobs":    "6",
		"profile": "ci",
		"stash":   "git",
	}, values)
}

func TestDescribe(t *testing.T) {
	b := NewBuilder()
	b.Apply(LayerCLI, map[string]string{"stash": "git", "jobs": "2"})
	s := b.Freeze()

	v, err := s.Describe("stash")
	require.NoError(t, err)
	assert.Equal(t, "git", v)

	v, err = s.Describe("jobs")
	require.NoError(t, err)
	assert.Equal(t, "2", v)

	_, err = s.Describe("nope")
	assert.Error(t, err)
}
