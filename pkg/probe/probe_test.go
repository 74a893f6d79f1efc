package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mbeema/modloader/pkg/config"
	"github.com/mbeema/modloader/pkg/mono"
	"github.com/mbeema/modloader/pkg/mono/monotest"
)

const domain = mono.Domain(0xd0)

func defaultTarget() Target {
	return TargetFromConfig(config.DefaultConfig().Probe)
}

func streamer(singleton *monotest.Instance) *monotest.Class {
	return &monotest.Class{
		Name:    "LargeWorldStreamer",
		Statics: map[string]*monotest.Instance{"main": singleton},
		Fields:  []string{"inited"},
	}
}

func TestDefaultTarget(t *testing.T) {
	assert.Equal(t, Target{Class: "LargeWorldStreamer", InstanceField: "main", ReadyField: "inited"}, defaultTarget())
}

func TestReady(t *testing.T) {
	inited := &monotest.Instance{}
	inited.Set("inited", true)
	pending := &monotest.Instance{}
	pending.Set("inited", false)

	tests := []struct {
		name       string
		assemblies []*monotest.Assembly
		domain     mono.Domain
		want       bool
	}{
		{
			name:   "no assemblies",
			domain: domain,
		},
		{
			name:       "class not loaded",
			assemblies: []*monotest.Assembly{{Name: "mscorlib"}},
			domain:     domain,
		},
		{
			name:       "singleton null",
			assemblies: []*monotest.Assembly{{Name: "Assembly-CSharp", Classes: []*monotest.Class{streamer(nil)}}},
			domain:     domain,
		},
		{
			name:       "flag false",
			assemblies: []*monotest.Assembly{{Name: "Assembly-CSharp", Classes: []*monotest.Class{streamer(pending)}}},
			domain:     domain,
		},
		{
			name: "singleton field missing",
			assemblies: []*monotest.Assembly{{Name: "Assembly-CSharp", Classes: []*monotest.Class{{
				Name:   "LargeWorldStreamer",
				Fields: []string{"inited"},
			}}}},
			domain: domain,
		},
		{
			name: "ready field missing",
			assemblies: []*monotest.Assembly{{Name: "Assembly-CSharp", Classes: []*monotest.Class{{
				Name:    "LargeWorldStreamer",
				Statics: map[string]*monotest.Instance{"main": inited},
			}}}},
			domain: domain,
		},
		{
			name:       "null domain",
			assemblies: []*monotest.Assembly{{Name: "Assembly-CSharp", Classes: []*monotest.Class{streamer(inited)}}},
		},
		{
			name: "ready",
			assemblies: []*monotest.Assembly{
				{Name: "mscorlib"},
				{Name: "Assembly-CSharp", Classes: []*monotest.Class{streamer(inited)}},
			},
			domain: domain,
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			p := New(monotest.NewRuntime(tt.assemblies...), defaultTarget(), zap.New(core))

			assert.Equal(t, tt.want, p.Ready(tt.domain))
			assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
			assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
		})
	}
}

func TestReadyFollowsFlag(t *testing.T) {
	singleton := &monotest.Instance{}
	rt := monotest.NewRuntime()
	p := New(rt, defaultTarget(), zap.NewNop())

	assert.False(t, p.Ready(domain))

	rt.Load(&monotest.Assembly{Name: "Assembly-CSharp", Classes: []*monotest.Class{streamer(singleton)}})
	assert.False(t, p.Ready(domain))

	singleton.Set("inited", true)
	assert.True(t, p.Ready(domain))
	assert.Empty(t, rt.Invoked())
}

func TestReadyHonoursNamespace(t *testing.T) {
	class := streamer(&monotest.Instance{Bools: map[string]bool{"inited": true}})
	rt := monotest.NewRuntime(&monotest.Assembly{Classes: []*monotest.Class{class}})

	target := defaultTarget()
	target.Namespace = "UWE"
	assert.False(t, New(rt, target, zap.NewNop()).Ready(domain))

	class.Namespace = "UWE"
	assert.True(t, New(rt, target, zap.NewNop()).Ready(domain))
}
