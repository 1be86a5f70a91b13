package scene

import (
	"fmt"
	"sort"

	"github.com/san-kum/yarnsim/internal/config"
	"github.com/san-kum/yarnsim/internal/dynamo"
)

// Builder assembles a scene from a scenario.
type Builder func(*config.Scenario) (*Handles, error)

type Registry struct {
	builders map[string]Builder
}

func NewRegistry() *Registry {
	r := &Registry{builders: make(map[string]Builder)}
	r.builders[config.SceneFallingYarn] = buildFallingYarnScenario
	r.builders[config.SceneGuidePull] = BuildGuidePull
	return r
}

// Register adds or replaces a builder.
func (r *Registry) Register(name string, b Builder) { r.builders[name] = b }

// Build looks up the builder for name and runs it.
func (r *Registry) Build(name string, sc *config.Scenario) (*Handles, error) {
	b, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", dynamo.ErrUnknownScene, name)
	}
	return b(sc)
}

// Names lists registered scenes, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
