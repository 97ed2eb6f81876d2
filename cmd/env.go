package main

import (
	"github.com/sells-group/enrich-cli/internal/config"
	"github.com/sells-group/enrich-cli/internal/pipeline"
	"github.com/sells-group/enrich-cli/internal/store"
)

// enrichEnv holds the job store and the orchestrator shared by the enrich
// and serve commands.
type enrichEnv struct {
	Store        store.Store
	Orchestrator *pipeline.Orchestrator
}

// Close releases resources held by the environment.
func (e *enrichEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates c for mode and wires the store and orchestrator.
// Callers should defer env.Close().
func initEnv(c *config.Config, mode string) (*enrichEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	st := store.NewMemory()
	orch := pipeline.New(st, pipeline.NewResolverFactory(c), pipeline.OptionsFromConfig(c.Enrich))

	return &enrichEnv{Store: st, Orchestrator: orch}, nil
}
