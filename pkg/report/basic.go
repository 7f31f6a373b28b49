package report

import (
	"context"

	"ai-researcher-be/pkg/researcher"
)

// BasicReport runs the linear research-then-write pipeline for one query.
// Any failure propagates to the caller.
type BasicReport struct {
	Task     researcher.ReportTask
	Factory  researcher.Factory
	Progress researcher.ProgressFunc
}

func (r *BasicReport) Run(ctx context.Context) (string, error) {
	agent := r.Factory.NewAgent(researcher.AgentConfig{
		Task:     r.Task,
		Progress: r.Progress,
	})

	if err := agent.ConductResearch(ctx); err != nil {
		return "", err
	}
	return agent.WriteReport(ctx, nil, nil)
}
