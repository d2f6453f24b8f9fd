package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"

	"github.com/MaximilianAltrock/flux-pdf-sub001/internal/models"
)

// WorkflowTrigger hands a reclaim pass off to the deployed reclaimer by
// starting a Workflows execution, instead of running the pass in-process.
type WorkflowTrigger struct {
	client   *executions.Client
	project  string
	location string
	workflow string
	logger   *slog.Logger
}

// NewWorkflowTrigger wraps an existing executions client.
func NewWorkflowTrigger(client *executions.Client, project, location, workflow string, logger *slog.Logger) *WorkflowTrigger {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkflowTrigger{
		client:   client,
		project:  project,
		location: location,
		workflow: workflow,
		logger:   logger,
	}
}

// Trigger starts one execution carrying the reclaim request as argument.
func (t *WorkflowTrigger) Trigger(ctx context.Context, reason string, requestedAt int64) error {
	t.logger.Info("Triggering reclaim workflow.", "workflow", t.workflow, "reason", reason)
	payloadBytes, err := json.Marshal(models.ReclaimRequest{Reason: reason, RequestedAt: requestedAt})
	if err != nil {
		return fmt.Errorf("failed to marshal reclaim request: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", t.project, t.location, t.workflow),
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	if _, err := t.client.CreateExecution(ctx, req); err != nil {
		return fmt.Errorf("failed to trigger reclaim workflow execution: %w", err)
	}
	return nil
}
