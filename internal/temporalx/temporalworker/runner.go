package temporalworker

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/govgen-backend/internal/platform/logger"
	"github.com/yungbote/govgen-backend/internal/services"
	"github.com/yungbote/govgen-backend/internal/temporalx"
	"github.com/yungbote/govgen-backend/internal/temporalx/generationrun"
)

type Runner struct {
	log      *logger.Logger
	cfg      temporalx.Config
	tc       temporalsdkclient.Client
	pipeline services.GenerationPipeline
}

func NewRunner(log *logger.Logger, cfg temporalx.Config, tc temporalsdkclient.Client, pipeline services.GenerationPipeline) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if pipeline == nil {
		return nil, fmt.Errorf("temporal worker missing deps")
	}
	return &Runner{
		log:      log.With("service", "TemporalWorker"),
		cfg:      cfg.WithDefaults(),
		tc:       tc,
		pipeline: pipeline,
	}, nil
}

// Start begins polling and returns once the worker is running. The worker
// stops when ctx is done.
func (r *Runner) Start(ctx context.Context) error {
	cfg := r.cfg
	r.log.Info("Starting Temporal worker", "address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)

	if cfg.AutoRegisterNamespace {
		if err := temporalx.EnsureNamespace(ctx, cfg, r.log); err != nil {
			r.log.Warn("Temporal namespace ensure failed; worker will retry on start", "namespace", cfg.Namespace, "error", err)
		}
	}

	deadline := time.Now().Add(cfg.DialMaxWait)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue, "attempts", attempt)
			return nil
		}
		w.Stop()

		if temporalx.IsNamespaceNotFound(startErr) && cfg.AutoRegisterNamespace {
			_ = temporalx.EnsureNamespace(ctx, cfg, r.log)
		}
		if cfg.DialMaxWait <= 0 || time.Now().After(deadline) {
			if temporalx.IsNamespaceNotFound(startErr) {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", cfg.Namespace, startErr)
			}
			return startErr
		}

		r.log.Warn("Temporal worker failed to start; retrying", "task_queue", cfg.TaskQueue, "attempt", attempt, "error", startErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff(cfg, attempt)):
		}
	}
}

func (r *Runner) newWorker() worker.Worker {
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     r.cfg.WorkerConcurrency,
		MaxConcurrentWorkflowTaskExecutionSize: r.cfg.WorkerConcurrency,
	})

	acts := &generationrun.Activities{Log: r.log, Pipeline: r.pipeline}
	w.RegisterWorkflowWithOptions(generationrun.Workflow, workflow.RegisterOptions{Name: generationrun.WorkflowName})
	w.RegisterActivityWithOptions(acts.Reason, activity.RegisterOptions{Name: generationrun.ActivityReason})
	w.RegisterActivityWithOptions(acts.Generate, activity.RegisterOptions{Name: generationrun.ActivityGenerate})
	w.RegisterActivityWithOptions(acts.Validate, activity.RegisterOptions{Name: generationrun.ActivityValidate})
	return w
}

func backoff(cfg temporalx.Config, attempt int) time.Duration {
	d := cfg.Backoff
	for i := 1; i < attempt && d < cfg.BackoffMax; i++ {
		d *= 2
	}
	if d > cfg.BackoffMax {
		d = cfg.BackoffMax
	}
	return d
}
