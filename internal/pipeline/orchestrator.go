// Package pipeline drives enrichment jobs: it batches the company list,
// bounds concurrency, retries each company's lookups and records outcomes.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sells-group/enrich-cli/internal/config"
	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/resilience"
	"github.com/sells-group/enrich-cli/internal/store"
)

// WebsiteDetector finds a company's website.
type WebsiteDetector interface {
	DetectWebsite(ctx context.Context, company string) (model.WebsiteLookup, error)
}

// ContactFinder finds a company's phone and email.
type ContactFinder interface {
	LookupContact(ctx context.Context, company string) (model.ContactLookup, error)
}

// Resolvers is the resolver pair used by one job run.
type Resolvers struct {
	Website WebsiteDetector
	Contact ContactFinder
}

// ResolverFactory builds fresh resolvers, each with its own rate limiter,
// for a single job run.
type ResolverFactory func(ctx context.Context) (*Resolvers, error)

// Options tunes batching, concurrency and retries.
type Options struct {
	BatchSize      int
	MaxConcurrency int
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// OptionsFromConfig maps the enrich config section onto Options.
func OptionsFromConfig(cfg config.EnrichConfig) Options {
	return Options{
		BatchSize:      cfg.BatchSize,
		MaxConcurrency: cfg.MaxConcurrency,
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: cfg.RetryBaseDelay(),
	}
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = config.MaxBatchSize
	}
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = 20
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.RetryBaseDelay < 0 {
		o.RetryBaseDelay = 0
	}
	return o
}

// Orchestrator runs jobs against a shared store.
type Orchestrator struct {
	store        store.Store
	newResolvers ResolverFactory
	opts         Options
}

// New creates an Orchestrator.
func New(st store.Store, factory ResolverFactory, opts Options) *Orchestrator {
	return &Orchestrator{
		store:        st,
		newResolvers: factory,
		opts:         opts.withDefaults(),
	}
}

// ErrNotPending is returned by Start for a job that has already been started.
var ErrNotPending = eris.New("pipeline: job is not pending")

// Start drives job jobID over companies to a terminal status. The job must
// exist and be PENDING; otherwise nothing is written and an error is
// returned. Any other non-nil error means the job was marked FAILED (or
// could not be updated at all); per-company failures never surface here.
func (o *Orchestrator) Start(ctx context.Context, jobID string, companies []string) error {
	log := zap.L().With(zap.String("job_id", jobID))

	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return eris.Wrap(err, "pipeline: read job")
	}
	if job.Status != model.JobPending {
		return eris.Wrapf(ErrNotPending, "pipeline: start job %s in status %s", jobID, job.Status)
	}

	if err := o.store.SetStatus(ctx, jobID, model.JobProcessing, ""); err != nil {
		return eris.Wrap(err, "pipeline: mark processing")
	}
	log.Info("pipeline: job started",
		zap.Int("total", len(companies)),
		zap.Int("batch_size", o.opts.BatchSize),
		zap.Int("max_concurrency", o.opts.MaxConcurrency),
	)

	// Terminal writes must land even when ctx is what ended the run.
	finalCtx := context.WithoutCancel(ctx)

	if runErr := o.process(ctx, jobID, companies); runErr != nil {
		log.Error("pipeline: job failed", zap.Error(runErr))
		if err := o.store.SetStatus(finalCtx, jobID, model.JobFailed, runErr.Error()); err != nil {
			log.Error("pipeline: mark failed", zap.Error(err))
		}
		return runErr
	}

	if err := o.store.SetStatus(finalCtx, jobID, model.JobCompleted, ""); err != nil {
		return eris.Wrap(err, "pipeline: mark completed")
	}

	if job, err := o.store.GetJob(finalCtx, jobID); err == nil {
		log.Info("pipeline: job completed",
			zap.Int("processed", job.Processed),
			zap.Int("succeeded", job.SuccessCount),
			zap.Int("failed", job.FailureCount),
		)
	}
	return nil
}

// Run creates a job for companies, processes it synchronously and returns
// the final snapshot together with any job-level error.
func (o *Orchestrator) Run(ctx context.Context, companies []string) (*model.Job, error) {
	job, err := o.store.CreateJob(ctx, len(companies))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create job")
	}

	startErr := o.Start(ctx, job.ID, companies)

	final, err := o.store.GetJob(context.WithoutCancel(ctx), job.ID)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: read final job")
	}
	return final, startErr
}

// process is the batch loop. Anything it returns fails the whole job.
func (o *Orchestrator) process(ctx context.Context, jobID string, companies []string) (err error) {
	defer resilience.Recover(&err)

	res, err := o.newResolvers(ctx)
	if err != nil {
		return eris.Wrap(err, "pipeline: build resolvers")
	}

	gate := semaphore.NewWeighted(int64(o.opts.MaxConcurrency))

	for i, batch := range Batches(companies, o.opts.BatchSize) {
		g, gCtx := errgroup.WithContext(ctx)
		for _, company := range batch {
			company := company
			g.Go(func() (taskErr error) {
				defer resilience.Recover(&taskErr)

				if err := gate.Acquire(gCtx, 1); err != nil {
					return eris.Wrap(err, "pipeline: admission gate")
				}
				defer gate.Release(1)

				return o.processCompany(gCtx, jobID, company, res)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		zap.L().Info("pipeline: batch complete",
			zap.String("job_id", jobID),
			zap.Int("batch", i+1),
			zap.Int("size", len(batch)),
		)
	}
	return nil
}

// processCompany retries the lookup sequence and appends exactly one result.
// It returns an error only for job-level problems: the context ending or the
// store rejecting the write.
func (o *Orchestrator) processCompany(ctx context.Context, jobID, company string, res *Resolvers) error {
	log := zap.L().With(zap.String("job_id", jobID), zap.String("company", company))

	cfg := resilience.LinearRetryConfig(o.opts.MaxRetries, o.opts.RetryBaseDelay)
	cfg.OnRetry = resilience.RetryLogger("company_lookup",
		zap.String("job_id", jobID),
		zap.String("company", company),
	)

	result, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (model.CompanyResult, error) {
		return lookupCompany(ctx, company, res)
	})
	if err != nil {
		if ctx.Err() != nil {
			return eris.Wrapf(err, "pipeline: company %q interrupted", company)
		}
		log.Warn("pipeline: company failed",
			zap.Int("attempts", cfg.MaxAttempts),
			zap.String("error_type", resilience.ClassifyError(err)),
			zap.Error(err),
		)
		result = model.FailedResult(company)
	}

	if err := o.store.AppendResult(ctx, jobID, result); err != nil {
		return eris.Wrap(err, "pipeline: append result")
	}
	log.Debug("pipeline: company processed",
		zap.String("status", string(result.Status)),
		zap.String("source", string(result.Source)),
	)
	return nil
}

// lookupCompany runs the website stage and, when it finds nothing, the
// contact stage. Panics are returned as errors so they can be retried.
func lookupCompany(ctx context.Context, company string, res *Resolvers) (result model.CompanyResult, err error) {
	defer resilience.Recover(&err)

	site, err := res.Website.DetectWebsite(ctx, company)
	if err != nil {
		return model.CompanyResult{}, eris.Wrap(err, "pipeline: detect website")
	}
	if site.Found {
		return model.NewResult(company, site, nil), nil
	}

	contact, err := res.Contact.LookupContact(ctx, company)
	if err != nil {
		return model.CompanyResult{}, eris.Wrap(err, "pipeline: lookup contact")
	}
	return model.NewResult(company, site, &contact), nil
}

// Batches splits items into consecutive chunks of at most size items.
func Batches(items []string, size int) [][]string {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(items)
	}
	out := make([][]string, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
