package converge

import (
	"context"
	"log/slog"
	"time"
)

// Report summarizes a convergence run.
type Report struct {
	Results  []Result      `json:"results"`
	Duration time.Duration `json:"duration"`
	DryRun   bool          `json:"dry_run"`
}

// Changed returns the number of resources that were (or would be) changed.
func (r *Report) Changed() int {
	n := 0
	for _, res := range r.Results {
		if res.Changed {
			n++
		}
	}
	return n
}

// Applier applies resources to a host in order.
type Applier struct {
	host *Host
	log  *slog.Logger
}

// NewApplier creates an applier for host.
func NewApplier(host *Host, log *slog.Logger) *Applier {
	if host.Log == nil {
		host.Log = log
	}
	return &Applier{host: host, log: log}
}

// Host returns the host resources are applied to.
func (a *Applier) Host() *Host {
	return a.host
}

// Apply runs resources sequentially and stops at the first failure.
// The returned report covers the resources applied before the failure.
func (a *Applier) Apply(ctx context.Context, resources ...Resource) (*Report, error) {
	start := time.Now()
	report := &Report{DryRun: a.host.DryRun}

	for _, r := range resources {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, &ResourceError{Resource: ID(r), Err: err}
		}

		res, err := r.Apply(ctx, a.host)
		if err != nil {
			a.log.Error("Resource failed",
				slog.String("resource", ID(r)),
				"err", err)
			report.Duration = time.Since(start)
			return report, &ResourceError{Resource: ID(r), Err: err}
		}
		report.Results = append(report.Results, res)

		switch {
		case res.Skipped:
			a.log.Debug("Resource skipped", slog.String("resource", res.Resource))
		case res.Changed:
			a.log.Info("Resource updated",
				slog.String("resource", res.Resource),
				slog.Any("actions", res.Actions),
				slog.Bool("dry_run", a.host.DryRun))
		default:
			a.log.Debug("Resource up to date", slog.String("resource", res.Resource))
		}
	}

	report.Duration = time.Since(start)
	return report, nil
}
