// Package workflow drives one provisioning run through its steps: resolve the
// device, scaffold its workspace, load credentials, generate and flash.
package workflow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"cloupeer.io/nvsprov/internal/nvsprov/core"
	"cloupeer.io/nvsprov/internal/nvsprov/workspace"
	fsmutil "cloupeer.io/nvsprov/internal/pkg/util/fsm"
	"cloupeer.io/nvsprov/pkg/log"
)

// ResultSuccess labels runs and steps that ended without error.
const ResultSuccess = "success"

// Workflow runs provisioning requests. It holds no state between runs.
type Workflow struct {
	resolver   Resolver
	workspaces *workspace.Manager
	generator  Generator
	flasher    Flasher

	archiver core.ImageArchiver
	notifier core.EventNotifier
	observer Observer

	newRunID func() string
	now      func() time.Time
}

// Option configures optional collaborators of a Workflow.
type Option func(*Workflow)

// WithArchiver uploads every generated image.
func WithArchiver(a core.ImageArchiver) Option {
	return func(w *Workflow) { w.archiver = a }
}

// WithNotifier publishes the record of every run.
func WithNotifier(n core.EventNotifier) Option {
	return func(w *Workflow) { w.notifier = n }
}

// WithObserver reports step and run outcomes.
func WithObserver(o Observer) Option {
	return func(w *Workflow) { w.observer = o }
}

func New(resolver Resolver, workspaces *workspace.Manager, generator Generator, flasher Flasher, opts ...Option) *Workflow {
	w := &Workflow{
		resolver:   resolver,
		workspaces: workspaces,
		generator:  generator,
		flasher:    flasher,
		newRunID:   uuid.NewString,
		now:        time.Now,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// run is the per-invocation state the step callbacks share.
type run struct {
	w      *Workflow
	req    Request
	report *Report
	log    log.Logger

	ws    *workspace.Workspace
	creds core.Credentials
}

// Run executes the steps of req.Mode in order and stops at the first failing
// one. The report is returned even when err is not nil.
func (w *Workflow) Run(ctx context.Context, req Request) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	report := &Report{
		RunID:           w.newRunID(),
		Mode:            req.Mode,
		Port:            req.Port,
		HardwareVersion: req.HardwareVersion,
		State:           StateStart,
		StartedAt:       w.now(),
	}
	r := &run{
		w:      w,
		req:    req,
		report: report,
		log:    log.WithValues("run", report.RunID, "mode", req.Mode),
	}

	machine := newMachine(r)
	var err error
	for _, ev := range req.Mode.events() {
		start := w.now()
		err = fsmutil.CancelCause(machine.Event(ctx, ev))
		r.observeStep(ev, w.now().Sub(start), err)
		if err != nil {
			r.log.Error(err, "Step failed", "step", ev, "state", machine.Current())
			break
		}
	}

	report.State = machine.Current()
	report.FinishedAt = w.now()
	r.finish(ctx, err)
	return report, err
}

func (r *run) resolve(ctx context.Context, _ *fsm.Event) error {
	id, err := r.w.resolver.Resolve(ctx, r.req.MAC, r.req.Port)
	if err != nil {
		return err
	}
	r.report.DeviceID = id
	r.log = r.log.WithValues("device", id)
	return nil
}

func (r *run) scaffold(_ context.Context, _ *fsm.Event) error {
	ws, created, err := r.w.workspaces.Ensure(r.report.DeviceID)
	if err != nil {
		return err
	}
	r.ws = ws
	r.report.Workspace = ws.Dir
	r.report.Created = created
	return nil
}

func (r *run) load(ctx context.Context, _ *fsm.Event) error {
	var (
		creds core.Credentials
		err   error
	)
	if r.req.WaitCredentials > 0 {
		creds, err = workspace.WaitCredentials(ctx, r.ws, r.req.WaitCredentials)
	} else {
		creds, err = workspace.LoadCredentials(r.ws)
	}
	if err != nil {
		return err
	}
	r.creds = creds
	return nil
}

func (r *run) generate(ctx context.Context, _ *fsm.Event) error {
	image, err := r.w.generator.Generate(ctx, r.ws, r.creds, r.req.HardwareVersion)
	if err != nil {
		return err
	}
	r.report.ImagePath = image

	sum, size, err := digest(image)
	if err != nil {
		r.log.Warn("Failed to hash partition image", "image", image, "err", err)
		return nil
	}
	r.report.ImageSHA256, r.report.ImageSize = sum, size
	return nil
}

func (r *run) flash(ctx context.Context, _ *fsm.Event) error {
	return r.w.flasher.Flash(ctx, r.report.ImagePath, r.req.Port)
}

func (r *run) entered(_ context.Context, e *fsm.Event) error {
	r.log.Debug("Workflow state changed", "from", e.Src, "to", e.Dst)
	return nil
}

func (r *run) observeStep(step string, d time.Duration, err error) {
	r.report.Steps = append(r.report.Steps, Step{Event: step, Duration: d, Err: err})
	if r.w.observer != nil {
		r.w.observer.ObserveStep(step, d, resultOf(err))
	}
}

// finish hands the outcome to the optional collaborators. Their failures
// are logged and never change the result of the run.
func (r *run) finish(ctx context.Context, runErr error) {
	if r.w.observer != nil {
		r.w.observer.ObserveRun(string(r.req.Mode), resultOf(runErr), r.report.FinishedAt)
	}

	rec := r.report.Record(runErr)

	if r.w.archiver != nil && r.report.ImagePath != "" {
		key, err := r.w.archiver.Archive(ctx, rec, r.report.ImagePath)
		if err != nil {
			r.log.Warn("Failed to archive partition image", "image", r.report.ImagePath, "err", err)
		} else {
			r.report.ArchiveKey = key
		}
	}

	if r.w.notifier != nil && rec.DeviceID != "" {
		if err := r.w.notifier.Notify(ctx, rec); err != nil {
			r.log.Warn("Failed to publish provisioning record", "err", err)
		}
	}

	if runErr == nil {
		r.log.Info("Run finished", "state", r.report.State, "duration", r.report.FinishedAt.Sub(r.report.StartedAt))
	}
}

func resultOf(err error) string {
	if err == nil {
		return ResultSuccess
	}
	if kind, ok := core.KindOf(err); ok {
		return string(kind)
	}
	return "Internal"
}

func digest(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
