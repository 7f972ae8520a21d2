package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/toolbelt-labs/toolbelt/pkg/logger"
	"github.com/toolbelt-labs/toolbelt/pkg/pm"
	"github.com/toolbelt-labs/toolbelt/pkg/sessions"
)

// Journal is the slice of the session store the runner writes to
type Journal interface {
	StartSession(ctx context.Context, sess sessions.Session) error
	EndSession(ctx context.Context, id, reason string, endedAt time.Time) error
	LogEvent(ctx context.Context, event sessions.Event) error
	Close() error
}

// Runner handles lifecycle events. Journal writes are best effort: a broken
// journal is logged and skipped, never surfaced to the host.
type Runner struct {
	openJournal  func(ctx context.Context) (Journal, error)
	resolverOpts []pm.Option
	now          func() time.Time
}

// RunnerOption customizes a Runner
type RunnerOption func(*Runner)

// WithJournalOpener replaces how the runner opens the session journal
func WithJournalOpener(open func(ctx context.Context) (Journal, error)) RunnerOption {
	return func(r *Runner) {
		r.openJournal = open
	}
}

// WithResolverOptions passes extra options to the package manager resolver
func WithResolverOptions(opts ...pm.Option) RunnerOption {
	return func(r *Runner) {
		r.resolverOpts = opts
	}
}

// WithClock replaces the runner's time source
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner creates a Runner that journals to the default session store
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		openJournal: func(ctx context.Context) (Journal, error) {
			return sessions.OpenDefault(ctx)
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// normalize fills in the fields a host may omit. A missing session id gets
// a generated one so the journal still has a usable key.
func (r *Runner) normalize(base *BasePayload, event EventType) {
	if base.Event == "" {
		base.Event = event
	}
	if base.SessionID == "" {
		base.SessionID = uuid.NewString()
	}
	if base.CWD == "" {
		if wd, err := os.Getwd(); err == nil {
			base.CWD = wd
		}
	}
}

// SessionStart resolves the project's package manager, records the session,
// and returns context lines for the host to inject.
func (r *Runner) SessionStart(ctx context.Context, payload SessionStartPayload) (*SessionStartResult, error) {
	r.normalize(&payload.BasePayload, EventSessionStart)
	if payload.Source == "" {
		payload.Source = SourceStartup
	}

	log := logger.G(ctx).WithField("session_id", payload.SessionID)

	result := &SessionStartResult{SessionID: payload.SessionID}
	sess := sessions.Session{
		ID:        payload.SessionID,
		StartedAt: r.now().UTC(),
		Source:    payload.Source,
		CWD:       payload.CWD,
	}

	report := pm.NewResolver(payload.CWD, r.resolverOpts...).Detect()
	if report.Resolved() {
		m := report.Winner
		result.Context = []string{
			fmt.Sprintf("Package manager: %s (source: %s)", m, report.WinningSource),
			fmt.Sprintf("Install dependencies: %s", strings.Join(m.InstallCommand(), " ")),
			fmt.Sprintf("Run scripts: %s", strings.Join(m.RunCommand("<script>"), " ")),
			fmt.Sprintf("Run package binaries: %s", strings.Join(m.ExecCommand("<binary>"), " ")),
		}
		manager := string(m)
		source := string(report.WinningSource)
		sess.PackageManager = &manager
		sess.PMSource = &source
		log.WithField("package_manager", manager).WithField("source", source).Debug("resolved package manager")
	} else {
		result.Context = []string{
			"No package manager detected for this project.",
			"Set one with: toolbelt pm --project <npm|pnpm|yarn|bun>",
		}
	}

	r.journal(ctx, func(j Journal) error {
		if err := j.StartSession(ctx, sess); err != nil {
			return err
		}
		return j.LogEvent(ctx, sessions.Event{
			SessionID: payload.SessionID,
			Name:      string(EventSessionStart),
			Detail:    eventDetail(map[string]string{"source": payload.Source}),
			CreatedAt: r.now().UTC(),
		})
	})

	return result, nil
}

// SessionEnd closes the session in the journal
func (r *Runner) SessionEnd(ctx context.Context, payload SessionEndPayload) (*SessionEndResult, error) {
	r.normalize(&payload.BasePayload, EventSessionEnd)

	r.journal(ctx, func(j Journal) error {
		if err := j.EndSession(ctx, payload.SessionID, payload.Reason, r.now().UTC()); err != nil {
			return err
		}
		return j.LogEvent(ctx, sessions.Event{
			SessionID: payload.SessionID,
			Name:      string(EventSessionEnd),
			Detail:    eventDetail(map[string]string{"reason": payload.Reason}),
			CreatedAt: r.now().UTC(),
		})
	})

	return &SessionEndResult{SessionID: payload.SessionID}, nil
}

// PreCompact snapshots session state before the host compacts the
// transcript and journals the compaction.
func (r *Runner) PreCompact(ctx context.Context, payload PreCompactPayload) (*PreCompactResult, error) {
	r.normalize(&payload.BasePayload, EventPreCompact)
	if payload.Trigger == "" {
		payload.Trigger = TriggerAuto
	}

	log := logger.G(ctx).WithField("session_id", payload.SessionID)

	result := &PreCompactResult{SessionID: payload.SessionID}

	store := NewStateStore(payload.CWD)
	state, err := store.RecordCompaction(payload.SessionID, payload.Trigger, r.now().UTC())
	if err != nil {
		log.WithError(err).Warn("failed to snapshot session state")
	} else {
		result.SnapshotPath = store.Path()
		result.Compactions = state.Compactions
	}

	r.journal(ctx, func(j Journal) error {
		return j.LogEvent(ctx, sessions.Event{
			SessionID: payload.SessionID,
			Name:      string(EventPreCompact),
			Detail:    eventDetail(map[string]string{"trigger": payload.Trigger}),
			CreatedAt: r.now().UTC(),
		})
	})

	return result, nil
}

// journal opens the session store and applies fn, logging instead of
// failing when the store is unavailable.
func (r *Runner) journal(ctx context.Context, fn func(Journal) error) {
	j, err := r.openJournal(ctx)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("session journal unavailable")
		return
	}
	defer j.Close()

	if err := fn(j); err != nil {
		logger.G(ctx).WithError(err).Warn("failed to update session journal")
	}
}

func eventDetail(fields map[string]string) *string {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	detail := string(data)
	return &detail
}
