// Package capture runs the per-session capture loop: snapshot-driven
// extraction and reconciliation plus the triggered persistence policy.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/captrail/server/caption"
	"github.com/captrail/server/meeting"
	"github.com/captrail/server/session"
	"github.com/captrail/server/settings"
	"github.com/captrail/server/transcript"
)

// ErrNoCaptions is returned when a store or transcript request arrives
// with nothing captured yet.
var ErrNoCaptions = errors.New("no captions were captured")

// Notifier is how the controller talks back to its client and to
// management subscribers. Implementations must not block; the whole
// capture loop runs on one goroutine.
type Notifier interface {
	// ArmLeaveTrigger asks the client to attach the one-shot save
	// trigger to the leave control.
	ArmLeaveTrigger(ctx context.Context)
	// DisarmLeaveTrigger asks the client to remove the trigger.
	DisarmLeaveTrigger(ctx context.Context)
	// RequestSnapshot asks the client for a fresh DOM snapshot while
	// the session is not ready yet.
	RequestSnapshot(ctx context.Context)
	// TranscriptChanged reports a reconciled transcript state.
	TranscriptChanged(title string, entries []transcript.Entry)
}

type Config struct {
	// PersistInterval is the periodic save cadence while capturing.
	PersistInterval time.Duration
	// AutoSaveInterval rate-limits pointer-triggered saves.
	AutoSaveInterval time.Duration
	// ReadinessBackoff is the retry cadence for snapshot requests
	// until the meeting readiness marker appears.
	ReadinessBackoff time.Duration
	// PointerRegionMaxY bounds the top screen region (in px) whose
	// entry triggers an auto-save.
	PointerRegionMaxY int
}

func (c Config) withDefaults() Config {
	if c.PersistInterval <= 0 {
		c.PersistInterval = 60 * time.Second
	}
	if c.AutoSaveInterval <= 0 {
		c.AutoSaveInterval = 60 * time.Second
	}
	if c.ReadinessBackoff <= 0 {
		c.ReadinessBackoff = 5 * time.Second
	}
	if c.PointerRegionMaxY <= 0 {
		c.PointerRegionMaxY = 50
	}
	return c
}

// Controller owns one capture session: the transcript, the session
// tracker, and all persistence triggers. All state is touched only by
// the Run goroutine; external callers communicate through Dispatch,
// Snapshot, and Store.
type Controller struct {
	cfg      Config
	log      *slog.Logger
	clock    func() time.Time
	events   chan Event
	notifier Notifier

	extractor  *caption.Extractor
	transcript *transcript.Transcript
	tracker    *session.Tracker
	store      *meeting.Store

	settings     settings.Settings
	meetingDate  string
	ready        bool
	capturing    bool
	lastAutoSave time.Time
}

func New(log *slog.Logger, store *meeting.Store, initial settings.Settings, notifier Notifier, cfg Config) *Controller {
	return newWithClock(log, store, initial, notifier, cfg, time.Now)
}

func newWithClock(log *slog.Logger, store *meeting.Store, initial settings.Settings, notifier Notifier, cfg Config, clock func() time.Time) *Controller {
	return &Controller{
		cfg:         cfg.withDefaults(),
		log:         log,
		clock:       clock,
		events:      make(chan Event, 64),
		notifier:    notifier,
		extractor:   caption.NewExtractor(),
		transcript:  transcript.NewWithClock(clock),
		tracker:     session.NewTracker(),
		store:       store,
		settings:    initial,
		meetingDate: clock().Format("1/2/2006"),
	}
}

// Dispatch hands an event to the loop without blocking. A dropped
// mutation is harmless: every snapshot carries the full caption region,
// so the next one reconciles to the same state.
func (c *Controller) Dispatch(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.log.Warn("capture event dropped (buffer full)")
	}
}

// Snapshot returns the current session state, serialized with the loop.
func (c *Controller) Snapshot(ctx context.Context) (Snapshot, error) {
	req := snapshotRequest{reply: make(chan Snapshot, 1)}
	select {
	case c.events <- req:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-req.reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Store persists the current transcript immediately and returns the
// stored snapshot, e.g. for a follow-up export.
func (c *Controller) Store(ctx context.Context) (Snapshot, error) {
	req := storeRequest{reply: make(chan storeReply, 1)}
	select {
	case c.events <- req:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case r := <-req.reply:
		return r.snapshot, r.err
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Run executes the capture loop until ctx is cancelled. Cancellation
// also stops the readiness retries and the persistence timers, so no
// timer outlives the connection that owns the session.
func (c *Controller) Run(ctx context.Context) {
	persist := time.NewTicker(c.cfg.PersistInterval)
	defer persist.Stop()
	readiness := time.NewTicker(c.cfg.ReadinessBackoff)
	defer readiness.Stop()

	c.log.Info("capture session started", "date", c.meetingDate)

	for {
		select {
		case <-ctx.Done():
			c.finalPersist()
			c.log.Info("capture session ended")
			return
		case ev := <-c.events:
			c.handle(ctx, ev)
		case <-persist.C:
			if c.capturing {
				c.persistLogged("periodic")
			}
		case <-readiness.C:
			if !c.ready {
				c.notifier.RequestSnapshot(ctx)
			}
		}
	}
}

func (c *Controller) handle(ctx context.Context, ev Event) {
	switch ev := ev.(type) {
	case MutationBatch:
		c.handleMutation(ctx, ev)
	case VisibilityChanged:
		if ev.Hidden && c.capturing {
			c.persistLogged("visibility")
		}
	case PointerMoved:
		c.handlePointer(ev)
	case SettingsChanged:
		c.settings = ev.Settings
		c.applyLeaveTrigger(ctx, c.tracker.LeavePresent())
	case snapshotRequest:
		ev.reply <- c.snapshot()
	case storeRequest:
		snap, err := c.persistNow()
		ev.reply <- storeReply{snapshot: snap, err: err}
	}
}

func (c *Controller) handleMutation(ctx context.Context, ev MutationBatch) {
	doc, err := caption.ParseDocument(ev.HTML)
	if err != nil {
		c.log.Debug("unparseable snapshot", "error", err)
		return
	}

	if !c.ready {
		if !caption.HasReadinessMarker(doc) || !caption.HasContainer(doc) {
			// Not in a meeting yet, or captions not turned on; the
			// readiness ticker keeps requesting snapshots.
			c.log.Debug("captions not ready")
			return
		}
		c.ready = true
		c.capturing = true
		c.log.Info("captions detected, capturing")
	}

	if c.tracker.ObserveTitle(session.NormalizeTitle(ev.Title)) {
		c.transcript.Reset()
		c.log.Info("new meeting detected", "title", c.tracker.Title())
	}

	if details := caption.MeetingDetails(doc); details != "" {
		c.tracker.ObserveDetails(details)
	}

	c.applyLeaveTrigger(ctx, caption.HasLeaveControl(doc))

	if c.transcript.Reconcile(c.extractor.Extract(doc)) {
		c.notifier.TranscriptChanged(c.tracker.Title(), c.transcript.Entries())
	}
}

func (c *Controller) handlePointer(ev PointerMoved) {
	if !c.capturing || ev.Y > c.cfg.PointerRegionMaxY {
		return
	}
	now := c.clock()
	if now.Sub(c.lastAutoSave) < c.cfg.AutoSaveInterval {
		return
	}
	c.lastAutoSave = now
	c.persistLogged("pointer")
}

func (c *Controller) applyLeaveTrigger(ctx context.Context, present bool) {
	switch c.tracker.ObserveLeaveControl(present, c.settings.LeaveTrigger) {
	case session.ArmAttach:
		c.log.Debug("arming leave trigger")
		c.notifier.ArmLeaveTrigger(ctx)
	case session.ArmDetach:
		c.log.Debug("disarming leave trigger")
		c.notifier.DisarmLeaveTrigger(ctx)
	}
}

func (c *Controller) snapshot() Snapshot {
	return Snapshot{
		Capturing: c.capturing,
		Title:     c.tracker.Title(),
		Date:      c.meetingDate,
		Details:   c.tracker.Details(),
		Entries:   c.transcript.Entries(),
	}
}

func (c *Controller) persistNow() (Snapshot, error) {
	snap := c.snapshot()
	if len(snap.Entries) == 0 {
		return snap, ErrNoCaptions
	}
	if _, _, err := c.store.Upsert(snap.Title, snap.Date, snap.Details, snap.Entries); err != nil {
		return snap, fmt.Errorf("store meeting: %w", err)
	}
	return snap, nil
}

func (c *Controller) persistLogged(trigger string) {
	if _, err := c.persistNow(); err != nil && !errors.Is(err, ErrNoCaptions) {
		c.log.Warn("failed to persist meeting", "trigger", trigger, "error", err)
	} else if err == nil {
		c.log.Debug("meeting persisted", "trigger", trigger)
	}
}

// finalPersist flushes accumulated captions when the session ends, so a
// closed tab loses at most the captions since the last reconcile.
func (c *Controller) finalPersist() {
	if c.capturing {
		c.persistLogged("shutdown")
	}
}
