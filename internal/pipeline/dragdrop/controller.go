// Package dragdrop turns pointer gestures into optimistic stage moves with
// rollback. All projection mutations happen on a single event loop
// goroutine; remote commits run asynchronously and post their result back
// onto the loop.
package dragdrop

import (
	"context"
	"math"

	"github.com/google/uuid"

	"imobcrm_backend/platform/logger"
)

// DragThreshold is the pointer distance, in device units, that must elapse
// before a press is recognized as a drag instead of a click.
const DragThreshold = 6.0

// State of the gesture machine.
type State int

const (
	StateIdle State = iota
	StateDragging
	StateCommitting
)

// Position is a lead's place on the board.
type Position struct {
	FunnelID uuid.UUID
	StageID  uuid.UUID
}

// DropTarget is the stage container the pointer was released over.
type DropTarget struct {
	FunnelID uuid.UUID
	StageID  uuid.UUID
}

// MoveError reports a failed commit after its rollback has been applied.
type MoveError struct {
	LeadID uuid.UUID
	Err    error
}

// RemoteStore persists a stage move. The controller treats any returned
// error as a signal to roll the optimistic move back.
type RemoteStore interface {
	MoveStage(ctx context.Context, leadID, funnelID, stageID uuid.UUID) error
}

// command pairs an optimistic mutation with its exact inverse. The forward
// half runs before the commit is issued; the inverse is retained until the
// commit settles and applied only on failure.
type command struct {
	leadID  uuid.UUID
	forward func(map[uuid.UUID]Position)
	inverse func(map[uuid.UUID]Position)
}

type dragState struct {
	leadID     uuid.UUID
	snapshot   Position
	originX    float64
	originY    float64
	recognized bool
}

type pendingCommit struct {
	seq     uint64
	command command
}

// Controller owns the board projection and the gesture state machine.
type Controller struct {
	remote RemoteStore
	log    *logger.Logger

	ops    chan func()
	closed chan struct{}
	errs   chan MoveError

	// loop-owned state, touched only from run().
	leads   map[uuid.UUID]Position
	state   State
	drag    *dragState
	nextSeq uint64
	// latest in-flight commit per lead; completions for older sequence
	// numbers are stale and discarded (last-writer-wins).
	inflight map[uuid.UUID]pendingCommit
}

// New creates a controller and starts its event loop.
func New(remote RemoteStore, log *logger.Logger) *Controller {
	c := &Controller{
		remote:   remote,
		log:      log,
		ops:      make(chan func(), 64),
		closed:   make(chan struct{}),
		errs:     make(chan MoveError, 16),
		leads:    map[uuid.UUID]Position{},
		inflight: map[uuid.UUID]pendingCommit{},
	}
	go c.run()
	return c
}

func (c *Controller) run() {
	for {
		select {
		case op := <-c.ops:
			op()
		case <-c.closed:
			return
		}
	}
}

// Close stops the event loop. In-flight commit results arriving afterwards
// are dropped.
func (c *Controller) Close() {
	close(c.closed)
}

// Notifications delivers rollback errors for surfacing to the user.
func (c *Controller) Notifications() <-chan MoveError {
	return c.errs
}

// Done is closed when the controller stops.
func (c *Controller) Done() <-chan struct{} {
	return c.closed
}

// post runs fn on the event loop and waits for it to finish.
func (c *Controller) post(fn func()) {
	done := make(chan struct{})
	select {
	case c.ops <- func() { fn(); close(done) }:
	case <-c.closed:
		return
	}
	select {
	case <-done:
	case <-c.closed:
	}
}

// postAsync queues fn without waiting; used by commit completions so a
// closed controller simply drops the result.
func (c *Controller) postAsync(fn func()) {
	select {
	case c.ops <- fn:
	case <-c.closed:
	}
}

// Load replaces the projection, for example after a background refresh.
// A refresh racing an in-flight commit is resolved last-writer-wins.
func (c *Controller) Load(positions map[uuid.UUID]Position) {
	c.post(func() {
		c.leads = make(map[uuid.UUID]Position, len(positions))
		for id, pos := range positions {
			c.leads[id] = pos
		}
	})
}

// Position reads a lead's current projected place.
func (c *Controller) Position(leadID uuid.UUID) (Position, bool) {
	var (
		pos Position
		ok  bool
	)
	c.post(func() { pos, ok = c.leads[leadID] })
	return pos, ok
}

// State reports the gesture machine's current state.
func (c *Controller) State() State {
	var s State
	c.post(func() { s = c.state })
	return s
}

// PointerDown begins tracking a potential drag of the given lead. The
// gesture is not a drag yet; that takes DragThreshold of movement.
func (c *Controller) PointerDown(leadID uuid.UUID, x, y float64) {
	c.post(func() {
		if c.state == StateDragging {
			return
		}
		pos, ok := c.leads[leadID]
		if !ok {
			return
		}
		c.drag = &dragState{leadID: leadID, snapshot: pos, originX: x, originY: y}
	})
}

// PointerMove feeds pointer motion into the gesture. Once cumulative
// distance from the press point passes DragThreshold the drag is
// recognized and the machine enters Dragging.
func (c *Controller) PointerMove(x, y float64) {
	c.post(func() {
		if c.drag == nil || c.drag.recognized {
			return
		}
		dx := x - c.drag.originX
		dy := y - c.drag.originY
		if math.Hypot(dx, dy) >= DragThreshold {
			c.drag.recognized = true
			c.state = StateDragging
		}
	})
}

// PointerUp ends the gesture. A nil target, an unrecognized drag, or a
// drop on the lead's own stage is a no-op: no mutation, no request. A drop
// on a different stage applies the optimistic move and issues the commit.
func (c *Controller) PointerUp(ctx context.Context, target *DropTarget) {
	c.post(func() {
		drag := c.drag
		c.drag = nil
		if drag == nil || !drag.recognized {
			return
		}
		c.state = StateIdle

		if target == nil {
			return
		}
		if target.StageID == drag.snapshot.StageID {
			return
		}

		snapshot := drag.snapshot
		next := Position{FunnelID: target.FunnelID, StageID: target.StageID}
		cmd := command{
			leadID:  drag.leadID,
			forward: func(leads map[uuid.UUID]Position) { leads[drag.leadID] = next },
			inverse: func(leads map[uuid.UUID]Position) { leads[drag.leadID] = snapshot },
		}
		c.commit(ctx, cmd, next)
	})
}

// commit applies the forward mutation, then issues the remote call. Runs
// on the loop; the ordering forward-then-request is what makes the UI
// latency-free while the request is in flight.
func (c *Controller) commit(ctx context.Context, cmd command, next Position) {
	cmd.forward(c.leads)
	c.state = StateCommitting

	c.nextSeq++
	seq := c.nextSeq
	c.inflight[cmd.leadID] = pendingCommit{seq: seq, command: cmd}

	go func() {
		err := c.remote.MoveStage(ctx, cmd.leadID, next.FunnelID, next.StageID)
		c.postAsync(func() { c.settle(cmd.leadID, seq, err) })
	}()
}

// settle resolves a commit on the loop. Completions whose sequence number
// has been superseded by a newer commit for the same lead are stale and
// ignored.
func (c *Controller) settle(leadID uuid.UUID, seq uint64, err error) {
	pending, ok := c.inflight[leadID]
	if !ok || pending.seq != seq {
		return
	}
	delete(c.inflight, leadID)
	if len(c.inflight) == 0 && c.state == StateCommitting {
		c.state = StateIdle
	}

	if err == nil {
		return
	}

	pending.command.inverse(c.leads)
	c.log.Error("stage move rolled back", "leadId", leadID, "error", err)
	select {
	case c.errs <- MoveError{LeadID: leadID, Err: err}:
	default:
	}
}
