package dragdrop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"imobcrm_backend/platform/logger"
)

type remoteCall struct {
	leadID uuid.UUID
	target Position
	reply  chan error
}

type fakeRemote struct {
	calls chan remoteCall
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{calls: make(chan remoteCall, 8)}
}

func (f *fakeRemote) MoveStage(_ context.Context, leadID, funnelID, stageID uuid.UUID) error {
	call := remoteCall{
		leadID: leadID,
		target: Position{FunnelID: funnelID, StageID: stageID},
		reply:  make(chan error),
	}
	f.calls <- call
	return <-call.reply
}

// take waits for the next remote call or fails the test.
func (f *fakeRemote) take(t *testing.T) remoteCall {
	t.Helper()
	select {
	case call := <-f.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("expected a remote call")
		return remoteCall{}
	}
}

// none asserts no remote call arrives.
func (f *fakeRemote) none(t *testing.T) {
	t.Helper()
	select {
	case call := <-f.calls:
		t.Fatalf("unexpected remote call for lead %s", call.leadID)
	case <-time.After(50 * time.Millisecond):
	}
}

func newTestController(t *testing.T, remote RemoteStore) *Controller {
	t.Helper()
	c := New(remote, logger.New("test"))
	t.Cleanup(c.Close)
	return c
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

// dragTo runs a full recognized gesture from press to drop.
func dragTo(c *Controller, leadID uuid.UUID, target *DropTarget) {
	c.PointerDown(leadID, 0, 0)
	c.PointerMove(DragThreshold+1, 0)
	c.PointerUp(context.Background(), target)
}

func seedLead(c *Controller) (uuid.UUID, Position) {
	leadID := uuid.New()
	pos := Position{FunnelID: uuid.New(), StageID: uuid.New()}
	c.Load(map[uuid.UUID]Position{leadID: pos})
	return leadID, pos
}

func TestClickBelowThresholdIsNotADrag(t *testing.T) {
	remote := newFakeRemote()
	c := newTestController(t, remote)
	leadID, pos := seedLead(c)

	c.PointerDown(leadID, 0, 0)
	c.PointerMove(DragThreshold-1, 0)
	if got := c.State(); got != StateIdle {
		t.Fatalf("sub-threshold movement must not start a drag, state %v", got)
	}
	c.PointerUp(context.Background(), &DropTarget{FunnelID: pos.FunnelID, StageID: uuid.New()})

	remote.none(t)
	if got, _ := c.Position(leadID); got != pos {
		t.Fatalf("click mutated position: %+v", got)
	}
}

func TestDropOnOwnStageIsNoop(t *testing.T) {
	remote := newFakeRemote()
	c := newTestController(t, remote)
	leadID, pos := seedLead(c)

	dragTo(c, leadID, &DropTarget{FunnelID: pos.FunnelID, StageID: pos.StageID})

	remote.none(t)
	if got := c.State(); got != StateIdle {
		t.Fatalf("expected idle after no-op drop, state %v", got)
	}
}

func TestDropOutsideTargetIsNoop(t *testing.T) {
	remote := newFakeRemote()
	c := newTestController(t, remote)
	leadID, pos := seedLead(c)

	dragTo(c, leadID, nil)

	remote.none(t)
	if got, _ := c.Position(leadID); got != pos {
		t.Fatalf("drop outside a target mutated position: %+v", got)
	}
}

func TestOptimisticMoveThenSuccess(t *testing.T) {
	remote := newFakeRemote()
	c := newTestController(t, remote)
	leadID, pos := seedLead(c)
	target := DropTarget{FunnelID: pos.FunnelID, StageID: uuid.New()}

	dragTo(c, leadID, &target)

	// The optimistic mutation lands before the commit settles.
	if got, _ := c.Position(leadID); got.StageID != target.StageID {
		t.Fatalf("expected optimistic stage %s, got %s", target.StageID, got.StageID)
	}
	if got := c.State(); got != StateCommitting {
		t.Fatalf("expected committing state, got %v", got)
	}

	call := remote.take(t)
	if call.target.StageID != target.StageID {
		t.Fatalf("commit carried stage %s, want %s", call.target.StageID, target.StageID)
	}
	call.reply <- nil
	waitFor(t, func() bool { return c.State() == StateIdle }, "controller never settled")

	if got, _ := c.Position(leadID); got.StageID != target.StageID {
		t.Fatalf("successful commit must keep optimistic state, got %s", got.StageID)
	}
}

func TestFailedCommitRestoresSnapshot(t *testing.T) {
	remote := newFakeRemote()
	c := newTestController(t, remote)
	leadID, pos := seedLead(c)
	target := DropTarget{FunnelID: uuid.New(), StageID: uuid.New()}

	dragTo(c, leadID, &target)
	remote.take(t).reply <- errors.New("stage does not belong to the lead's funnel")

	select {
	case moveErr := <-c.Notifications():
		if moveErr.LeadID != leadID {
			t.Fatalf("error for wrong lead: %s", moveErr.LeadID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a rollback notification")
	}

	got, _ := c.Position(leadID)
	if got != pos {
		t.Fatalf("rollback must equal the pre-drag snapshot exactly: got %+v want %+v", got, pos)
	}
}

func TestStaleCompletionIsDiscarded(t *testing.T) {
	remote := newFakeRemote()
	c := newTestController(t, remote)
	leadID, pos := seedLead(c)

	first := DropTarget{FunnelID: pos.FunnelID, StageID: uuid.New()}
	second := DropTarget{FunnelID: pos.FunnelID, StageID: uuid.New()}

	dragTo(c, leadID, &first)
	firstCall := remote.take(t)

	// A second drag starts and commits while the first is still in flight.
	dragTo(c, leadID, &second)
	secondCall := remote.take(t)

	// The first commit now fails; its rollback is stale and must not undo
	// the newer move (last-writer-wins).
	firstCall.reply <- errors.New("timeout")
	secondCall.reply <- nil
	waitFor(t, func() bool { return c.State() == StateIdle }, "controller never settled")

	got, _ := c.Position(leadID)
	if got.StageID != second.StageID {
		t.Fatalf("stale failure rolled back the newer move: got %s want %s", got.StageID, second.StageID)
	}

	select {
	case moveErr := <-c.Notifications():
		t.Fatalf("stale completion must not surface an error, got %v", moveErr)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLoadReplacesProjection(t *testing.T) {
	remote := newFakeRemote()
	c := newTestController(t, remote)
	leadID, _ := seedLead(c)

	refreshed := Position{FunnelID: uuid.New(), StageID: uuid.New()}
	c.Load(map[uuid.UUID]Position{leadID: refreshed})

	got, ok := c.Position(leadID)
	if !ok || got != refreshed {
		t.Fatalf("expected refreshed position, got %+v", got)
	}
}
