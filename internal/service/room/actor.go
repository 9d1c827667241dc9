package room

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
)

const inboxSize = 64

// actorHooks carries effects out of a room. Hooks run on the room's
// goroutine, so they observe transitions in order.
type actorHooks interface {
	dispatch(ctx context.Context, roomId string, out []outbound, closes []closeDirective)
	membershipChanged(roomId string, added, removed []string)
	roomChanged(ctx context.Context, info RoomInfo)
	roomEmptied(ctx context.Context, roomId string)
}

type request struct {
	ctx   context.Context
	in    input
	reply chan response
}

type response struct {
	result any
	err    error
}

// actor owns a machine and applies inputs to it one at a time.
type actor struct {
	roomId  string
	machine *machine
	hooks   actorHooks
	clock   func() time.Time
	logger  *slog.Logger

	inbox    chan request
	done     chan struct{}
	exited   chan struct{}
	stopOnce sync.Once

	// owned by the run goroutine
	timers map[string]*time.Timer
}

func newActor(m *machine, hooks actorHooks, clock func() time.Time, logger *slog.Logger) *actor {
	return &actor{
		roomId:  m.details.roomId,
		machine: m,
		hooks:   hooks,
		clock:   clock,
		logger:  logger,
		inbox:   make(chan request, inboxSize),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
		timers:  make(map[string]*time.Timer),
	}
}

func (a *actor) run() {
	defer close(a.exited)
	defer a.stopTimers()

	for {
		select {
		case req := <-a.inbox:
			res, emptied := a.handle(req)
			if req.reply != nil {
				req.reply <- res
			}

			if emptied {
				a.stop()
				return
			}
		case <-a.done:
			return
		}
	}
}

func (a *actor) handle(req request) (response, bool) {
	now := a.clock()

	var (
		e       *effects
		err     error
		catcher panics.Catcher
	)
	catcher.Try(func() {
		e, err = a.machine.apply(now, req.in)
	})

	if recovered := catcher.Recovered(); recovered != nil {
		a.logger.ErrorContext(req.ctx, "room transition panicked",
			"room_id", a.roomId,
			"input", fmt.Sprintf("%T", req.in),
			"error", recovered.AsError(),
		)
		return response{err: fmt.Errorf("%w: %w", ErrInternal, recovered.AsError())}, false
	}

	if err != nil {
		return response{err: err}, false
	}

	// hooks do I/O that must outlive the caller's connection
	ctx := context.WithoutCancel(req.ctx)

	a.hooks.dispatch(ctx, a.roomId, e.outbound, e.closes)

	for _, id := range e.graceCancel {
		a.cancelGrace(id)
	}
	for _, g := range e.graceStart {
		a.startGrace(g)
	}

	if len(e.added) > 0 || len(e.removed) > 0 {
		a.hooks.membershipChanged(a.roomId, e.added, e.removed)
	}

	if e.emptied {
		a.hooks.roomEmptied(ctx, a.roomId)
		return response{result: e.result}, true
	}

	if e.changed {
		a.hooks.roomChanged(ctx, a.machine.info())
	}

	return response{result: e.result}, false
}

func (a *actor) startGrace(g graceDirective) {
	a.cancelGrace(g.participantId)
	a.timers[g.participantId] = time.AfterFunc(g.after, func() {
		a.enqueue(graceExpiredInput{
			participantId: g.participantId,
			epoch:         g.epoch,
		})
	})
}

func (a *actor) cancelGrace(participantId string) {
	if t, ok := a.timers[participantId]; ok {
		t.Stop()
		delete(a.timers, participantId)
	}
}

func (a *actor) stopTimers() {
	for id, t := range a.timers {
		t.Stop()
		delete(a.timers, id)
	}
}

// submit applies in and waits for the outcome.
func (a *actor) submit(ctx context.Context, in input) (any, error) {
	req := request{
		ctx:   ctx,
		in:    in,
		reply: make(chan response, 1),
	}

	select {
	case a.inbox <- req:
	case <-a.done:
		return nil, ErrRoomNotFound
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.result, res.err
	case <-a.done:
		// the reply is sent before done closes
		select {
		case res := <-req.reply:
			return res.result, res.err
		default:
			return nil, ErrRoomNotFound
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// enqueue applies in without waiting. Used by timers.
func (a *actor) enqueue(in input) {
	select {
	case a.inbox <- request{ctx: context.Background(), in: in}:
	case <-a.done:
	}
}

func (a *actor) stop() {
	a.stopOnce.Do(func() {
		close(a.done)
	})
}

func (a *actor) wait() {
	<-a.exited
}
