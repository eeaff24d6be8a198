// Package orchestrator runs one caller turn: load the session, route the
// utterance, persist the result and publish committed changes.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/agents/identity"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/agents/primary"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/agents/specialist"
	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	nodex "github.com/tanpawarit/clinic-scheduling-assistant/agent/nodes"
	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidThread  = nodex.ErrInvalidThread
)

type Deps struct {
	Store     statex.Store
	Reasoner  contractx.Reasoner
	Gate      *identity.Gate
	Primary   *primary.Assistant
	Flows     *specialist.Engine
	Publisher contractx.EventPublisher // optional
	Locks     *statex.ThreadLocks      // optional
	Now       func() time.Time
	MaxHops   int
}

// Reply is what the caller sees for one turn. Pending repeats the question
// the assistant is waiting on, if any.
type Reply struct {
	ThreadID string `json:"thread_id"`
	Message  string `json:"message"`
	Pending  string `json:"pending,omitempty"`
}

type Orchestrator struct {
	store     statex.Store
	agents    nodex.Agents
	publisher contractx.EventPublisher
	locks     *statex.ThreadLocks
	maxHops   int

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(deps Deps) (*Orchestrator, error) {
	if deps.Store == nil {
		return nil, errors.New("state store is required")
	}
	if deps.Reasoner == nil {
		return nil, errors.New("reasoner is required")
	}
	if deps.Gate == nil {
		return nil, errors.New("identity gate is required")
	}
	if deps.Primary == nil {
		return nil, errors.New("primary assistant is required")
	}
	if deps.Flows == nil {
		return nil, errors.New("flow engine is required")
	}

	o := &Orchestrator{
		store: deps.Store,
		agents: nodex.Agents{
			Reasoner: deps.Reasoner,
			Gate:     deps.Gate,
			Primary:  deps.Primary,
			Flows:    deps.Flows,
		},
		publisher: deps.Publisher,
		locks:     deps.Locks,
		maxHops:   deps.MaxHops,
		now:       deps.Now,
	}
	if o.publisher == nil {
		o.publisher = NoopPublisher{}
	}
	if o.locks == nil {
		o.locks = statex.NewThreadLocks()
	}
	if o.maxHops <= 0 {
		o.maxHops = nodex.DefaultMaxHops
	}
	if o.now == nil {
		o.now = time.Now
	}

	graphRunner, err := o.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleMessage processes one utterance. Turns on the same thread run one at
// a time; other threads proceed in parallel.
func (o *Orchestrator) HandleMessage(ctx context.Context, threadID string, text string) (Reply, error) {
	release, err := o.locks.Acquire(ctx, threadID)
	if err != nil {
		return Reply{}, err
	}
	defer release()

	started := time.Now()
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		ThreadID: threadID,
		Text:     text,
	})
	if err != nil {
		log.Error().Err(err).Str("thread_id", threadID).Msg("turn failed")
		return Reply{}, err
	}
	log.Info().
		Str("thread_id", out.ThreadID).
		Dur("elapsed", time.Since(started)).
		Bool("pending", out.Pending != "").
		Msg("turn handled")

	return Reply{ThreadID: out.ThreadID, Message: out.Reply, Pending: out.Pending}, nil
}
