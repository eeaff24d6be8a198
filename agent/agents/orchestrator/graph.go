package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	nodex "github.com/tanpawarit/clinic-scheduling-assistant/agent/nodes"
	"github.com/tanpawarit/clinic-scheduling-assistant/agent/router"
)

const (
	nodeValidate  = "validate_request"
	nodeLoad      = "load_session"
	nodeEscalated = "escalated_reply"
	nodeClassify  = "classify_intent"
	nodeDispatch  = "dispatch"
	nodeSave      = "save_session"
	nodePublish   = "publish_events"
	nodeFinalize  = "finalize_reply"
)

func (o *Orchestrator) compileHandleTurnGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode(nodeValidate,
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeValidate, err)
	}

	if err := graph.AddLambdaNode(nodeLoad,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadOrCreateState(ctx, in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeLoad, err)
	}

	if err := graph.AddLambdaNode(nodeEscalated,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.EscalatedReply(in, o.agents.Gate)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeEscalated, err)
	}

	if err := graph.AddLambdaNode(nodeClassify,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ClassifyIntent(ctx, in, o.agents)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeClassify, err)
	}

	if err := graph.AddLambdaNode(nodeDispatch,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Dispatch(ctx, in, o.agents, o.maxHops)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeDispatch, err)
	}

	if err := graph.AddLambdaNode(nodeSave,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ValidateAndSaveState(ctx, in, o.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeSave, err)
	}

	if err := graph.AddLambdaNode(nodePublish,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.PublishEvents(ctx, in, o.publisher)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodePublish, err)
	}

	if err := graph.AddLambdaNode(nodeFinalize,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeFinalize, err)
	}

	afterLoad := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			if in == nil || in.Session == nil {
				return "", fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
			}
			if router.Route(in.Session).Kind == router.TargetEscalated {
				return nodeEscalated, nil
			}
			return nodeClassify, nil
		},
		map[string]bool{nodeEscalated: true, nodeClassify: true},
	)
	if err := graph.AddBranch(nodeLoad, afterLoad); err != nil {
		return nil, fmt.Errorf("add branch after %s: %w", nodeLoad, err)
	}

	afterClassify := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			switch {
			case in == nil || in.Session == nil:
				return "", fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
			case in.Degraded:
				return nodeFinalize, nil
			case router.Route(in.Session).Kind == router.TargetEscalated:
				return nodeSave, nil
			default:
				return nodeDispatch, nil
			}
		},
		map[string]bool{nodeDispatch: true, nodeSave: true, nodeFinalize: true},
	)
	if err := graph.AddBranch(nodeClassify, afterClassify); err != nil {
		return nil, fmt.Errorf("add branch after %s: %w", nodeClassify, err)
	}

	afterDispatch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
			}
			if in.Degraded {
				return nodeFinalize, nil
			}
			return nodeSave, nil
		},
		map[string]bool{nodeSave: true, nodeFinalize: true},
	)
	if err := graph.AddBranch(nodeDispatch, afterDispatch); err != nil {
		return nil, fmt.Errorf("add branch after %s: %w", nodeDispatch, err)
	}

	edges := [][2]string{
		{compose.START, nodeValidate},
		{nodeValidate, nodeLoad},
		{nodeEscalated, nodeSave},
		{nodeSave, nodePublish},
		{nodePublish, nodeFinalize},
		{nodeFinalize, compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
