package specialist

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
)

const (
	nodePrepare = "prepare"
	nodeCollect = "collect_step"
	nodeConfirm = "confirm_step"
)

type flowGraphState struct {
	Req     Request
	Proto   protocol
	Pending *statex.Suspension
	Draft   statex.Draft
}

func compileFlowRuntimeGraph(
	ctx context.Context,
	prepare func(context.Context, Request) (*flowGraphState, error),
	collect func(context.Context, *flowGraphState) (Response, error),
	confirm func(context.Context, *flowGraphState) (Response, error),
) (compose.Runnable[Request, Response], error) {
	graph := compose.NewGraph[Request, Response]()

	if err := graph.AddLambdaNode(nodePrepare, compose.InvokableLambda(prepare)); err != nil {
		return nil, fmt.Errorf("add flow prepare node: %w", err)
	}

	if err := graph.AddLambdaNode(nodeCollect,
		compose.InvokableLambda(func(ctx context.Context, in *flowGraphState) (Response, error) {
			if in == nil {
				return Response{}, fmt.Errorf("%w: flow graph state is nil", contractx.ErrValidation)
			}
			return collect(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add flow collect node: %w", err)
	}

	if err := graph.AddLambdaNode(nodeConfirm,
		compose.InvokableLambda(func(ctx context.Context, in *flowGraphState) (Response, error) {
			if in == nil {
				return Response{}, fmt.Errorf("%w: flow graph state is nil", contractx.ErrValidation)
			}
			return confirm(ctx, in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add flow confirm node: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *flowGraphState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("%w: flow graph state is nil", contractx.ErrValidation)
			}
			if in.Pending != nil && in.Pending.Step == statex.StepConfirm && in.Pending.Candidate != nil {
				return nodeConfirm, nil
			}
			return nodeCollect, nil
		},
		map[string]bool{
			nodeCollect: true,
			nodeConfirm: true,
		},
	)

	if err := graph.AddBranch(nodePrepare, branch); err != nil {
		return nil, fmt.Errorf("add flow branch: %w", err)
	}
	if err := graph.AddEdge(compose.START, nodePrepare); err != nil {
		return nil, fmt.Errorf("add flow edge start->prepare: %w", err)
	}
	if err := graph.AddEdge(nodeCollect, compose.END); err != nil {
		return nil, fmt.Errorf("add flow edge collect->end: %w", err)
	}
	if err := graph.AddEdge(nodeConfirm, compose.END); err != nil {
		return nil, fmt.Errorf("add flow edge confirm->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("specialist.flow_runtime_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile flow runtime graph: %w", err)
	}
	return runner, nil
}
