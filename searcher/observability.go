package searcher

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "mcts.searcher"

func defaultTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func startSearchSpan(tracer trace.Tracer, budget time.Duration, c float64, actions int) trace.Span {
	_, span := tracer.Start(context.Background(), "mcts.search",
		trace.WithAttributes(
			attribute.String("mcts.budget", budget.String()),
			attribute.Float64("mcts.exploration_constant", c),
			attribute.Int("mcts.root.actions", actions),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	return span
}

func endSearchSpan[A any](span trace.Span, result Result[A], err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
		span.SetAttributes(
			attribute.Int("mcts.result.iterations", result.Iterations),
			attribute.Int("mcts.result.nodes", result.Nodes),
			attribute.Int("mcts.result.max_depth", result.MaxDepth),
		)
	}
	span.End()
}
