/*
Package tracing provides lightweight request and operation tracing.

Spans carry a trace ID shared by everything done on behalf of one request and
are written to the structured log when they end. HTTP requests get a span from
HTTPMiddleware (propagated through X-Trace-ID / X-Span-ID headers); task runs
and guarded executions open child spans from the request context.

# Usage

	tracer := tracing.New("shellcore", logger)
	defer tracer.Close()

	span, ctx := tracer.StartSpan(ctx, "executor.execute")
	defer span.End()
	span.SetTag("working_dir", dir)
*/
package tracing
