/*
Package conductor orchestrates media pipelines driven by an external
pipeline engine.

Concept

The engine does all the heavy lifting: decoding, rendering and streaming
threads. Conductor sits above it and coordinates the pipeline during its
lifetime:

    build - stages are instantiated and statically linked by graph.Build;
    negotiate - deferred links are completed when a stage exposes a pad;
    dispatch - bus notifications update the session state;
    poll - recurring tasks query and mutate the running pipeline.

Session

Session is the single owner of the graph and the session state. It runs
one cooperative loop: bus notifications, dynamic pad callbacks, timer
firings and playback controls are all processed in that loop, one at a
time. Engine callbacks that arrive from streaming threads are queued into
the loop and never touch the state directly.

    g, err := graph.Build(e, descriptor)
    if err != nil {
        return err
    }
    s, err := conductor.New(e, g,
        conductor.WithLogger(logger),
        conductor.WithPoller(conductor.DefaultPollerConfig()),
    )
    if err != nil {
        return err
    }
    defer s.Close()
    err = s.Run(ctx)

Run returns when the stream ends, an engine error is received, a recurring
task fails or the context is done. In all cases the pipeline is brought to
the null state before Run returns. Close releases the graph.

Errors

Startup errors are graph.StageCreationError and graph.StaticLinkError.
Run returns *EngineError for errors posted by the engine and *SwapError
when a source swap could not be completed. LinkNegotiationError and
QueryFailure are recoverable: they are logged and counted, the session
keeps running.
*/
package conductor
