// Package runware provides a Go client for the Runware inference API.
//
// The client keeps one WebSocket connection open and multiplexes every task
// over it. Each task carries a client-generated taskUUID; results arrive
// later, in any order and possibly spread over several frames, and are routed
// back to the caller that submitted the task. Tasks that expect several
// results (image inference with numberResults > 1, prompt enhancement with
// several versions) resolve once all of them have arrived.
//
// # Thread Safety
//
// [Client] is safe for concurrent use by multiple goroutines. A [Future]
// may be waited on from any number of goroutines.
//
// # Basic Usage
//
//	ctx := context.Background()
//
//	client := runware.New("api-key")
//	if err := client.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Stop(ctx)
//
//	images, err := client.ImageInference(ctx, runware.ImageInferenceRequest{
//	    PositivePrompt: "a pixel art cat",
//	    Model:          "runware:100@1",
//	    NumberResults:  2,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, img := range images {
//	    fmt.Println(img.ImageURL)
//	}
//
// # Failure Handling
//
// If the connection drops, every waiting call fails with an error wrapping
// [ErrConnectionLost] and the client returns to [StateDisconnected]. There is
// no automatic reconnect; call [Client.Start] again. Errors the server
// reports for a specific task fail only that task with a [*RemoteError].
//
// # Observability
//
// Use [WithLogger], [WithOnSend], and [WithOnReceive] to add logging and
// monitoring to the client:
//
//	client := runware.New(apiKey,
//	    runware.WithLogger(slog.Default()),
//	    runware.WithOnSend(func(tasks []runware.Task) {
//	        metrics.FramesSent.Inc()
//	    }),
//	)
package runware
