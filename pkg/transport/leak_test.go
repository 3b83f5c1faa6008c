package transport

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lipsumar/graphql-tools/pkg/graphql"
	"github.com/lipsumar/graphql-tools/pkg/logging"
)

// goroutineLeakDetector verifies that a test leaves no goroutines behind.
type goroutineLeakDetector struct {
	t             *testing.T
	initialCount  int
	allowedGrowth int
}

func newGoroutineLeakDetector(t *testing.T) *goroutineLeakDetector {
	time.Sleep(200 * time.Millisecond)
	return &goroutineLeakDetector{t: t, initialCount: runtime.NumGoroutine()}
}

func (d *goroutineLeakDetector) check() {
	d.t.Helper()

	// Sample a few times; teardown goroutines may still be unwinding.
	final := runtime.NumGoroutine()
	for i := 0; i < 20 && final > d.initialCount+d.allowedGrowth; i++ {
		time.Sleep(100 * time.Millisecond)
		final = runtime.NumGoroutine()
	}

	if leaked := final - d.initialCount; leaked > d.allowedGrowth {
		buf := make([]byte, 1<<20)
		stackLen := runtime.Stack(buf, true)
		d.t.Errorf("goroutine leak detected: started with %d, ended with %d\n%s",
			d.initialCount, final, buf[:stackLen])
	}
}

func TestWSClientCloseReleasesGoroutines(t *testing.T) {
	detector := newGoroutineLeakDetector(t)

	srv := wsTestServer(t, modernProtocol, emitResults(t, modernProtocol, `{"data":{}}`))

	client := newWSClient(ToWSEndpoint(srv.URL), nil, nil, nil, logging.NewNop())

	stream, err := client.Subscribe(context.Background(), &graphql.Request{
		Query: `subscription { ticks }`,
	})
	require.NoError(t, err)
	_, streamErr := drainStream(t, stream)
	require.NoError(t, streamErr)
	stream.Close()

	require.NoError(t, client.Close())
	srv.Close()

	detector.check()
}

func TestWSServerCompleteReleasesWatcher(t *testing.T) {
	// When the server completes the sequence the consumer is not
	// obligated to call Close; the context watcher must still exit.
	detector := newGoroutineLeakDetector(t)

	srv := wsTestServer(t, modernProtocol, emitResults(t, modernProtocol, `{"data":{}}`))

	client := newWSClient(ToWSEndpoint(srv.URL), nil, nil, nil, logging.NewNop())

	stream, err := client.Subscribe(context.Background(), &graphql.Request{
		Query: `subscription { ticks }`,
	})
	require.NoError(t, err)
	_, streamErr := drainStream(t, stream)
	require.NoError(t, streamErr)

	require.NoError(t, client.Close())
	srv.Close()

	detector.check()
}

func TestStreamCloseReleasesSSEGoroutines(t *testing.T) {
	detector := newGoroutineLeakDetector(t)

	resp, err := decodeResponse(
		fakeResponse("text/event-stream", "data: {\"data\":{\"n\":1}}\n\nevent: complete\n\n"),
		func() {},
		logging.NewNop(),
	)
	require.NoError(t, err)

	_, streamErr := drainStream(t, resp.Stream)
	require.NoError(t, streamErr)
	resp.Stream.Close()

	detector.check()
}
