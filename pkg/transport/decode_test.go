package transport

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lipsumar/graphql-tools/pkg/logging"
)

func fakeResponse(contentType, body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{contentType}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func drainStream(t *testing.T, stream *Stream) ([]string, error) {
	t.Helper()
	var got []string
	for stream.Next() {
		got = append(got, string(stream.Get().Data))
	}
	return got, stream.Err()
}

func TestDecodeResponseJSON(t *testing.T) {
	t.Run("data payload", func(t *testing.T) {
		cancelled := false
		resp, err := decodeResponse(
			fakeResponse("application/json", `{"data":{"viewer":{"name":"ada"}}}`),
			func() { cancelled = true },
			logging.NewNop(),
		)
		require.NoError(t, err)
		require.False(t, resp.Streaming())
		assert.True(t, cancelled, "JSON decode settles eagerly")

		var data struct {
			Viewer struct{ Name string }
		}
		require.NoError(t, resp.Result.UnmarshalData(&data))
		assert.Equal(t, "ada", data.Viewer.Name)
	})

	t.Run("errors payload", func(t *testing.T) {
		resp, err := decodeResponse(
			fakeResponse("application/json; charset=utf-8", `{"errors":[{"message":"boom"}]}`),
			func() {},
			logging.NewNop(),
		)
		require.NoError(t, err)
		require.True(t, resp.Result.HasErrors())
		assert.Equal(t, "boom", resp.Result.Errors[0].Message)
	})

	t.Run("malformed body", func(t *testing.T) {
		_, err := decodeResponse(
			fakeResponse("application/json", `{not json`),
			func() {},
			logging.NewNop(),
		)
		require.Error(t, err)
	})

	t.Run("unknown content type treated as JSON", func(t *testing.T) {
		resp, err := decodeResponse(
			fakeResponse("", `{"data":{"ok":true}}`),
			func() {},
			logging.NewNop(),
		)
		require.NoError(t, err)
		assert.False(t, resp.Streaming())
	})
}

func TestDecodeResponseEventStream(t *testing.T) {
	t.Run("next events until complete", func(t *testing.T) {
		body := "event: next\n" +
			"data: {\"data\":{\"n\":1}}\n" +
			"\n" +
			": heartbeat\n" +
			"event: next\n" +
			"data: {\"data\":{\"n\":2}}\n" +
			"\n" +
			"event: complete\n" +
			"\n"

		resp, err := decodeResponse(fakeResponse("text/event-stream", body), func() {}, logging.NewNop())
		require.NoError(t, err)
		require.True(t, resp.Streaming())

		got, streamErr := drainStream(t, resp.Stream)
		require.NoError(t, streamErr)
		assert.Equal(t, []string{`{"n":1}`, `{"n":2}`}, got)
	})

	t.Run("multi-line data joined", func(t *testing.T) {
		body := "data: {\"data\":\n" +
			"data: {\"n\":1}}\n" +
			"\n"

		resp, err := decodeResponse(fakeResponse("text/event-stream", body), func() {}, logging.NewNop())
		require.NoError(t, err)

		got, streamErr := drainStream(t, resp.Stream)
		require.NoError(t, streamErr)
		require.Len(t, got, 1)
	})

	t.Run("id and retry fields ignored", func(t *testing.T) {
		body := "id: 7\n" +
			"retry: 1000\n" +
			"data: {\"data\":{\"n\":1}}\n" +
			"\n"

		resp, err := decodeResponse(fakeResponse("text/event-stream", body), func() {}, logging.NewNop())
		require.NoError(t, err)

		got, streamErr := drainStream(t, resp.Stream)
		require.NoError(t, streamErr)
		assert.Equal(t, []string{`{"n":1}`}, got)
	})

	t.Run("trailing event without blank line", func(t *testing.T) {
		body := "data: {\"data\":{\"n\":1}}\n"

		resp, err := decodeResponse(fakeResponse("text/event-stream", body), func() {}, logging.NewNop())
		require.NoError(t, err)

		got, streamErr := drainStream(t, resp.Stream)
		require.NoError(t, streamErr)
		assert.Len(t, got, 1)
	})

	t.Run("malformed event payload fails the stream", func(t *testing.T) {
		body := "data: {nope\n\n"

		resp, err := decodeResponse(fakeResponse("text/event-stream", body), func() {}, logging.NewNop())
		require.NoError(t, err)

		_, streamErr := drainStream(t, resp.Stream)
		require.Error(t, streamErr)
	})
}

func TestDecodeResponseMultipart(t *testing.T) {
	const boundary = "graphql"

	buildBody := func(parts ...string) string {
		var b strings.Builder
		for _, p := range parts {
			b.WriteString("--" + boundary + "\r\n")
			b.WriteString("Content-Type: application/json\r\n\r\n")
			b.WriteString(p)
			b.WriteString("\r\n")
		}
		b.WriteString("--" + boundary + "--\r\n")
		return b.String()
	}

	contentType := `multipart/mixed; boundary="` + boundary + `"`

	t.Run("plain parts in order", func(t *testing.T) {
		body := buildBody(`{"data":{"n":1}}`, `{"data":{"n":2}}`)

		resp, err := decodeResponse(fakeResponse(contentType, body), func() {}, logging.NewNop())
		require.NoError(t, err)
		require.True(t, resp.Streaming())

		got, streamErr := drainStream(t, resp.Stream)
		require.NoError(t, streamErr)
		assert.Equal(t, []string{`{"n":1}`, `{"n":2}`}, got)
	})

	t.Run("incremental batch flattened", func(t *testing.T) {
		body := buildBody(
			`{"data":{"base":true},"hasNext":true}`,
			`{"incremental":[{"data":{"p":1},"path":["a"]},{"data":{"p":2},"path":["b"]}],"hasNext":false}`,
		)

		resp, err := decodeResponse(fakeResponse(contentType, body), func() {}, logging.NewNop())
		require.NoError(t, err)

		got, streamErr := drainStream(t, resp.Stream)
		require.NoError(t, streamErr)
		assert.Equal(t, []string{`{"base":true}`, `{"p":1}`, `{"p":2}`}, got)
	})

	t.Run("missing boundary rejected", func(t *testing.T) {
		_, err := decodeResponse(fakeResponse("multipart/mixed", "ignored"), func() {}, logging.NewNop())
		require.Error(t, err)
	})

	t.Run("malformed part fails the stream", func(t *testing.T) {
		body := buildBody(`{broken`)

		resp, err := decodeResponse(fakeResponse(contentType, body), func() {}, logging.NewNop())
		require.NoError(t, err)

		_, streamErr := drainStream(t, resp.Stream)
		require.Error(t, streamErr)
	})
}
