package graphqltools

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lipsumar/graphql-tools/pkg/graphql"
)

func TestLoaderQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query     string                 `json:"query"`
			Variables map[string]interface{} `json:"variables"`
		}
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, map[string]interface{}{"id": "42"}, body.Variables)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"user":{"name":"ada"}}}`)
	}))
	t.Cleanup(srv.Close)

	loader, err := New(NewTransportConfig(srv.URL))
	require.NoError(t, err)
	defer loader.Close()

	result, err := loader.Query(context.Background(),
		`query GetUser($id: ID!) { user(id: $id) { name } }`,
		map[string]interface{}{"id": "42"})
	require.NoError(t, err)

	var data struct {
		User struct{ Name string }
	}
	require.NoError(t, result.UnmarshalData(&data))
	assert.Equal(t, "ada", data.User.Name)
}

func TestLoaderMutate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"bump":1}}`)
	}))
	t.Cleanup(srv.Close)

	loader, err := New(NewTransportConfig(srv.URL))
	require.NoError(t, err)
	defer loader.Close()

	result, err := loader.Mutate(context.Background(), `mutation { bump }`, nil)
	require.NoError(t, err)
	assert.False(t, result.HasErrors())
}

func TestLoaderSubscribeOverSSE(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"data\":{\"tick\":1}}\n\n")
		io.WriteString(w, "data: {\"data\":{\"tick\":2}}\n\n")
		io.WriteString(w, "event: complete\n\n")
	}))
	t.Cleanup(srv.Close)

	config := NewTransportConfig(srv.URL)
	config.SubscriptionProtocol = ProtocolSSE

	loader, err := New(config)
	require.NoError(t, err)
	defer loader.Close()

	stream, err := loader.Subscribe(context.Background(), `subscription { tick }`, nil)
	require.NoError(t, err)
	defer stream.Close()

	var ticks []string
	for stream.Next() {
		ticks = append(ticks, string(stream.Get().Data))
	}
	require.NoError(t, stream.Err())
	assert.Equal(t, []string{`{"tick":1}`, `{"tick":2}`}, ticks)
}

func TestLoaderDoRoutesSubscription(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"data\":{\"tick\":1}}\n\nevent: complete\n\n")
	}))
	t.Cleanup(srv.Close)

	config := NewTransportConfig(srv.URL)
	config.SubscriptionProtocol = ProtocolSSE

	loader, err := New(config)
	require.NoError(t, err)
	defer loader.Close()

	resp, err := loader.Do(context.Background(), &graphql.Request{Query: `subscription { tick }`})
	require.NoError(t, err)
	require.True(t, resp.Streaming())
	resp.Stream.Close()
}

func TestLoaderRejectsBadConfig(t *testing.T) {
	_, err := New(NewTransportConfig(""))
	require.Error(t, err)
}
