package server

import (
	"os"
	"testing"

	"github.com/arborly/sftrie/pkg/hotcache"
	"github.com/arborly/sftrie/pkg/search"
	"github.com/arborly/sftrie/pkg/sft"
	"github.com/arborly/sftrie/pkg/text"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

// withPipedStdio swaps os.Stdin/os.Stdout for an in-process pipe pair for
// the duration of fn, handing back the ends the test drives directly:
// reqW to write requests, respR to read responses.
func withPipedStdio(t *testing.T, fn func(reqW *os.File, respR *os.File)) {
	t.Helper()
	reqR, reqW, err := os.Pipe()
	require.NoError(t, err)
	respR, respW, err := os.Pipe()
	require.NoError(t, err)

	origIn, origOut := os.Stdin, os.Stdout
	os.Stdin, os.Stdout = reqR, respW
	t.Cleanup(func() {
		os.Stdin, os.Stdout = origIn, origOut
		reqR.Close()
		respW.Close()
	})

	fn(reqW, respR)
}

func buildTestServer(t *testing.T, words ...string) *Server {
	t.Helper()
	keys := make([]text.Text[byte], len(words))
	for i, w := range words {
		keys[i] = text.FromString(w)
	}
	trie, err := sft.BuildFromUnsorted[byte, uint32](keys, 0)
	require.NoError(t, err)
	client := search.New[byte, uint32](trie)
	cache := hotcache.New[any](16)
	return NewServer(client, cache, 50, 2, 4)
}

type envIn struct {
	Type    string `msgpack:"type"`
	Payload any    `msgpack:"payload"`
}

func decodeEnvelope(t *testing.T, dec *msgpack.Decoder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, dec.Decode(&env))
	return env
}

func TestServerHealthOnStart(t *testing.T) {
	withPipedStdio(t, func(reqW, respR *os.File) {
		srv := buildTestServer(t, "cat", "car", "cart")
		go func() {
			_ = srv.Start()
		}()

		dec := msgpack.NewDecoder(respR)
		env := decodeEnvelope(t, dec)
		require.Equal(t, "health_response", env.Type)

		var resp HealthResponse
		require.NoError(t, msgpack.Unmarshal(env.Payload, &resp))
		require.Equal(t, "ready", resp.Status)

		reqW.Close()
	})
}

func TestServerExactRoundTrip(t *testing.T) {
	withPipedStdio(t, func(reqW, respR *os.File) {
		srv := buildTestServer(t, "cat", "car", "cart", "dog")
		go func() {
			_ = srv.Start()
		}()

		dec := msgpack.NewDecoder(respR)
		decodeEnvelope(t, dec) // health on start

		enc := msgpack.NewEncoder(reqW)
		sendRequest(t, enc, "exact", ExactRequest{ID: "1", Query: "cart"})

		env := decodeEnvelope(t, dec)
		require.Equal(t, "exact_response", env.Type)
		var resp ExactResponse
		require.NoError(t, msgpack.Unmarshal(env.Payload, &resp))
		require.Equal(t, "1", resp.ID)
		require.True(t, resp.Found)

		sendRequest(t, enc, "exact", ExactRequest{ID: "2", Query: "ca"})
		env = decodeEnvelope(t, dec)
		require.NoError(t, msgpack.Unmarshal(env.Payload, &resp))
		require.Equal(t, "2", resp.ID)
		require.False(t, resp.Found)

		reqW.Close()
	})
}

func TestServerPredictRoundTripUsesCache(t *testing.T) {
	withPipedStdio(t, func(reqW, respR *os.File) {
		srv := buildTestServer(t, "cat", "car", "cart", "dog")
		go func() {
			_ = srv.Start()
		}()

		dec := msgpack.NewDecoder(respR)
		decodeEnvelope(t, dec) // health on start

		enc := msgpack.NewEncoder(reqW)
		sendRequest(t, enc, "predict", PredictRequest{ID: "1", Query: "ca"})

		env := decodeEnvelope(t, dec)
		require.Equal(t, "predict_response", env.Type)
		var resp PredictResponse
		require.NoError(t, msgpack.Unmarshal(env.Payload, &resp))
		require.ElementsMatch(t, []string{"car", "cart", "cat"}, resp.Keys)

		key := hotcache.Key{Query: "ca", Form: hotcache.FormPredict}
		cached, ok := srv.cache.Get(key)
		require.True(t, ok)
		require.ElementsMatch(t, []string{"car", "cart", "cat"}, cached.([]string))

		reqW.Close()
	})
}

func TestServerApproxRoundTrip(t *testing.T) {
	withPipedStdio(t, func(reqW, respR *os.File) {
		srv := buildTestServer(t, "cat", "car", "cart", "dog")
		go func() {
			_ = srv.Start()
		}()

		dec := msgpack.NewDecoder(respR)
		decodeEnvelope(t, dec) // health on start

		enc := msgpack.NewEncoder(reqW)
		sendRequest(t, enc, "approx", ApproxRequest{ID: "1", Query: "cr", MaxEdits: 1})

		env := decodeEnvelope(t, dec)
		require.Equal(t, "approx_response", env.Type)
		var resp ApproxResponse
		require.NoError(t, msgpack.Unmarshal(env.Payload, &resp))
		require.Len(t, resp.Matches, 1)
		require.Equal(t, "car", resp.Matches[0].Key)
		require.Equal(t, 1, resp.Matches[0].Edits)

		reqW.Close()
	})
}

func TestServerUnknownRequestType(t *testing.T) {
	withPipedStdio(t, func(reqW, respR *os.File) {
		srv := buildTestServer(t, "cat")
		go func() {
			_ = srv.Start()
		}()

		dec := msgpack.NewDecoder(respR)
		decodeEnvelope(t, dec) // health on start

		enc := msgpack.NewEncoder(reqW)
		require.NoError(t, enc.Encode(envIn{Type: "bogus", Payload: map[string]any{}}))

		env := decodeEnvelope(t, dec)
		require.Equal(t, "error", env.Type)
		var resp ErrorResponse
		require.NoError(t, msgpack.Unmarshal(env.Payload, &resp))
		require.Equal(t, 400, resp.Code)

		reqW.Close()
	})
}

func sendRequest(t *testing.T, enc *msgpack.Encoder, typ string, payload any) {
	t.Helper()
	raw, err := msgpack.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, enc.Encode(envelope{Type: typ, Payload: raw}))
}
