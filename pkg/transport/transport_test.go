package transport

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/richard-senior/valuebet/pkg/protocol"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() ClientOptions {
	return ClientOptions{
		Name:         "test",
		RetryMax:     2,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 2 * time.Millisecond,
		Timeout:      5 * time.Second,
		UserAgent:    "valuebet-test",
	}
}

func TestGetHTMLDecodesContent(t *testing.T) {
	const page = "<html><body><table id='odds'></table></body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "valuebet-test", r.Header.Get("User-Agent"))
		var buf bytes.Buffer
		switch r.URL.Path {
		case "/gzip":
			w.Header().Set("Content-Encoding", "gzip")
			zw := gzip.NewWriter(&buf)
			zw.Write([]byte(page))
			zw.Close()
		case "/br":
			w.Header().Set("Content-Encoding", "br")
			bw := brotli.NewWriter(&buf)
			bw.Write([]byte(page))
			bw.Close()
		default:
			buf.WriteString(page)
		}
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	c := NewClient(testOptions())
	for _, path := range []string{"/plain", "/gzip", "/br"} {
		body, err := c.GetHTML(context.Background(), srv.URL+path)
		require.NoError(t, err, path)
		assert.Equal(t, page, string(body), path)
	}
}

func TestGetHTMLRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	body, err := NewClient(testOptions()).GetHTML(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(testOptions())
	for i := 0; i < 3; i++ {
		_, err := c.GetHTML(context.Background(), srv.URL)
		require.Error(t, err)
	}
	_, err := c.GetHTML(context.Background(), srv.URL)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestGetHTMLHonoursCancelledContext(t *testing.T) {
	opts := testOptions()
	opts.RequestsPerSecond = 0.001
	c := NewClient(opts)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetHTML(ctx, "http://127.0.0.1:1")
	assert.Error(t, err)
}

func TestStreamTransportRoundTrip(t *testing.T) {
	in := strings.NewReader(`{"jsonrpc":"2.0","method":"tools/list","id":1}
{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	var out bytes.Buffer
	tr := NewStreamTransport(in, &out)

	req, err := tr.ReadRequest()
	require.NoError(t, err)
	assert.Equal(t, "tools/list", req.Method)

	req, err = tr.ReadRequest()
	require.NoError(t, err)
	assert.Nil(t, req.ID)

	_, err = tr.ReadRequest()
	assert.Equal(t, io.EOF, err)

	resp, err := protocol.NewJsonRpcResponse(map[string]int{"n": 1}, 1)
	require.NoError(t, err)
	require.NoError(t, tr.WriteResponse(resp))
	assert.Equal(t, `{"jsonrpc":"2.0","result":{"n":1},"id":1}`+"\n", out.String())
}

func TestStreamTransportRejectsWrongVersion(t *testing.T) {
	tr := NewStreamTransport(strings.NewReader(`{"jsonrpc":"1.0","method":"x","id":2}`), io.Discard)
	_, err := tr.ReadRequest()
	var rpcErr *protocol.JsonRpcError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, protocol.ErrInvalidRequest, rpcErr.Code)
}
