package adapter

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse_EndOnce(t *testing.T) {
	res := NewResponse()

	require.NoError(t, res.End([]byte("a")))
	assert.ErrorIs(t, res.End([]byte("b")), ErrResponseFinished)

	_, err := res.Write([]byte("c"))
	assert.ErrorIs(t, err, ErrResponseFinished)

	assert.Equal(t, "a", string(res.Body()))
	assert.True(t, res.Finished())

	select {
	case <-res.Done():
	default:
		t.Fatal("Done not closed after End")
	}
}

func TestResponse_StatusAndHeaders(t *testing.T) {
	res := NewResponse()
	assert.Equal(t, http.StatusOK, res.StatusCode())
	assert.False(t, res.HeadersSent())

	res.Status(http.StatusTeapot).Set("x-trace", "abc")
	assert.Equal(t, http.StatusTeapot, res.StatusCode())
	assert.Equal(t, "abc", res.Get("X-Trace"))

	res.WriteHeader(http.StatusAccepted)
	res.WriteHeader(http.StatusBadGateway)
	assert.Equal(t, http.StatusAccepted, res.StatusCode())
	assert.True(t, res.HeadersSent())
}

func TestResponse_JSONFailsOnUnsupportedValue(t *testing.T) {
	res := NewResponse()
	assert.Error(t, res.JSON(map[string]any{"ch": make(chan int)}))
	assert.False(t, res.Finished())
}

func TestRequest_GetIsCaseInsensitive(t *testing.T) {
	raw, err := http.NewRequest(http.MethodGet, "https://example.com/p?q=1", nil)
	require.NoError(t, err)
	raw.Header.Set("Content-Type", "text/html")
	raw.Header["x-raw-key"] = []string{"raw"}

	req := NewRequest(raw)

	assert.Equal(t, "text/html", req.Get("content-type"))
	assert.Equal(t, "raw", req.Get("X-Raw-Key"))
	assert.Equal(t, "", req.Get("missing"))
	assert.Same(t, raw, req.Raw())
	assert.Equal(t, "/p", req.URL().Path)
}

func TestIsText(t *testing.T) {
	tests := []struct {
		contentType string
		body        []byte
		want        bool
	}{
		{"", nil, true},
		{"text/html; charset=utf-8", []byte("<p>"), true},
		{"application/json", []byte("{}"), true},
		{"application/ld+json", []byte("{}"), true},
		{"application/javascript", []byte("x"), true},
		{"image/svg+xml", []byte("<svg/>"), true},
		{"image/png", []byte{0x89}, false},
		{"", []byte{0xff, 0xfe}, false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, isText(tt.contentType, tt.body))
		})
	}
}

func TestRequest_GetMergesRepeatedHeaders(t *testing.T) {
	raw, err := http.NewRequest(http.MethodGet, "https://example.com/", nil)
	require.NoError(t, err)
	raw.Header.Add("Accept", "text/html")
	raw.Header.Add("Accept", "application/json")
	raw.Header.Add("Cookie", "a=1")
	raw.Header.Add("Cookie", "b=2")
	raw.Header["x-forwarded-for"] = []string{"10.0.0.1", "10.0.0.2"}

	req := NewRequest(raw)

	assert.Equal(t, "text/html, application/json", req.Get("accept"))
	assert.Equal(t, "a=1; b=2", req.Get("cookie"))
	assert.Equal(t, "10.0.0.1, 10.0.0.2", req.Get("X-Forwarded-For"))
}
