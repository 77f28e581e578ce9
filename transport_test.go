package methodmcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTransport_BuildsRequest(t *testing.T) {
	var got *http.Request
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(r.Context())
		gotBody = make([]byte, r.ContentLength)
		r.Body.Read(gotBody)
		w.Header().Set("X-Request-Id", "abc")
		w.WriteHeader(200)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL+"/", 5*time.Second)

	q := url.Values{}
	q.Set("$top", "5")
	resp, err := tr.Execute(context.Background(), &RequestSpec{
		Method:  "POST",
		Path:    "/tables/Customer",
		Query:   q,
		Headers: map[string]string{"Authorization": "APIKey k"},
		Body:    []byte(`{"Name":"Acme"}`),
	})
	require.NoError(t, err)

	assert.Equal(t, "POST", got.Method)
	assert.Equal(t, "/tables/Customer", got.URL.Path)
	assert.Equal(t, "5", got.URL.Query().Get("$top"))
	assert.Equal(t, "APIKey k", got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"), "JSON is the default content type")
	assert.Equal(t, `{"Name":"Acme"}`, string(gotBody))

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, `{"ok":true}`, string(resp.Data))
	assert.Equal(t, "abc", resp.Headers["x-request-id"], "response header keys are lower-cased")
	assert.Equal(t, "abc", resp.Header("X-Request-Id"))
}

func TestHTTPTransport_ExplicitContentTypeKept(t *testing.T) {
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		w.WriteHeader(201)
	}))
	defer srv.Close()

	tr := NewHTTPTransport(srv.URL, 5*time.Second)
	_, err := tr.Execute(context.Background(), &RequestSpec{
		Method:  "POST",
		Path:    "files",
		Headers: map[string]string{"Content-Type": "multipart/form-data; boundary=x"},
		Body:    []byte("--x--"),
	})
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data; boundary=x", contentType)
}
