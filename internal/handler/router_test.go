package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/castore/internal/chunk"
	"github.com/prn-tf/castore/internal/filestore"
	"github.com/prn-tf/castore/internal/kv/memkv"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := filestore.Open(context.Background(), memkv.New(), 1<<20, zerolog.Nop())
	require.NoError(t, err)
	oh := NewObjectHandler(store, chunk.New(chunk.Fixed(16)), filestore.Config{}, zerolog.Nop())
	return NewRouter(oh, zerolog.Nop()).Handler()
}

func TestPutThenGetObject_RoundTrips(t *testing.T) {
	h := newTestRouter(t)

	body := strings.Repeat("abc123", 20)
	put := httptest.NewRequest(http.MethodPut, "/42/reports/q1.txt", strings.NewReader(body))
	putRec := httptest.NewRecorder()
	h.ServeHTTP(putRec, put)
	require.Equal(t, http.StatusOK, putRec.Code)

	get := httptest.NewRequest(http.MethodGet, "/42/reports/q1.txt", nil)
	getRec := httptest.NewRecorder()
	h.ServeHTTP(getRec, get)
	require.Equal(t, http.StatusOK, getRec.Code)

	got, err := io.ReadAll(getRec.Body)
	require.NoError(t, err)
	require.Equal(t, body, string(got))
}

func TestGetObject_UnboundNameIs404(t *testing.T) {
	h := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/1/never-uploaded.txt", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetObject_SubResourceStubs(t *testing.T) {
	h := newTestRouter(t)

	cases := map[string]string{
		"location":    locationConstraintXML,
		"object-lock": objectLockXML,
		"versioning":  versioningXML,
	}
	for query, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/7/some/path?"+query, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), want)
	}
}

func TestHeadObject_AlwaysOK(t *testing.T) {
	h := newTestRouter(t)

	req := httptest.NewRequest(http.MethodHead, "/9/anything/at/all", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNamespacesAreIsolated(t *testing.T) {
	h := newTestRouter(t)

	put := httptest.NewRequest(http.MethodPut, "/1/shared-name.txt", strings.NewReader("ns one"))
	h.ServeHTTP(httptest.NewRecorder(), put)

	req := httptest.NewRequest(http.MethodGet, "/2/shared-name.txt", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInvalidRequestsReturn400(t *testing.T) {
	h := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/not-a-namespace/x", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
