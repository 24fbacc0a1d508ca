package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vies_checker/platform/logger"
)

func newRESTServer(t *testing.T, status int, body string) (*httptest.Server, *string) {
	t.Helper()
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &gotPath
}

func restClientFor(srv *httptest.Server) *RESTClient {
	return NewRESTClient(srv.URL+"/ms/{countryCode}/vat/{vatNumber}", 2*time.Second, logger.Discard())
}

func TestRESTCheckValid(t *testing.T) {
	srv, path := newRESTServer(t, http.StatusOK, `{"isValid":true,"requestDate":"2024-01-01","userError":"VALID","name":"Acme OÜ","address":"Tallinn","vatNumber":"123456789"}`)

	res, err := restClientFor(srv).Check(context.Background(), "EE", "123456789")
	require.NoError(t, err)

	assert.Equal(t, "/ms/EE/vat/123456789", *path)
	assert.True(t, res.Valid)
	assert.Equal(t, "Acme OÜ", res.Details["name"])
	assert.Equal(t, "Tallinn", res.Details["address"])
}

func TestRESTCheckInvalidIsAVerdict(t *testing.T) {
	srv, _ := newRESTServer(t, http.StatusOK, `{"isValid":false,"userError":"INVALID","name":"---","address":"---"}`)

	res, err := restClientFor(srv).Check(context.Background(), "EE", "999999999")
	require.NoError(t, err)
	assert.False(t, res.Valid)
}

func TestRESTCheckTransportFailures(t *testing.T) {
	cases := []struct {
		name       string
		status     int
		body       string
		wantReason string
	}{
		{"server error", http.StatusInternalServerError, `{}`, ""},
		{"error wrapper on non-200", http.StatusBadRequest, `{"actionSucceed":false,"errorWrappers":[{"error":"INVALID_INPUT"}]}`, "INVALID_INPUT"},
		{"error wrapper on 200", http.StatusOK, `{"actionSucceed":false,"errorWrappers":[{"error":"SERVICE_UNAVAILABLE"}]}`, "SERVICE_UNAVAILABLE"},
		{"member state outage", http.StatusOK, `{"isValid":false,"userError":"MS_UNAVAILABLE"}`, "MS_UNAVAILABLE"},
		{"rate limited", http.StatusOK, `{"isValid":false,"userError":"MS_MAX_CONCURRENT_REQ"}`, "MS_MAX_CONCURRENT_REQ"},
		{"missing isValid", http.StatusOK, `{"name":"x"}`, "malformed response: isValid missing"},
		{"isValid not a bool", http.StatusOK, `{"isValid":"yes"}`, "malformed response: isValid missing"},
		{"not json", http.StatusOK, `<html>maintenance</html>`, "malformed response"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newRESTServer(t, tc.status, tc.body)
			client := restClientFor(srv)

			_, err := client.Check(context.Background(), "EE", "123456789")
			require.Error(t, err)

			var terr *TransportError
			require.True(t, errors.As(err, &terr))
			assert.Equal(t, BindingREST, terr.Binding)
			assert.Equal(t, tc.status, terr.StatusCode)
			assert.Equal(t, tc.wantReason, terr.Reason)
			assert.Equal(t, client.urlTemplate, terr.Endpoint)
			assert.NotContains(t, terr.Error(), "123456789")
		})
	}
}

func TestRESTCheckUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	client := restClientFor(srv)
	srv.Close()

	_, err := client.Check(context.Background(), "EE", "123456789")

	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, 0, terr.StatusCode)
	assert.Error(t, terr.Err)
	assert.NotContains(t, terr.Error(), "123456789")
}

func TestRESTCheckEscapesPathSegments(t *testing.T) {
	srv, path := newRESTServer(t, http.StatusOK, `{"isValid":true}`)

	_, err := restClientFor(srv).Check(context.Background(), "FR", "AB/12")
	require.NoError(t, err)
	assert.Equal(t, "/ms/FR/vat/AB%2F12", *path)
}
