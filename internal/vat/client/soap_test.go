package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vies_checker/platform/logger"
)

const testWSDL = `<?xml version="1.0" encoding="UTF-8"?>
<wsdl:definitions xmlns:wsdl="http://schemas.xmlsoap.org/wsdl/" xmlns:wsdlsoap="http://schemas.xmlsoap.org/wsdl/soap/">
  <wsdl:service name="checkVatService">
    <wsdl:port name="checkVatPort" binding="impl:checkVatBinding">
      <wsdlsoap:address location="/services/checkVatService"/>
    </wsdl:port>
  </wsdl:service>
</wsdl:definitions>`

func soapResponse(valid string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<env:Envelope xmlns:env="http://schemas.xmlsoap.org/soap/envelope/">
  <env:Header/>
  <env:Body>
    <ns2:checkVatResponse xmlns:ns2="urn:ec.europa.eu:taxud:vies:services:checkVat:types">
      <ns2:countryCode>EE</ns2:countryCode>
      <ns2:vatNumber>123456789</ns2:vatNumber>
      <ns2:requestDate>2024-01-01+01:00</ns2:requestDate>
      <ns2:valid>` + valid + `</ns2:valid>
      <ns2:name>Acme OÜ</ns2:name>
      <ns2:address>Tallinn</ns2:address>
    </ns2:checkVatResponse>
  </env:Body>
</env:Envelope>`
}

const soapFaultResponse = `<?xml version="1.0" encoding="UTF-8"?>
<env:Envelope xmlns:env="http://schemas.xmlsoap.org/soap/envelope/">
  <env:Body>
    <env:Fault>
      <faultcode>env:Server</faultcode>
      <faultstring>MS_UNAVAILABLE</faultstring>
    </env:Fault>
  </env:Body>
</env:Envelope>`

type soapStub struct {
	srv         *httptest.Server
	wsdlFetches atomic.Int32
	lastBody    atomic.Value
}

func newSOAPStub(t *testing.T, status int, response string) *soapStub {
	t.Helper()
	stub := &soapStub{}
	mux := http.NewServeMux()
	mux.HandleFunc("/checkVatService.wsdl", func(w http.ResponseWriter, r *http.Request) {
		stub.wsdlFetches.Add(1)
		_, _ = w.Write([]byte(testWSDL))
	})
	mux.HandleFunc("/services/checkVatService", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Content-Type"), "text/xml")
		body, _ := io.ReadAll(r.Body)
		stub.lastBody.Store(string(body))
		w.Header().Set("Content-Type", "text/xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	})
	stub.srv = httptest.NewServer(mux)
	t.Cleanup(stub.srv.Close)
	return stub
}

func (s *soapStub) client() *SOAPClient {
	return NewSOAPClient(s.srv.URL+"/checkVatService.wsdl", "", 2*time.Second, logger.Discard())
}

func TestSOAPCheckValid(t *testing.T) {
	stub := newSOAPStub(t, http.StatusOK, soapResponse("true"))

	res, err := stub.client().Check(context.Background(), "EE", "123456789")
	require.NoError(t, err)

	assert.True(t, res.Valid)
	assert.Equal(t, "Acme OÜ", res.Details["name"])
	assert.Equal(t, "Tallinn", res.Details["address"])
	assert.Equal(t, "2024-01-01+01:00", res.Details["requestDate"])
	assert.Equal(t, true, res.Details["valid"])

	body, _ := stub.lastBody.Load().(string)
	assert.Contains(t, body, "<urn:countryCode>EE</urn:countryCode>")
	assert.Contains(t, body, "<urn:vatNumber>123456789</urn:vatNumber>")
	assert.Contains(t, body, checkVatNS)
}

func TestSOAPCheckInvalidIsAVerdict(t *testing.T) {
	stub := newSOAPStub(t, http.StatusOK, soapResponse("false"))

	res, err := stub.client().Check(context.Background(), "EE", "123456789")
	require.NoError(t, err)
	assert.False(t, res.Valid)
}

func TestSOAPEndpointResolvedOnce(t *testing.T) {
	stub := newSOAPStub(t, http.StatusOK, soapResponse("true"))
	client := stub.client()

	for i := 0; i < 3; i++ {
		_, err := client.Check(context.Background(), "EE", "123456789")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), stub.wsdlFetches.Load())
	assert.Equal(t, stub.srv.URL+"/services/checkVatService", client.endpoint)
}

func TestSOAPSlowWSDLDoesNotBlockOtherCallers(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var fetches atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/checkVatService.wsdl", func(w http.ResponseWriter, r *http.Request) {
		if fetches.Add(1) == 1 {
			close(entered)
		}
		<-release
		_, _ = w.Write([]byte(testWSDL))
	})
	mux.HandleFunc("/services/checkVatService", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(soapResponse("true")))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	client := NewSOAPClient(srv.URL+"/checkVatService.wsdl", "", 2*time.Second, logger.Discard())

	first := make(chan error, 1)
	go func() {
		_, err := client.Check(context.Background(), "EE", "123456789")
		first <- err
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	began := time.Now()
	_, err := client.Check(ctx, "EE", "123456789")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(began), time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Check(context.Background(), "EE", "123456789")
			assert.NoError(t, err)
		}()
	}

	close(release)
	require.NoError(t, <-first)
	wg.Wait()
	assert.Equal(t, int32(1), fetches.Load())
}

func TestSOAPWSDLFailureIsLogged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	var buf bytes.Buffer
	client := NewSOAPClient(srv.URL, "", 2*time.Second, logger.NewWithWriter(&buf, "production"))
	_, err := client.Check(context.Background(), "EE", "123456789")
	require.Error(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "registry_call", entry["msg"])
	assert.Equal(t, "soap", entry["binding"])
	assert.Equal(t, "EE", entry["country_code"])
	assert.EqualValues(t, http.StatusServiceUnavailable, entry["status"])
	assert.Contains(t, entry["error"], "fetch wsdl")
	assert.NotContains(t, buf.String(), "123456789")
}

func TestSOAPConfiguredEndpointSkipsWSDL(t *testing.T) {
	stub := newSOAPStub(t, http.StatusOK, soapResponse("true"))
	client := NewSOAPClient("", stub.srv.URL+"/services/checkVatService", 2*time.Second, logger.Discard())

	_, err := client.Check(context.Background(), "EE", "123456789")
	require.NoError(t, err)
	assert.Equal(t, int32(0), stub.wsdlFetches.Load())
}

func TestSOAPFaultIsTransportFailure(t *testing.T) {
	stub := newSOAPStub(t, http.StatusInternalServerError, soapFaultResponse)

	_, err := stub.client().Check(context.Background(), "EE", "123456789")

	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, BindingSOAP, terr.Binding)
	assert.Equal(t, "MS_UNAVAILABLE", terr.Reason)
	assert.Equal(t, http.StatusInternalServerError, terr.StatusCode)
	assert.NotContains(t, terr.Error(), "123456789")
}

func TestSOAPMalformedResponses(t *testing.T) {
	cases := map[string]string{
		"not xml":          "maintenance",
		"missing response": `<env:Envelope xmlns:env="http://schemas.xmlsoap.org/soap/envelope/"><env:Body/></env:Envelope>`,
		"bad valid flag":   soapResponse("maybe"),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			stub := newSOAPStub(t, http.StatusOK, body)

			_, err := stub.client().Check(context.Background(), "EE", "123456789")

			var terr *TransportError
			require.True(t, errors.As(err, &terr))
			assert.Contains(t, terr.Reason, "malformed response")
		})
	}
}

func TestSOAPWSDLWithoutAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<definitions><service name="x"/></definitions>`))
	}))
	t.Cleanup(srv.Close)

	client := NewSOAPClient(srv.URL, "", 2*time.Second, logger.Discard())
	_, err := client.Check(context.Background(), "EE", "123456789")

	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, "malformed wsdl", terr.Reason)
	assert.Empty(t, client.endpoint)
}

func TestNewSelectsBinding(t *testing.T) {
	rest, err := New(fakeVIESConfig{binding: "rest"}, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, BindingREST, rest.Binding())

	soap, err := New(fakeVIESConfig{binding: "soap"}, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, BindingSOAP, soap.Binding())
	assert.Equal(t, "SOAP Server", soap.Binding().ServerLabel())

	_, err = New(fakeVIESConfig{binding: "grpc"}, logger.Discard())
	assert.Error(t, err)
}

type fakeVIESConfig struct{ binding string }

func (f fakeVIESConfig) GetVIESBinding() string        { return f.binding }
func (f fakeVIESConfig) GetVIESSOAPURL() string        { return "http://localhost/wsdl" }
func (f fakeVIESConfig) GetVIESSOAPEndpoint() string   { return "" }
func (f fakeVIESConfig) GetVIESRESTURL() string        { return "http://localhost/{countryCode}/{vatNumber}" }
func (f fakeVIESConfig) GetVIESTimeout() time.Duration { return time.Second }
func (f fakeVIESConfig) GetVIESBatchConcurrency() int  { return 1 }
func (f fakeVIESConfig) GetVIESBatchMaxItems() int     { return 1 }
