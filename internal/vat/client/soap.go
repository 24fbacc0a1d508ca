package client

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"vies_checker/platform/logger"
)

const (
	soapEnvelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"
	checkVatNS     = "urn:ec.europa.eu:taxud:vies:services:checkVat:types"
)

// SOAPClient calls the checkVat operation of the VIES SOAP service. The
// service address is read from the WSDL on first use unless configured.
type SOAPClient struct {
	httpClient *http.Client
	wsdlURL    string
	log        *logger.Logger

	group    singleflight.Group
	mu       sync.Mutex
	endpoint string
}

// NewSOAPClient creates a SOAP registry client. When endpoint is empty it is
// resolved from the soap:address of the WSDL at wsdlURL.
func NewSOAPClient(wsdlURL, endpoint string, timeout time.Duration, log *logger.Logger) *SOAPClient {
	return &SOAPClient{
		httpClient: &http.Client{Timeout: timeout},
		wsdlURL:    wsdlURL,
		endpoint:   endpoint,
		log:        log,
	}
}

// Binding implements Registry.
func (c *SOAPClient) Binding() Binding { return BindingSOAP }

// Check implements Registry.
func (c *SOAPClient) Check(ctx context.Context, countryCode, vatNumber string) (*CheckResult, error) {
	start := time.Now()
	endpoint, err := c.resolveEndpoint(ctx)
	if err != nil {
		c.log.WithContext(ctx).RegistryCall(string(BindingSOAP), countryCode, statusOf(err), time.Since(start), err)
		return nil, err
	}

	payload, err := xml.Marshal(newCheckVatEnvelope(countryCode, vatNumber))
	if err != nil {
		return nil, c.fail(endpoint, 0, "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(append([]byte(xml.Header), payload...)))
	if err != nil {
		return nil, c.fail(endpoint, 0, "create request", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `""`)

	start = time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		terr := c.fail(endpoint, 0, "", stripURL(err))
		c.log.WithContext(ctx).RegistryCall(string(BindingSOAP), countryCode, 0, time.Since(start), terr)
		return nil, terr
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		terr := c.fail(endpoint, resp.StatusCode, "read response", err)
		c.log.WithContext(ctx).RegistryCall(string(BindingSOAP), countryCode, resp.StatusCode, time.Since(start), terr)
		return nil, terr
	}

	result, terr := c.decode(endpoint, resp.StatusCode, body)
	c.log.WithContext(ctx).RegistryCall(string(BindingSOAP), countryCode, resp.StatusCode, time.Since(start), errOrNil(terr))
	if terr != nil {
		return nil, terr
	}
	return result, nil
}

func (c *SOAPClient) decode(endpoint string, status int, body []byte) (*CheckResult, *TransportError) {
	var env soapResponseEnvelope
	xmlErr := xml.Unmarshal(body, &env)

	if xmlErr == nil && env.Body.Fault != nil {
		return nil, c.fail(endpoint, status, strings.TrimSpace(env.Body.Fault.String), nil)
	}
	if status != http.StatusOK {
		return nil, c.fail(endpoint, status, "", nil)
	}
	if xmlErr != nil {
		return nil, c.fail(endpoint, status, "malformed response", xmlErr)
	}
	if env.Body.Response == nil {
		return nil, c.fail(endpoint, status, "malformed response: checkVatResponse missing", nil)
	}

	r := env.Body.Response
	valid, err := strconv.ParseBool(strings.TrimSpace(r.Valid))
	if err != nil {
		return nil, c.fail(endpoint, status, "malformed response: valid is not a boolean", err)
	}

	return &CheckResult{
		Valid: valid,
		Details: map[string]any{
			"countryCode": r.CountryCode,
			"vatNumber":   r.VatNumber,
			"requestDate": r.RequestDate,
			"valid":       valid,
			"name":        r.Name,
			"address":     r.Address,
		},
	}, nil
}

// resolveEndpoint returns the configured service address or reads it from
// the WSDL. Concurrent callers share one fetch and each waits only as long as
// its own ctx allows. A successful lookup is kept; a failed one is retried
// next call.
func (c *SOAPClient) resolveEndpoint(ctx context.Context) (string, error) {
	c.mu.Lock()
	endpoint := c.endpoint
	c.mu.Unlock()
	if endpoint != "" {
		return endpoint, nil
	}

	ch := c.group.DoChan("wsdl", func() (interface{}, error) {
		endpoint, err := c.fetchEndpoint(context.WithoutCancel(ctx))
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.endpoint = endpoint
		c.mu.Unlock()
		c.log.Info("resolved VIES SOAP endpoint", "endpoint", endpoint)
		return endpoint, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", c.fail(c.wsdlURL, 0, "fetch wsdl", ctx.Err())
	}
}

// fetchEndpoint reads the soap:address of the WSDL. The HTTP client timeout
// bounds it.
func (c *SOAPClient) fetchEndpoint(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.wsdlURL, nil)
	if err != nil {
		return "", c.fail(c.wsdlURL, 0, "create wsdl request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.fail(c.wsdlURL, 0, "fetch wsdl", stripURL(err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return "", c.fail(c.wsdlURL, resp.StatusCode, "fetch wsdl", nil)
	}

	var defs wsdlDefinitions
	if err := xml.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&defs); err != nil {
		return "", c.fail(c.wsdlURL, resp.StatusCode, "malformed wsdl", err)
	}

	location := defs.location()
	if location == "" {
		return "", c.fail(c.wsdlURL, resp.StatusCode, "malformed wsdl", errors.New("no soap:address location"))
	}

	base, err := url.Parse(c.wsdlURL)
	if err != nil {
		return "", c.fail(c.wsdlURL, 0, "malformed wsdl url", err)
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", c.fail(c.wsdlURL, 0, "malformed wsdl", fmt.Errorf("bad soap:address %q: %w", location, err))
	}
	return base.ResolveReference(ref).String(), nil
}

// statusOf returns the HTTP status carried by a *TransportError, or 0.
func statusOf(err error) int {
	var terr *TransportError
	if errors.As(err, &terr) {
		return terr.StatusCode
	}
	return 0
}

func (c *SOAPClient) fail(endpoint string, status int, reason string, err error) *TransportError {
	return &TransportError{
		Binding:    BindingSOAP,
		Endpoint:   endpoint,
		StatusCode: status,
		Reason:     reason,
		Err:        err,
	}
}

// Request envelope. Prefixed names are written literally.

type checkVatEnvelope struct {
	XMLName xml.Name     `xml:"soapenv:Envelope"`
	SoapNS  string       `xml:"xmlns:soapenv,attr"`
	TypesNS string       `xml:"xmlns:urn,attr"`
	Header  struct{}     `xml:"soapenv:Header"`
	Body    checkVatBody `xml:"soapenv:Body"`
}

type checkVatBody struct {
	CheckVat checkVatRequest `xml:"urn:checkVat"`
}

type checkVatRequest struct {
	CountryCode string `xml:"urn:countryCode"`
	VatNumber   string `xml:"urn:vatNumber"`
}

func newCheckVatEnvelope(countryCode, vatNumber string) checkVatEnvelope {
	return checkVatEnvelope{
		SoapNS:  soapEnvelopeNS,
		TypesNS: checkVatNS,
		Body: checkVatBody{
			CheckVat: checkVatRequest{CountryCode: countryCode, VatNumber: vatNumber},
		},
	}
}

// Response envelope. Local names only, so any prefix matches.

type soapResponseEnvelope struct {
	Body struct {
		Fault    *soapFault        `xml:"Fault"`
		Response *checkVatResponse `xml:"checkVatResponse"`
	} `xml:"Body"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
}

type checkVatResponse struct {
	CountryCode string `xml:"countryCode"`
	VatNumber   string `xml:"vatNumber"`
	RequestDate string `xml:"requestDate"`
	Valid       string `xml:"valid"`
	Name        string `xml:"name"`
	Address     string `xml:"address"`
}

type wsdlDefinitions struct {
	Services []struct {
		Ports []struct {
			Address struct {
				Location string `xml:"location,attr"`
			} `xml:"address"`
		} `xml:"port"`
	} `xml:"service"`
}

func (d wsdlDefinitions) location() string {
	for _, s := range d.Services {
		for _, p := range s.Ports {
			if loc := strings.TrimSpace(p.Address.Location); loc != "" {
				return loc
			}
		}
	}
	return ""
}
