package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vies_checker/platform/logger"
)

const maxResponseBytes = 1 << 20

// userError values that mean the registry could not answer, as opposed to
// a verdict on the number.
var restOutageCodes = map[string]bool{
	"MS_UNAVAILABLE":            true,
	"MS_MAX_CONCURRENT_REQ":     true,
	"GLOBAL_MAX_CONCURRENT_REQ": true,
	"SERVICE_UNAVAILABLE":       true,
	"TIMEOUT":                   true,
}

// RESTClient checks numbers with GET {base}/ms/{countryCode}/vat/{vatNumber}.
type RESTClient struct {
	httpClient  *http.Client
	urlTemplate string
	log         *logger.Logger
}

// NewRESTClient creates a REST registry client. urlTemplate must contain the
// {countryCode} and {vatNumber} placeholders.
func NewRESTClient(urlTemplate string, timeout time.Duration, log *logger.Logger) *RESTClient {
	return &RESTClient{
		httpClient:  &http.Client{Timeout: timeout},
		urlTemplate: urlTemplate,
		log:         log,
	}
}

// Binding implements Registry.
func (c *RESTClient) Binding() Binding { return BindingREST }

// Check implements Registry.
func (c *RESTClient) Check(ctx context.Context, countryCode, vatNumber string) (*CheckResult, error) {
	reqURL := strings.NewReplacer(
		"{countryCode}", url.PathEscape(countryCode),
		"{vatNumber}", url.PathEscape(vatNumber),
	).Replace(c.urlTemplate)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, c.fail(0, "create request", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		terr := c.fail(0, "", stripURL(err))
		c.log.WithContext(ctx).RegistryCall(string(BindingREST), countryCode, 0, time.Since(start), terr)
		return nil, terr
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		terr := c.fail(resp.StatusCode, "read response", err)
		c.log.WithContext(ctx).RegistryCall(string(BindingREST), countryCode, resp.StatusCode, time.Since(start), terr)
		return nil, terr
	}

	result, terr := c.decode(resp.StatusCode, body)
	c.log.WithContext(ctx).RegistryCall(string(BindingREST), countryCode, resp.StatusCode, time.Since(start), errOrNil(terr))
	if terr != nil {
		return nil, terr
	}
	return result, nil
}

func (c *RESTClient) decode(status int, body []byte) (*CheckResult, *TransportError) {
	var details map[string]any
	jsonErr := json.Unmarshal(body, &details)

	if status != http.StatusOK {
		return nil, c.fail(status, errorWrapperCode(details), nil)
	}
	if jsonErr != nil {
		return nil, c.fail(status, "malformed response", jsonErr)
	}
	if code := errorWrapperCode(details); code != "" {
		return nil, c.fail(status, code, nil)
	}
	if code, _ := details["userError"].(string); restOutageCodes[code] {
		return nil, c.fail(status, code, nil)
	}

	valid, ok := details["isValid"].(bool)
	if !ok {
		return nil, c.fail(status, "malformed response: isValid missing", nil)
	}

	return &CheckResult{Valid: valid, Details: details}, nil
}

func (c *RESTClient) fail(status int, reason string, err error) *TransportError {
	return &TransportError{
		Binding:    BindingREST,
		Endpoint:   c.urlTemplate,
		StatusCode: status,
		Reason:     reason,
		Err:        err,
	}
}

// errorWrapperCode extracts the first code of a VIES
// {"actionSucceed":false,"errorWrappers":[{"error":"..."}]} payload.
func errorWrapperCode(details map[string]any) string {
	wrappers, _ := details["errorWrappers"].([]any)
	for _, w := range wrappers {
		if m, ok := w.(map[string]any); ok {
			if code, _ := m["error"].(string); code != "" {
				return code
			}
		}
	}
	return ""
}

// stripURL drops the *url.Error wrapper, whose message repeats the request
// URL and with it the VAT number.
func stripURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	return err
}

// errOrNil avoids handing a typed nil pointer to an error parameter.
func errOrNil(e *TransportError) error {
	if e == nil {
		return nil
	}
	return e
}
