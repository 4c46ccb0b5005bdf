package nsmhandler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	nsmclient "github.com/nitrosim/nsm-simulator/client"
	"github.com/nitrosim/nsm-simulator/nsm"
)

// Client speaks to a served NSM session over HTTP. It mirrors the handler's
// routes and translates error responses back into the engine's sentinel
// errors using the device code header, so remote callers can match with
// errors.Is exactly as local ones do.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a client for the given server base URL. A nil httpClient
// falls back to http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpClient}
}

// Describe fetches the module metadata record.
func (c *Client) Describe() (nsmclient.Description, error) {
	var description nsmclient.Description
	body, err := c.do(http.MethodGet, "/api/nsm/describe", nil)
	if err != nil {
		return description, err
	}
	if err := json.Unmarshal(body, &description); err != nil {
		return description, fmt.Errorf("could not parse describe response: %w", err)
	}
	return description, nil
}

// GetRandom fetches length pseudo-random bytes.
func (c *Client) GetRandom(length int) ([]byte, error) {
	return c.do(http.MethodGet, fmt.Sprintf("/api/nsm/random/%d", length), nil)
}

// BankDigest fetches the attestation digest over the register bank.
func (c *Client) BankDigest() ([]byte, error) {
	return c.do(http.MethodGet, "/api/nsm/digest", nil)
}

// Attest requests an attestation document bound to the given fields.
func (c *Client) Attest(req nsmclient.AttestationRequest) (*nsmclient.AttestationDocument, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("could not serialize attestation request: %w", err)
	}
	body, err := c.do(http.MethodPost, "/api/nsm/attestation", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	var doc nsmclient.AttestationDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("could not parse attestation document: %w", err)
	}
	return &doc, nil
}

// DescribePCR fetches the typed state of one register.
func (c *Client) DescribePCR(slot uint32) (nsmclient.PCRValue, error) {
	var value nsmclient.PCRValue
	body, err := c.do(http.MethodGet, fmt.Sprintf("/api/nsm/pcr/%d", slot), nil)
	if err != nil {
		return value, err
	}
	if err := json.Unmarshal(body, &value); err != nil {
		return value, fmt.Errorf("could not parse pcr response: %w", err)
	}
	return value, nil
}

// ExtendPCR folds data into a register and returns its new state.
func (c *Client) ExtendPCR(slot uint32, data []byte) (nsmclient.PCRValue, error) {
	var value nsmclient.PCRValue
	body, err := c.do(http.MethodPost, fmt.Sprintf("/api/nsm/pcr/%d/extend", slot), bytes.NewReader(data))
	if err != nil {
		return value, err
	}
	if err := json.Unmarshal(body, &value); err != nil {
		return value, fmt.Errorf("could not parse pcr response: %w", err)
	}
	return value, nil
}

// LockPCR locks a single register.
func (c *Client) LockPCR(slot uint32) error {
	_, err := c.do(http.MethodPost, fmt.Sprintf("/api/nsm/pcr/%d/lock", slot), nil)
	return err
}

// LockPCRs locks every register below limit.
func (c *Client) LockPCRs(limit uint32) error {
	_, err := c.do(http.MethodPost, fmt.Sprintf("/api/nsm/pcr/lock-range/%d", limit), nil)
	return err
}

// SetCertificate stores an opaque blob in a certificate slot.
func (c *Client) SetCertificate(slot uint32, certificate []byte) error {
	_, err := c.do(http.MethodPut, fmt.Sprintf("/api/nsm/certificate/%d", slot), bytes.NewReader(certificate))
	return err
}

// DescribeCertificate fetches the blob stored in a certificate slot.
func (c *Client) DescribeCertificate(slot uint32) ([]byte, error) {
	return c.do(http.MethodGet, fmt.Sprintf("/api/nsm/certificate/%d", slot), nil)
}

// RemoveCertificate empties a certificate slot.
func (c *Client) RemoveCertificate(slot uint32) error {
	_, err := c.do(http.MethodDelete, fmt.Sprintf("/api/nsm/certificate/%d", slot), nil)
	return err
}

func (c *Client) do(method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequest(method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("could not initialize request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request nsm: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read nsm response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(resp, respBody)
	}
	return respBody, nil
}

func errorFromResponse(resp *http.Response, body []byte) error {
	message := strings.TrimSpace(string(body))
	if raw := resp.Header.Get(ErrorCodeHeader); raw != "" {
		if code, err := strconv.Atoi(raw); err == nil {
			if sentinel := sentinelForCode(nsm.Code(code)); sentinel != nil {
				return fmt.Errorf("nsm returned %d (%s): %w", resp.StatusCode, message, sentinel)
			}
		}
	}
	return fmt.Errorf("nsm returned %d: %s", resp.StatusCode, message)
}

func sentinelForCode(code nsm.Code) error {
	switch code {
	case nsm.CodeInvalidSlot:
		return nsm.ErrInvalidSlot
	case nsm.CodeLocked:
		return nsm.ErrLocked
	case nsm.CodeInvalidLength:
		return nsm.ErrInvalidLength
	case nsm.CodeCertMissing:
		return nsm.ErrCertMissing
	case nsm.CodeNoMemory:
		return nsm.ErrNoMemory
	case nsm.CodeClosed:
		return nsm.ErrClosed
	default:
		return nil
	}
}
