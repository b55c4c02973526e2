// Package exchange implements the exchange orchestrator (C6) and the
// signer transport abstraction (A4) it calls through.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"rpow.dev/client/rpow"
)

// Status is the signer's self-reported operational summary, returned by
// GetStat and surfaced verbatim by the status command.
type Status struct {
	KeysGenerated uint64 `json:"keys_generated"`
	ExchangesDone uint64 `json:"exchanges_done"`
	Uptime        int64  `json:"uptime_seconds"`
}

// Signer is the remote collaborator every C6 exchange calls through. A
// single Exchange call is the atomic boundary with the server: conservation
// of value, double-spend detection, and signing all happen there.
type Signer interface {
	Exchange(ctx context.Context, ins, outs []int8) ([]rpow.Blob, error)
	GetKeys(ctx context.Context) ([]byte, error)
	GetStat(ctx context.Context) (Status, error)
}

// Client is the HTTP/JSON Signer implementation, POSTing to
// <addr>/exchange, /getkeys, /getstat with a bounded timeout and no
// built-in retry — retries are the caller's business, per C6's
// rollback-on-any-error contract.
type Client struct {
	addr string
	hc   *http.Client
}

// NewClient returns a Client targeting addr with the given request
// timeout.
func NewClient(addr string, timeout time.Duration) *Client {
	return &Client{
		addr: addr,
		hc:   &http.Client{Timeout: timeout},
	}
}

type exchangeRequest struct {
	Ins  []int8 `json:"ins"`
	Outs []int8 `json:"outs"`
}

type exchangeResponse struct {
	Blobs []wireBlob `json:"blobs"`
}

type wireBlob struct {
	Value       int8   `json:"value"`
	ID          []byte `json:"id"`
	IssuerKeyID []byte `json:"issuer_key_id"`
	Payload     []byte `json:"payload"`
}

func (c *Client) Exchange(ctx context.Context, ins, outs []int8) ([]rpow.Blob, error) {
	var resp exchangeResponse
	if err := c.postJSON(ctx, "/exchange", exchangeRequest{Ins: ins, Outs: outs}, &resp); err != nil {
		return nil, err
	}
	blobs := make([]rpow.Blob, len(resp.Blobs))
	for i, wb := range resp.Blobs {
		b := rpow.Blob{Value: wb.Value, ID: wb.ID, Payload: wb.Payload}
		copy(b.IssuerKeyID[:], wb.IssuerKeyID)
		blobs[i] = b
	}
	return blobs, nil
}

type getKeysResponse struct {
	PubKey []byte `json:"pubkey"`
}

func (c *Client) GetKeys(ctx context.Context) ([]byte, error) {
	var resp getKeysResponse
	if err := c.postJSON(ctx, "/getkeys", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return resp.PubKey, nil
}

func (c *Client) GetStat(ctx context.Context) (Status, error) {
	var resp Status
	if err := c.postJSON(ctx, "/getstat", struct{}{}, &resp); err != nil {
		return Status{}, err
	}
	return resp, nil
}

func (c *Client) postJSON(ctx context.Context, path string, reqBody, respBody any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("exchange: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.addr+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("exchange: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("exchange: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("exchange: %s: signer returned %d: %s", path, resp.StatusCode, msg)
	}
	if respBody == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("exchange: %s: decode response: %w", path, err)
	}
	return nil
}
