// Package client calls the relay API from Go: one-shot AI endpoints, ndjson
// chat streams and the snapshot reads.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/akio-byte/navaltutka/internal/relay"
	"github.com/akio-byte/navaltutka/internal/snapshot"
)

// ClientRequestID marks envelopes synthesized here because the relay could
// not be reached or answered with something that is not an envelope.
const ClientRequestID = "client-err"

type Endpoint string

const (
	EndpointChat    Endpoint = "chat"
	EndpointBrief   Endpoint = "brief"
	EndpointHorizon Endpoint = "horizon"
	EndpointReport  Endpoint = "report"
	EndpointRank    Endpoint = "rank"
)

// Response is the relay envelope with a typed payload.
type Response[T any] struct {
	OK        bool       `json:"ok"`
	RequestID string     `json:"requestId"`
	Data      T          `json:"data"`
	Code      relay.Code `json:"code,omitempty"`
	Message   string     `json:"message,omitempty"`
	Warning   string     `json:"warning,omitempty"`
}

// Succeeded reports whether the response may be cached.
func (r Response[T]) Succeeded() bool {
	return r.OK
}

func fetchError[T any](err error) Response[T] {
	return Response[T]{
		OK:        false,
		RequestID: ClientRequestID,
		Code:      relay.CodeFetchError,
		Message:   err.Error(),
	}
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New returns a client for the relay at baseURL. A zero timeout leaves calls
// bounded only by their context, which streams need.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.http.Do(req)
}

// Call posts payload to /api/ai/{endpoint}. It never returns an error: any
// failure to get an envelope back becomes a FETCH_ERROR response.
func Call[T any](ctx context.Context, c *Client, endpoint Endpoint, payload any) Response[T] {
	resp, err := c.post(ctx, "/api/ai/"+string(endpoint), payload)
	if err != nil {
		c.logger.Debug("relay unreachable", zap.String("endpoint", string(endpoint)), zap.Error(err))
		return fetchError[T](err)
	}
	defer resp.Body.Close()

	var out Response[T]
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fetchError[T](fmt.Errorf("decode %s response (status %d): %w", endpoint, resp.StatusCode, err))
	}
	return out
}

// ChatTurn is one prior exchange sent as history.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Message      string     `json:"message"`
	Context      string     `json:"context,omitempty"`
	ContextRef   string     `json:"contextRef,omitempty"`
	HistoryDelta []ChatTurn `json:"historyDelta,omitempty"`
	Stream       bool       `json:"stream,omitempty"`
}

// StreamResult is the terminal record of a chat stream plus any warning the
// relay attached in the response header.
type StreamResult struct {
	Terminal relay.Record
	Warning  string
}

var ErrStreamTruncated = errors.New("stream ended without a terminal record")

// ChatStream posts a streaming chat request and calls onChunk for every text
// fragment in order. Non-stream replies (setup failures) come back as an
// error built from their envelope.
func (c *Client) ChatStream(ctx context.Context, req ChatRequest, onChunk func(string)) (StreamResult, error) {
	req.Stream = true
	resp, err := c.post(ctx, "/api/ai/chat", req)
	if err != nil {
		return StreamResult{}, err
	}
	defer resp.Body.Close()

	if !strings.HasPrefix(resp.Header.Get("Content-Type"), relay.ContentTypeNDJSON) {
		var env Response[string]
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return StreamResult{}, fmt.Errorf("unexpected chat response (status %d): %w", resp.StatusCode, err)
		}
		return StreamResult{}, &EnvelopeError{Code: env.Code, Message: env.Message, RequestID: env.RequestID}
	}

	res := StreamResult{Warning: resp.Header.Get("X-Relay-Warning")}
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec relay.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return res, fmt.Errorf("decode stream record: %w", err)
		}
		switch rec.Type {
		case relay.RecordChunk:
			if onChunk != nil {
				onChunk(rec.Text)
			}
		case relay.RecordDone, relay.RecordError:
			res.Terminal = rec
			return res, nil
		}
	}
	if err := sc.Err(); err != nil {
		return res, err
	}
	return res, ErrStreamTruncated
}

// EnvelopeError is a failure envelope returned where a stream was expected.
type EnvelopeError struct {
	Code      relay.Code
	Message   string
	RequestID string
}

func (e *EnvelopeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Snapshot fetches the current dataset.
func (c *Client) Snapshot(ctx context.Context) (*snapshot.Data, error) {
	body, err := c.get(ctx, "/api/snapshot")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var data snapshot.Data
	if err := json.NewDecoder(body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &data, nil
}

// BriefExport fetches the markdown digest.
func (c *Client) BriefExport(ctx context.Context) (string, error) {
	body, err := c.get(ctx, "/api/brief")
	if err != nil {
		return "", err
	}
	defer body.Close()

	md, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read brief: %w", err)
	}
	return string(md), nil
}

func (c *Client) get(ctx context.Context, path string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return resp.Body, nil
}
