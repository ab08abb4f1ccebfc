package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultObservePort = 7643

// localClient talks to the observe API of a running agent.
type localClient struct {
	base  string
	httpc *http.Client
}

func newLocalClient(port int) *localClient {
	if port <= 0 {
		port = defaultObservePort
	}
	return &localClient{
		base:  fmt.Sprintf("http://127.0.0.1:%d", port),
		httpc: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *localClient) get(path string, v any) error {
	resp, err := c.httpc.Get(c.base + path)
	if err != nil {
		return fmt.Errorf("is the agent running? %w", err)
	}
	return decodeLocal(resp, v)
}

func (c *localClient) post(path string, body, v any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	resp, err := c.httpc.Post(c.base+path, "application/json", reader)
	if err != nil {
		return fmt.Errorf("is the agent running? %w", err)
	}
	return decodeLocal(resp, v)
}

func decodeLocal(resp *http.Response, v any) error {
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("agent returned status %d", resp.StatusCode)
	}
	if v == nil {
		return nil
	}
	return json.Unmarshal(data, v)
}
