package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Client talks to a running tokenizer server.
type Client struct {
	base *url.URL
	http *http.Client
}

func NewClient(host string) *Client {
	return &Client{
		base: &url.URL{Scheme: "http", Host: host},
		http: http.DefaultClient,
	}
}

func checkError(resp *http.Response, body []byte) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}

	apiError := StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	if err := json.Unmarshal(body, &apiError); err != nil {
		// server did not respond with a structured error
		apiError.ErrorMessage = string(body)
	}

	return apiError
}

func (c *Client) do(ctx context.Context, method, path string, reqData, respData any) error {
	var reqBody io.Reader
	if reqData != nil {
		data, err := json.Marshal(reqData)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), reqBody)
	if err != nil {
		return err
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := c.http.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := checkError(response, body); err != nil {
		return err
	}

	if respData != nil {
		if err := json.Unmarshal(body, respData); err != nil {
			return err
		}
	}

	return nil
}

func (c *Client) Tokenize(ctx context.Context, req *TokenizeRequest) (*TokenizeResponse, error) {
	var resp TokenizeResponse
	if err := c.do(ctx, http.MethodPost, "/api/tokenize", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Detokenize(ctx context.Context, req *DetokenizeRequest) (*DetokenizeResponse, error) {
	var resp DetokenizeResponse
	if err := c.do(ctx, http.MethodPost, "/api/detokenize", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) AddTokens(ctx context.Context, req *AddTokensRequest) (*AddTokensResponse, error) {
	var resp AddTokensResponse
	if err := c.do(ctx, http.MethodPost, "/api/tokens", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Vocab(ctx context.Context) (*VocabResponse, error) {
	var resp VocabResponse
	if err := c.do(ctx, http.MethodGet, "/api/vocab", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
