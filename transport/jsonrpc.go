package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

func newRequest(id uint64, method string, params []any) jsonRPCRequest {
	if params == nil {
		params = []any{}
	}
	return jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}
}

// jsonRPCMessage is any frame the remote side sends: a response when ID is
// set and Method is empty, a notification when Method is set.
type jsonRPCMessage struct {
	ID     *uint64         `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

func (m *jsonRPCMessage) isResponse() bool {
	return m.ID != nil && m.Method == ""
}

func (m *jsonRPCMessage) isNotification() bool {
	return m.Method != ""
}

type notificationParams struct {
	Subscription json.RawMessage `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

// subscriptionKey normalizes a subscription id, which nodes send either as a
// string or as a number.
func subscriptionKey(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", fmt.Errorf("empty subscription id")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("parse subscription id: %w", err)
		}
		if s == "" {
			return "", fmt.Errorf("empty subscription id")
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("parse subscription id: %w", err)
	}
	return n.String(), nil
}

// IsNull reports whether a call result is absent or JSON null.
func IsNull(result json.RawMessage) bool {
	result = bytes.TrimSpace(result)
	return len(result) == 0 || bytes.Equal(result, []byte("null"))
}
