package transport

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/tipshjalpen/resultat/internal/logger"
	"github.com/tipshjalpen/resultat/pkg/protocol"
)

// StreamTransport reads concatenated JSON-RPC requests from a reader and
// writes one response per line to a writer. Nothing else may write to the
// writer, so logs must go elsewhere.
type StreamTransport struct {
	dec *json.Decoder

	mu  sync.Mutex
	enc *json.Encoder
}

// NewStdioTransport creates a new transport that uses stdin/stdout
func NewStdioTransport() *StreamTransport {
	return NewStreamTransport(os.Stdin, os.Stdout)
}

func NewStreamTransport(r io.Reader, w io.Writer) *StreamTransport {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &StreamTransport{
		dec: json.NewDecoder(r),
		enc: enc,
	}
}

// ReadRequest blocks until the next complete JSON value arrives. It returns
// io.EOF when the client disconnects. A value that is valid JSON but not a
// valid request comes back as a *protocol.JsonRpcError so the caller can
// answer it and carry on; broken JSON is fatal because the stream cannot be
// resynchronised.
func (t *StreamTransport) ReadRequest() (*protocol.JsonRpcRequest, error) {
	logger.Debug("Waiting for request...")

	var raw json.RawMessage
	if err := t.dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			logger.Info("Received EOF, client disconnected")
			return nil, io.EOF
		}
		logger.Error("Error reading request:", err)
		return nil, err
	}
	logger.Debug("Received raw request:", string(raw))

	req, err := protocol.ParseJsonRpcRequest(raw)
	if err != nil {
		logger.Warn("Invalid JSON-RPC request:", err)
		return nil, &protocol.JsonRpcError{
			Code:    protocol.ErrInvalidRequest,
			Message: "Invalid request: " + err.Error(),
		}
	}
	return req, nil
}

// WriteResponse writes a response followed by a newline
func (t *StreamTransport) WriteResponse(response *protocol.JsonRpcResponse) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.enc.Encode(response); err != nil {
		logger.Error("Failed to write response:", err)
		return err
	}
	logger.Debug("Response sent", response.ID)
	return nil
}
