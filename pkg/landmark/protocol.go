package landmark

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/MrCodeEU/livegate/pkg/face"
)

// Wire format, both directions: [uint32 BE length][payload].
//
// Request payload:  [uint32 BE header length][JSON header][PNG frame, detect only]
// Response payload: [status byte][JSON body]

const maxMessageSize = 64 << 20

const (
	opLoad   = "load"
	opDetect = "detect"

	statusOK    byte = 0
	statusError byte = 1
)

type request struct {
	Op          string `json:"op"`
	Model       string `json:"model,omitempty"`
	TimestampMs int64  `json:"ts,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

type response struct {
	Landmarks face.Landmarks `json:"landmarks,omitempty"`
	Message   string         `json:"message,omitempty"`
}

func writeMessage(w io.Writer, payload []byte) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(payload))); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readMessage(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	if n > maxMessageSize {
		return nil, fmt.Errorf("message of %d bytes exceeds limit", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func encodeRequest(req request, body []byte) ([]byte, error) {
	header, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, 4, 4+len(header)+len(body))
	binary.BigEndian.PutUint32(payload, uint32(len(header)))
	payload = append(payload, header...)
	return append(payload, body...), nil
}

func decodeRequest(payload []byte) (request, []byte, error) {
	var req request
	if len(payload) < 4 {
		return req, nil, fmt.Errorf("short request: %d bytes", len(payload))
	}
	n := binary.BigEndian.Uint32(payload)
	if int(n) > len(payload)-4 {
		return req, nil, fmt.Errorf("header length %d exceeds payload", n)
	}
	if err := json.Unmarshal(payload[4:4+n], &req); err != nil {
		return req, nil, err
	}
	return req, payload[4+n:], nil
}

func encodeResponse(status byte, resp response) ([]byte, error) {
	body, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append([]byte{status}, body...), nil
}

func decodeResponse(payload []byte) (response, error) {
	var resp response
	if len(payload) == 0 {
		return resp, fmt.Errorf("empty response")
	}
	if err := json.Unmarshal(payload[1:], &resp); err != nil {
		return resp, fmt.Errorf("malformed response: %w", err)
	}
	if payload[0] != statusOK {
		return resp, fmt.Errorf("%w: %s", ErrWorkerFailed, resp.Message)
	}
	return resp, nil
}
