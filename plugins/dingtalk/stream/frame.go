package stream

import (
	"encoding/json"
	"strings"
	"time"
)

// Frame types sent by the gateway.
const (
	TypeSystem = "SYSTEM"
	TypeEvent  = "EVENT"
)

// Frame is one downstream message.
type Frame struct {
	SpecVersion string         `json:"specVersion"`
	Type        string         `json:"type"`
	Headers     map[string]any `json:"headers"`
	Data        string         `json:"data"`
}

func (f Frame) header(key string) string {
	s, _ := f.Headers[key].(string)
	return s
}

// Topic is the frame topic, e.g. "ping" for SYSTEM frames.
func (f Frame) Topic() string { return f.header("topic") }

func (f Frame) MessageID() string { return f.header("messageId") }

// Response is an upstream reply to a frame.
type Response struct {
	Code    int            `json:"code"`
	Headers map[string]any `json:"headers"`
	Message string         `json:"message"`
	Data    string         `json:"data"`
}

// Ack statuses.
const (
	StatusSuccess = "SUCCESS"
	StatusLater   = "LATER"
)

// pong echoes a SYSTEM ping.
func pong(f Frame) Response {
	return Response{Code: 200, Headers: f.Headers, Message: "OK", Data: f.Data}
}

// ack acknowledges an EVENT. LATER asks the gateway to redeliver.
func ack(messageID, status, message string) Response {
	body := map[string]any{"status": status}
	if message != "" {
		body["message"] = message
	}
	data, _ := json.Marshal(body)
	return Response{
		Code: 200,
		Headers: map[string]any{
			"contentType": "application/json",
			"messageId":   messageID,
		},
		Message: "OK",
		Data:    string(data),
	}
}

// EventPayload is the item emitted for an EVENT frame. data is the parsed
// JSON when it parses, the raw string otherwise.
func EventPayload(f Frame, receivedAt time.Time) map[string]any {
	return map[string]any{
		"type":        f.Type,
		"specVersion": f.SpecVersion,
		"headers":     f.Headers,
		"data":        parseData(f.Data),
		"rawData":     f.Data,
		"receivedAt":  receivedAt.UTC().Format(time.RFC3339Nano),
	}
}

func parseData(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw
	}
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return raw
	}
	return v
}
