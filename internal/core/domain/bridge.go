package domain

import (
	"encoding/json"
	"strings"
)

// Bridge message tags understood by the controller.
const (
	TagRedirectToExternalPath = "redirectToExternalPath"
	TagNavigateBack           = "navigateBack"
)

// Keys read from inbound bridge payloads.
const (
	// FunctionKey carries the message tag.
	FunctionKey = "functionToExecute"
	// LegacyFunctionKey is the snake_case tag key sent by older web builds.
	LegacyFunctionKey = "function_to_execute"
	// RedirectURLKey carries the target of a redirectToExternalPath message.
	RedirectURLKey = "redirect_url"
)

// BridgeMessage is one decoded message from the embedded web surface.
//
// The set of variants is closed: RedirectToExternalPath, NavigateBack and
// UnknownMessage. New tags are added as new variants.
type BridgeMessage interface {
	// Tag returns the functionToExecute value the message was decoded from.
	Tag() string
	bridgeMessage()
}

// RedirectToExternalPath asks the host to leave the app for an external URL.
type RedirectToExternalPath struct {
	URL string
}

// Tag implements BridgeMessage.
func (RedirectToExternalPath) Tag() string { return TagRedirectToExternalPath }
func (RedirectToExternalPath) bridgeMessage() {}

// NavigateBack carries a back-navigation signal between the host and the web app.
type NavigateBack struct{}

// Tag implements BridgeMessage.
func (NavigateBack) Tag() string { return TagNavigateBack }
func (NavigateBack) bridgeMessage() {}

// UnknownMessage is any message whose tag the controller does not handle.
type UnknownMessage struct {
	FunctionToExecute string
	Payload           map[string]any
}

// Tag implements BridgeMessage.
func (m UnknownMessage) Tag() string { return m.FunctionToExecute }
func (UnknownMessage) bridgeMessage() {}

// Normalize turns a raw bridge payload into a structured JSON value.
//
// Text input (string, []byte, json.RawMessage) is parsed as JSON. Any other
// input is serialized and parsed back. When neither works the result is an
// empty object. Normalize never panics.
func Normalize(raw any) (v any) {
	defer func() {
		if recover() != nil {
			v = map[string]any{}
		}
	}()

	switch in := raw.(type) {
	case nil:
		return map[string]any{}
	case string:
		return parseOrEmpty([]byte(in))
	case []byte:
		return parseOrEmpty(in)
	case json.RawMessage:
		return parseOrEmpty(in)
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return map[string]any{}
	}
	return parseOrEmpty(data)
}

func parseOrEmpty(data []byte) any {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return map[string]any{}
	}
	return v
}

// DecodeBridgeMessage normalizes raw and maps it onto a BridgeMessage variant.
// Input that is not a JSON object decodes to an UnknownMessage with an empty tag.
func DecodeBridgeMessage(raw any) BridgeMessage {
	obj, ok := Normalize(raw).(map[string]any)
	if !ok {
		return UnknownMessage{Payload: map[string]any{}}
	}

	tag := stringField(obj, FunctionKey)
	if tag == "" {
		tag = stringField(obj, LegacyFunctionKey)
	}

	switch tag {
	case TagRedirectToExternalPath:
		return RedirectToExternalPath{URL: strings.TrimSpace(stringField(obj, RedirectURLKey))}
	case TagNavigateBack:
		return NavigateBack{}
	default:
		payload := make(map[string]any, len(obj))
		for k, v := range obj {
			if k == FunctionKey || k == LegacyFunctionKey {
				continue
			}
			payload[k] = v
		}
		return UnknownMessage{FunctionToExecute: tag, Payload: payload}
	}
}

// EncodeBridgeMessage serializes an outbound message for the web surface.
func EncodeBridgeMessage(msg BridgeMessage) ([]byte, error) {
	body := map[string]any{FunctionKey: msg.Tag()}
	switch m := msg.(type) {
	case RedirectToExternalPath:
		body[RedirectURLKey] = m.URL
	case UnknownMessage:
		for k, v := range m.Payload {
			body[k] = v
		}
	}
	return json.Marshal(body)
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}
