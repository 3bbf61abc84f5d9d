// stream.go parses the assistant's newline-delimited JSON event stream.
// Each line is a self-contained event; unknown event types are ignored.
package claude

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// streamEvent is the envelope shared by every event type. Only the fields
// relevant to the event's type are populated.
type streamEvent struct {
	Type    string `json:"type"`
	Message *struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message,omitempty"`

	// result events
	Usage *struct {
		InputTokens              int `json:"input_tokens"`
		OutputTokens             int `json:"output_tokens"`
		CacheReadInputTokens     int `json:"cache_read_input_tokens"`
		CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
	} `json:"usage,omitempty"`
	TotalCostUSD float64 `json:"total_cost_usd,omitempty"`
	CostUSD      float64 `json:"cost_usd,omitempty"`

	// control_request events
	RequestID string          `json:"request_id,omitempty"`
	Request   json.RawMessage `json:"request,omitempty"`
}

// ControlRequest is a permission prompt arriving inline in the stream
// when running permission-mediated.
type ControlRequest struct {
	RequestID string
	Request   json.RawMessage
}

// ControlResponse is the decision written back on the child's stdin.
type ControlResponse struct {
	Allow bool
	// Input optionally replaces the tool input the child proposed.
	Input json.RawMessage
}

// PermissionMediator decides control requests. AllowAll is the usual
// implementation outside tests.
type PermissionMediator interface {
	Decide(req ControlRequest) ControlResponse
}

// AllowAll approves every control request unchanged.
type AllowAll struct{}

// Decide implements PermissionMediator.
func (AllowAll) Decide(ControlRequest) ControlResponse { return ControlResponse{Allow: true} }

// controlResponseEnvelope is the wire form of a control response.
type controlResponseEnvelope struct {
	Type     string `json:"type"`
	Response struct {
		RequestID string          `json:"request_id"`
		Subtype   string          `json:"subtype"`
		Behavior  string          `json:"behavior"`
		Input     json.RawMessage `json:"updated_input,omitempty"`
	} `json:"response"`
}

// streamResult is what consumeStream harvested from one event stream.
type streamResult struct {
	Text  string
	Usage *Usage
}

// consumeStream reads NDJSON events from r until EOF, concatenating text
// deltas, forwarding them to onOutput, answering control requests on w,
// and collecting usage counters from result events.
func consumeStream(r io.Reader, w io.Writer, onOutput func(string), mediator PermissionMediator) (*streamResult, error) {
	var text strings.Builder
	var usage *Usage

	scanner := bufio.NewScanner(r)
	// Single events can be large; raise the line limit well past the
	// bufio default.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var ev streamEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			// Not an event; the assistant occasionally interleaves
			// plain diagnostics. Skip.
			continue
		}

		switch ev.Type {
		case "assistant":
			if ev.Message == nil {
				continue
			}
			for _, block := range ev.Message.Content {
				if block.Type != "text" || block.Text == "" {
					continue
				}
				text.WriteString(block.Text)
				if onOutput != nil {
					onOutput(block.Text)
				}
			}

		case "result":
			u := &Usage{CostUSD: ev.TotalCostUSD}
			if u.CostUSD == 0 {
				u.CostUSD = ev.CostUSD
			}
			if ev.Usage != nil {
				u.InputTokens = ev.Usage.InputTokens
				u.OutputTokens = ev.Usage.OutputTokens
				u.CacheReadTokens = ev.Usage.CacheReadInputTokens
				u.TotalTokens = ev.Usage.InputTokens + ev.Usage.OutputTokens +
					ev.Usage.CacheReadInputTokens + ev.Usage.CacheCreationInputTokens
			}
			usage = u

		case "control_request":
			if mediator == nil || w == nil {
				continue
			}
			resp := mediator.Decide(ControlRequest{RequestID: ev.RequestID, Request: ev.Request})
			if err := writeControlResponse(w, ev.RequestID, resp); err != nil {
				return nil, fmt.Errorf("answering control request %s: %w", ev.RequestID, err)
			}

		default:
			// Unknown event types are ignored by contract.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading event stream: %w", err)
	}

	return &streamResult{Text: text.String(), Usage: usage}, nil
}

// writeControlResponse serializes one control response as a single line
// on the child's stdin.
func writeControlResponse(w io.Writer, requestID string, resp ControlResponse) error {
	var env controlResponseEnvelope
	env.Type = "control_response"
	env.Response.RequestID = requestID
	env.Response.Subtype = "success"
	if resp.Allow {
		env.Response.Behavior = "allow"
	} else {
		env.Response.Behavior = "deny"
	}
	env.Response.Input = resp.Input

	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
