package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// RawEvent represents an unprocessed message from the query topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// QueryRequest is the wire form of an asynchronous chart query.
type QueryRequest struct {
	RequestID string   `json:"request_id"`
	Chart     string   `json:"chart"`
	Regions   []string `json:"regions"`
	Scale     string   `json:"scale,omitempty"`
}

// ParseQueryRequest decodes a RawEvent's value into a QueryRequest. When the
// payload has no request_id the message key is used instead.
func ParseQueryRequest(raw RawEvent) (QueryRequest, error) {
	var req QueryRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		return QueryRequest{}, fmt.Errorf("parse query request: %w", err)
	}
	if req.RequestID == "" {
		req.RequestID = string(raw.Key)
	}
	return req, nil
}

// Query validates the chart and scale names.
func (r QueryRequest) Query() (Query, error) {
	chart, err := ParseChartKind(r.Chart)
	if err != nil {
		return Query{}, err
	}
	scale, err := ParseScaleMode(r.Scale)
	if err != nil {
		return Query{}, err
	}
	return Query{Chart: chart, Regions: r.Regions, Scale: scale}, nil
}

// Response statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ErrorBody is the typed failure carried in an error response.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Region  string `json:"region,omitempty"`
	Message string `json:"message"`
}

// QueryResponse is the envelope returned for every query, over HTTP and Kafka.
type QueryResponse struct {
	RequestID  string     `json:"request_id,omitempty"`
	Status     string     `json:"status"`
	Result     *Result    `json:"result,omitempty"`
	Error      *ErrorBody `json:"error,omitempty"`
	ComputedAt time.Time  `json:"computed_at"`
}

// NewResponse wraps a computation outcome, stamping it with the package clock.
func NewResponse(requestID string, res Result, err error) QueryResponse {
	resp := QueryResponse{
		RequestID:  requestID,
		ComputedAt: clock.Now().UTC(),
	}
	if err != nil {
		resp.Status = StatusError
		resp.Error = &ErrorBody{
			Kind:    Kind(err),
			Region:  FailedRegion(err),
			Message: err.Error(),
		}
		return resp
	}
	resp.Status = StatusOK
	resp.Result = &res
	return resp
}

// SerializeResponse marshals a QueryResponse into an OutputEvent keyed by
// request ID.
func SerializeResponse(resp QueryResponse) (OutputEvent, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize response: %w", err)
	}

	headers := map[string]string{
		"status":      resp.Status,
		"computed_at": resp.ComputedAt.Format(time.RFC3339),
	}
	if resp.Result != nil {
		headers["chart"] = resp.Result.Chart.String()
	}
	if resp.Error != nil {
		headers["error_kind"] = resp.Error.Kind
	}

	return OutputEvent{
		Key:     []byte(resp.RequestID),
		Value:   data,
		Headers: headers,
	}, nil
}
