package outbox

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	appoutbox "staybook/internal/app/outbox"
)

const defaultSource = "app://staybook"

// Envelope is an outbox record claimed for delivery.
type Envelope struct {
	appoutbox.EventRecord
	Attempts int
}

// CloudEvent wraps a record payload in a CloudEvents 1.0 JSON envelope and
// returns the transport headers that go with it.
func CloudEvent(rec appoutbox.EventRecord, source string) ([]byte, map[string]string, error) {
	if source == "" {
		source = defaultSource
	}
	data := map[string]any{}
	if err := json.Unmarshal(rec.Payload, &data); err != nil {
		return nil, nil, err
	}
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              rec.ID,
		"type":            rec.Name + ".v1",
		"source":          source,
		"subject":         rec.Aggregate,
		"time":            rec.OccurredAt.UTC().Format(time.RFC3339Nano),
		"datacontenttype": "application/json",
		"data":            data,
	}
	if evt["id"] == "" {
		evt["id"] = uuid.NewString()
	}
	if trace, ok := rec.Headers["traceparent"]; ok {
		evt["traceparent"] = trace
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{
		"content-type": "application/cloudevents+json",
		"ce-type":      rec.Name,
	}
	for k, v := range rec.Headers {
		headers[k] = v
	}
	return payload, headers, nil
}

// TopicFor maps "booking.confirmed" to "<prefix>booking.events.v1".
func TopicFor(prefix, name string) string {
	base := name
	if idx := strings.IndexRune(name, '.'); idx > 0 {
		base = name[:idx]
	}
	return prefix + base + ".events.v1"
}

type cloudEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Subject string          `json:"subject"`
	Time    time.Time       `json:"time"`
	Data    json.RawMessage `json:"data"`
}

// ParseCloudEvent reverses CloudEvent for in-process consumers.
func ParseCloudEvent(payload []byte) (appoutbox.EventRecord, error) {
	var ce cloudEvent
	if err := json.Unmarshal(payload, &ce); err != nil {
		return appoutbox.EventRecord{}, err
	}
	return appoutbox.EventRecord{
		ID:         ce.ID,
		Name:       strings.TrimSuffix(ce.Type, ".v1"),
		Payload:    ce.Data,
		OccurredAt: ce.Time,
		Aggregate:  ce.Subject,
		Headers:    map[string]string{},
	}, nil
}
