package model

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTypeDanger  EventType = "danger"
	EventTypeAnomaly EventType = "anomaly"
	EventTypeDrift   EventType = "drift"
)

// Source identifies this service in outbound payloads.
const Source = "pqm"

// Event is the outbound alert payload.
type Event struct {
	ID              uuid.UUID              `json:"id"`
	EventType       EventType              `json:"eventType"`
	Source          string                 `json:"source"`
	PredictionID    *uint64                `json:"predictionId,omitempty"`
	PredictionValue *float64               `json:"predictionValue,omitempty"`
	InputSummary    map[string]float64     `json:"inputSummary,omitempty"`
	ModelName       string                 `json:"modelName,omitempty"`
	Message         string                 `json:"message"`
	Payload         map[string]interface{} `json:"payload,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
}

func newEvent(t EventType, message string, payload map[string]interface{}) Event {
	return Event{
		ID:        uuid.New(),
		EventType: t,
		Source:    Source,
		Message:   message,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
}

// NewDanger describes a recorded prediction that fell below the danger threshold.
func NewDanger(predictionID uint64, value float64, inputSummary map[string]float64, modelName, message string) Event {
	e := newEvent(EventTypeDanger, message, nil)
	e.PredictionID = &predictionID
	e.PredictionValue = &value
	e.InputSummary = inputSummary
	e.ModelName = modelName
	return e
}

func NewAnomaly(message string, payload map[string]interface{}) Event {
	return newEvent(EventTypeAnomaly, message, payload)
}

func NewDrift(message string, payload map[string]interface{}) Event {
	return newEvent(EventTypeDrift, message, payload)
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusInFlight  Status = "in_flight"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusNoSink    Status = "no_sink"
)

// Delivery is the outcome of sending an event to one sink.
type Delivery struct {
	Sink  string `json:"sink"`
	Error string `json:"error,omitempty"`
}

// Record is a journaled event together with how its delivery went.
type Record struct {
	Event      Event      `json:"event"`
	Status     Status     `json:"status"`
	Deliveries []Delivery `json:"deliveries,omitempty"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func NewRecord(e Event, deliveries []Delivery) Record {
	r := Record{Event: e, Deliveries: deliveries, UpdatedAt: time.Now().UTC()}
	switch {
	case len(deliveries) == 0:
		r.Status = StatusNoSink
	default:
		r.Status = StatusFailed
		for _, d := range deliveries {
			if d.Error == "" {
				r.Status = StatusDelivered
				break
			}
		}
	}
	return r
}

// NewPending journals e before any sink has been tried.
func NewPending(e Event) Record {
	return Record{Event: e, Status: StatusPending, UpdatedAt: time.Now().UTC()}
}

// NewInFlight journals e while its sinks are being tried.
func NewInFlight(e Event) Record {
	return Record{Event: e, Status: StatusInFlight, UpdatedAt: time.Now().UTC()}
}

// Interrupted closes a record whose delivery never finished. The event is not
// sent again.
func Interrupted(r Record) Record {
	r.Status = StatusFailed
	r.Deliveries = append(r.Deliveries, Delivery{Error: "delivery interrupted before completion"})
	r.UpdatedAt = time.Now().UTC()
	return r
}
