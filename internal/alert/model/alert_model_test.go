package model

import (
	"encoding/json"
	"testing"
)

func TestNewRecordStatus(t *testing.T) {
	e := NewAnomaly("x", nil)
	tests := []struct {
		name       string
		deliveries []Delivery
		expected   Status
	}{
		{name: "no_sink", deliveries: nil, expected: StatusNoSink},
		{name: "all_failed", deliveries: []Delivery{{Sink: "a", Error: "e"}, {Sink: "b", Error: "e"}}, expected: StatusFailed},
		{name: "one_delivered", deliveries: []Delivery{{Sink: "a", Error: "e"}, {Sink: "b"}}, expected: StatusDelivered},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := NewRecord(e, test.deliveries).Status; got != test.expected {
				t.Errorf("status, got: %v, expected: %v", got, test.expected)
			}
		})
	}
}

func TestDangerWireShape(t *testing.T) {
	e := NewDanger(7, 150.5, map[string]float64{"feature1": 800, "feature2": 10}, "capacity_linear", "danger")
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"eventType", "source", "predictionId", "predictionValue", "inputSummary", "modelName", "message"} {
		if _, ok := got[key]; !ok {
			t.Errorf("danger payload misses %q: %s", key, b)
		}
	}
	if got["eventType"] != "danger" || got["predictionId"] != float64(7) {
		t.Errorf("danger payload, got: %s", b)
	}

	anomaly, _ := json.Marshal(NewAnomaly("a", map[string]interface{}{"recent_avg": 180}))
	var a map[string]interface{}
	_ = json.Unmarshal(anomaly, &a)
	if _, ok := a["predictionId"]; ok {
		t.Errorf("anomaly payload must not carry a prediction id: %s", anomaly)
	}
}
