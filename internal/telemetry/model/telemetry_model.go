package model

import "time"

type Label string

const (
	LabelNormal  Label = "normal"
	LabelAnomaly Label = "anomaly"
)

func (l Label) Valid() bool {
	return l == LabelNormal || l == LabelAnomaly
}

// Sensor is the static description of one sensor mounted on a piece of equipment.
type Sensor struct {
	ID          int64    `json:"id"`
	EquipmentID string   `json:"equipment_id"`
	Name        string   `json:"sensor_name"`
	Type        string   `json:"sensor_type"`
	Location    string   `json:"location,omitempty"`
	Unit        string   `json:"unit,omitempty"`
	NormalMin   *float64 `json:"normal_min,omitempty"`
	NormalMax   *float64 `json:"normal_max,omitempty"`
}

type Reading struct {
	ID         uint64                 `json:"id"`
	SensorID   int64                  `json:"sensor_id"`
	RecordedAt time.Time              `json:"recorded_at"`
	Value      float64                `json:"value"`
	Label      Label                  `json:"label"`
	Meta       map[string]interface{} `json:"meta,omitempty"`
}

// JoinedReading is a reading together with the metadata of its sensor.
type JoinedReading struct {
	Reading
	EquipmentID string   `json:"equipment_id"`
	SensorName  string   `json:"sensor_name"`
	SensorType  string   `json:"sensor_type"`
	Unit        string   `json:"unit,omitempty"`
	NormalMin   *float64 `json:"normal_min,omitempty"`
	NormalMax   *float64 `json:"normal_max,omitempty"`
}

func Join(r Reading, s Sensor) JoinedReading {
	return JoinedReading{
		Reading:     r,
		EquipmentID: s.EquipmentID,
		SensorName:  s.Name,
		SensorType:  s.Type,
		Unit:        s.Unit,
		NormalMin:   s.NormalMin,
		NormalMax:   s.NormalMax,
	}
}

// Query filters telemetry reads. EquipmentID takes precedence over SensorID;
// zero values mean no filter.
type Query struct {
	EquipmentID string
	SensorID    int64
	Limit       int
}
