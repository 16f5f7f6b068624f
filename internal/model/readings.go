package model

import "strconv"

// Field names double as the JSON keys of published payloads.
const (
	FieldTemperature = "temperature"
	FieldLight       = "light"
	FieldHumidity    = "humidity"
)

const (
	UnitCelsius = "C"
	UnitPercent = "%"
)

type Readings struct {
	Temperature float64 `json:"temperature"`
	Light       float64 `json:"light"`
	Humidity    float64 `json:"humidity"`
}

// FormatValue renders v in its shortest decimal form: 23.4, 45, -0.5.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
