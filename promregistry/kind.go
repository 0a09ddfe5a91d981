package promregistry

import (
	"strconv"

	dto "github.com/prometheus/client_model/go"
)

// Kind selects the type of series created by Register.
type Kind int

// The supported series kinds.
const (
	Gauge Kind = iota
	Counter
	Histogram
	Summary
)

var kindNames = [...]string{
	Gauge:     "gauge",
	Counter:   "counter",
	Histogram: "histogram",
	Summary:   "summary",
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	return k >= Gauge && k <= Summary
}

func (k Kind) String() string {
	if !k.Valid() {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

func (k Kind) metricType() dto.MetricType {
	switch k {
	case Counter:
		return dto.MetricType_COUNTER
	case Histogram:
		return dto.MetricType_HISTOGRAM
	case Summary:
		return dto.MetricType_SUMMARY
	default:
		return dto.MetricType_GAUGE
	}
}
