package main

import (
	"strconv"

	ebs "github.com/caarlos0/homekit-ebs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var armStateGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace:   "homekit_ebs",
	Subsystem:   "alarm",
	Name:        "state",
	Help:        "HomeKit current state of the security system",
	ConstLabels: map[string]string{},
})

var partitionStateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace:   "homekit_ebs",
	Subsystem:   "partition",
	Name:        "state",
	Help:        "Vendor state code of the partition",
	ConstLabels: map[string]string{},
}, []string{"number", "name"})

var partitionArmedGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace:   "homekit_ebs",
	Subsystem:   "partition",
	Name:        "armed",
	Help:        "",
	ConstLabels: map[string]string{},
}, []string{"number", "name"})

var requestCounter = promauto.NewCounter(prometheus.CounterOpts{
	Namespace:   "homekit_ebs",
	Subsystem:   "client",
	Name:        "requests_total",
	Help:        "",
	ConstLabels: map[string]string{},
})

var requestErrorCounter = promauto.NewCounter(prometheus.CounterOpts{
	Namespace:   "homekit_ebs",
	Subsystem:   "client",
	Name:        "request_errors_total",
	Help:        "",
	ConstLabels: map[string]string{},
})

func observePartitions(partitions []ebs.Partition) {
	for _, part := range partitions {
		number := strconv.Itoa(part.Number)
		partitionStateGauge.WithLabelValues(number, part.Name).Set(float64(part.State))
		partitionArmedGauge.WithLabelValues(number, part.Name).Set(boolToFloat(part.State.Armed()))
	}
}
