// SPDX-License-Identifier: GPL-3.0-or-later

// Package metrics keeps the fixed set of health metrics the exporter
// publishes. The set never grows at runtime, every name is known up front
// and referencing anything else is a programming error.
package metrics

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mezorian/mail-health-exporter/domain"
)

const (
	SendInternalToExternalSuccessTotal     = "mail_health_exporter__send_internal_to_external_success_total"
	SendInternalToExternalFailuresTotal    = "mail_health_exporter__send_internal_to_external_failures_total"
	ReceiveInternalToExternalSuccessTotal  = "mail_health_exporter__receive_internal_to_external_success_total"
	ReceiveInternalToExternalFailuresTotal = "mail_health_exporter__receive_internal_to_external_failures_total"
	SendExternalToInternalSuccessTotal     = "mail_health_exporter__send_external_to_internal_success_total"
	SendExternalToInternalFailuresTotal    = "mail_health_exporter__send_external_to_internal_failures_total"
	ReceiveExternalToInternalSuccessTotal  = "mail_health_exporter__receive_external_to_internal_success_total"
	ReceiveExternalToInternalFailuresTotal = "mail_health_exporter__receive_external_to_internal_failures_total"
	SendingMailsWorking                    = "mail_health_exporter__sending_mails_working"
	ReceivingMailsWorking                  = "mail_health_exporter__receiving_mails_working"
	RoundtripDurationSeconds               = "mail_health_exporter__roundtrip_duration_seconds"
	LastSendReceiveCheckTimestamp          = "mail_health_exporter__last_send_receive_check_timestamp"
	SpamScore                              = "mail_health_exporter__spam_score"
	LastSpamScoreCheckTimestamp            = "mail_health_exporter__last_spam_score_check_timestamp"
)

type MetricType string

const (
	TypeCounter MetricType = "counter"
	TypeGauge   MetricType = "gauge"
)

type definition struct {
	name       string
	help       string
	metricType MetricType
}

// definitions fixes the exposition order.
var definitions = []definition{
	{SendInternalToExternalSuccessTotal, "Total successful mail sends from internal to external", TypeCounter},
	{SendInternalToExternalFailuresTotal, "Total failed mail sends from internal to external", TypeCounter},
	{ReceiveInternalToExternalSuccessTotal, "Total successful mail receives from internal to external", TypeCounter},
	{ReceiveInternalToExternalFailuresTotal, "Total failed mail receives from internal to external", TypeCounter},
	{SendExternalToInternalSuccessTotal, "Total successful mail sends from external to internal", TypeCounter},
	{SendExternalToInternalFailuresTotal, "Total failed mail sends from external to internal", TypeCounter},
	{ReceiveExternalToInternalSuccessTotal, "Total successful mail receives from external to internal", TypeCounter},
	{ReceiveExternalToInternalFailuresTotal, "Total failed mail receives from external to internal", TypeCounter},
	{SendingMailsWorking, "Status whether the server is able to send mails or not", TypeGauge},
	{ReceivingMailsWorking, "Status whether the server is able to receive mails or not", TypeGauge},
	{RoundtripDurationSeconds, "Duration of last full internal->external->internal mail roundtrip", TypeGauge},
	{LastSendReceiveCheckTimestamp, "Timestamp of last send-receive check", TypeGauge},
	{SpamScore, "Spam score of send mails", TypeGauge},
	{LastSpamScoreCheckTimestamp, "Timestamp of last spam-score check", TypeGauge},
}

// Metric is one sample of the fixed set, either a counter or a gauge
// depending on Type.
type Metric struct {
	Name    string
	Help    string
	Type    MetricType
	Counter uint64
	Gauge   float64
}

// Value renders the sample the way the text exposition format expects it,
// counters as plain integers and gauges as shortest-form floats.
func (m Metric) Value() string {
	if m.Type == TypeCounter {
		return strconv.FormatUint(m.Counter, 10)
	}

	return strconv.FormatFloat(m.Gauge, 'f', -1, 64)
}

// StatusData is the registry state the status page needs.
type StatusData struct {
	SendingWorks         bool
	ReceivingWorks       bool
	SpamScore            float64
	SendReceiveCheckedAt float64
	SpamCheckedAt        float64
}

// Registry holds the current values of all metrics. It is safe for
// concurrent use, writers come from the probe loops and readers from the
// http handlers.
type Registry struct {
	mutex    sync.RWMutex
	counters map[string]uint64
	gauges   map[string]float64
}

// NewRegistry initializes all metrics. Counters start at zero, the working
// gauges start optimistic at 1 and the check timestamps start at now so the
// page never shows a zero date before the first probe completes.
func NewRegistry(now time.Time) *Registry {
	r := &Registry{
		counters: map[string]uint64{},
		gauges:   map[string]float64{},
	}
	for _, d := range definitions {
		switch d.metricType {
		case TypeCounter:
			r.counters[d.name] = 0
		case TypeGauge:
			r.gauges[d.name] = 0
		}
	}

	r.gauges[SendingMailsWorking] = 1
	r.gauges[ReceivingMailsWorking] = 1
	start := UnixSeconds(now)
	r.gauges[LastSendReceiveCheckTimestamp] = start
	r.gauges[LastSpamScoreCheckTimestamp] = start

	return r
}

// Increment adds one to a counter. Counters only ever go up.
func (r *Registry) Increment(name string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.counters[name]; !ok {
		panic(fmt.Sprintf("unknown counter %q", name))
	}
	r.counters[name]++
}

// SetGauge replaces a gauge value.
func (r *Registry) SetGauge(name string, value float64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.setGauge(name, value)
}

// SetGaugePair replaces a gauge and its companion timestamp under one lock
// so readers never see a value without its matching check time.
func (r *Registry) SetGaugePair(name string, value float64, timestampName string, at time.Time) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.setGauge(name, value)
	r.setGauge(timestampName, UnixSeconds(at))
}

func (r *Registry) setGauge(name string, value float64) {
	if _, ok := r.gauges[name]; !ok {
		panic(fmt.Sprintf("unknown gauge %q", name))
	}
	r.gauges[name] = value
}

// Snapshot returns a consistent copy of all metrics in exposition order.
func (r *Registry) Snapshot() []Metric {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	snapshot := make([]Metric, 0, len(definitions))
	for _, d := range definitions {
		metric := Metric{Name: d.name, Help: d.help, Type: d.metricType}
		switch d.metricType {
		case TypeCounter:
			metric.Counter = r.counters[d.name]
		case TypeGauge:
			metric.Gauge = r.gauges[d.name]
		}
		snapshot = append(snapshot, metric)
	}

	return snapshot
}

// Exposition renders all metrics in the Prometheus text format.
func (r *Registry) Exposition() string {
	builder := &strings.Builder{}
	for _, metric := range r.Snapshot() {
		fmt.Fprintf(builder, "# HELP %s %s\n", metric.Name, metric.Help)
		fmt.Fprintf(builder, "# TYPE %s %s\n", metric.Name, metric.Type)
		fmt.Fprintf(builder, "%s %s\n", metric.Name, metric.Value())
	}

	return builder.String()
}

// Status returns the subset of the registry the status page renders.
func (r *Registry) Status() StatusData {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return StatusData{
		SendingWorks:         r.gauges[SendingMailsWorking] > 0,
		ReceivingWorks:       r.gauges[ReceivingMailsWorking] > 0,
		SpamScore:            r.gauges[SpamScore],
		SendReceiveCheckedAt: r.gauges[LastSendReceiveCheckTimestamp],
		SpamCheckedAt:        r.gauges[LastSpamScoreCheckTimestamp],
	}
}

// UnixSeconds converts a time to the fractional epoch seconds the
// timestamp gauges expose.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// SendCounter names the counter to bump for a send attempt.
func SendCounter(direction domain.Direction, success bool) string {
	switch direction {
	case domain.InternalToExternal:
		if success {
			return SendInternalToExternalSuccessTotal
		}
		return SendInternalToExternalFailuresTotal
	case domain.ExternalToInternal:
		if success {
			return SendExternalToInternalSuccessTotal
		}
		return SendExternalToInternalFailuresTotal
	}

	panic(fmt.Sprintf("unknown direction %q", direction))
}

// ReceiveCounter names the counter to bump for a receive attempt.
func ReceiveCounter(direction domain.Direction, success bool) string {
	switch direction {
	case domain.InternalToExternal:
		if success {
			return ReceiveInternalToExternalSuccessTotal
		}
		return ReceiveInternalToExternalFailuresTotal
	case domain.ExternalToInternal:
		if success {
			return ReceiveExternalToInternalSuccessTotal
		}
		return ReceiveExternalToInternalFailuresTotal
	}

	panic(fmt.Sprintf("unknown direction %q", direction))
}
