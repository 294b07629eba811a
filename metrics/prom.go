// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

// Package metrics backs ledger.MetricsSink with Prometheus vectors,
// grounded on the registry's metrics.go promauto idiom.
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var ledgerEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ledgerscp_entries_total",
	Help: "Total ledger entries created/modified/deleted, by entry type and mutation kind.",
}, []string{"entry_type", "mutation"})

var slotsExternalizedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ledgerscp_slots_externalized_total",
	Help: "Total consensus slots reaching Externalize.",
}, []string{"node_id"})

var txApplyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ledgerscp_tx_apply_total",
	Help: "Total transaction apply attempts by result code.",
}, []string{"code"})

// PromSink implements ledger.MetricsSink by routing every IncCounter
// call into the ledgerEntriesTotal vector when parts has the
// {"ledger", entryType, mutation} shape markMeters produces, and into
// the txApplyTotal vector for every {"op", ...} call, labelled by the
// remaining parts joined with ":". Calls of any other shape are not
// recorded.
type PromSink struct{}

func (PromSink) IncCounter(parts ...string) {
	switch {
	case len(parts) == 3 && parts[0] == "ledger":
		ledgerEntriesTotal.WithLabelValues(parts[1], parts[2]).Inc()
	case len(parts) >= 3 && parts[0] == "op":
		txApplyTotal.WithLabelValues(strings.Join(parts[1:], ":")).Inc()
	}
}

// RecordExternalize records one slot reaching Externalize for nodeID.
func RecordExternalize(nodeID string) {
	slotsExternalizedTotal.WithLabelValues(nodeID).Inc()
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler { return promhttp.Handler() }
