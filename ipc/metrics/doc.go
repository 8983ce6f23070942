// Package metrics holds the process wide counters of the IPC system, backed by
// VictoriaMetrics/metrics. Counters are global so that every client and server in
// a process reports into the same set; WritePrometheus renders them for scraping.
package metrics
