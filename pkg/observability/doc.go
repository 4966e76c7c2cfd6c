/*
Package observability provides tools for monitoring the Switchboard engine.

Metrics is a controller observer that exports Prometheus counters and
histograms for every finished node; Handler serves them over HTTP.
*/
package observability
