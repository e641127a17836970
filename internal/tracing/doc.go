// Package tracing wires OpenTelemetry export for member operations.
//
// NewProvider turns a Config into a tracer; member.Client spans every
// mutation and lookup under the "member." prefix. The "file" exporter
// writes JSONL records readable with jq.
package tracing
