// Package observability exports pipeline metrics through OpenTelemetry and a
// Prometheus scrape handler.
package observability

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"face-pipeline/internal/models"
)

// Attribute keys
const (
	attrProfile = "profile"
	attrStatus  = "status"
	attrSuccess = "success"
)

func profileAttr(p models.Profile) attribute.KeyValue {
	return attribute.String(attrProfile, p.String())
}

func statusAttr(s models.JobStatus) attribute.KeyValue {
	if s == "" {
		s = "UNKNOWN"
	}
	return attribute.String(attrStatus, s.String())
}

func successAttr(success bool) attribute.KeyValue {
	return attribute.Bool(attrSuccess, success)
}

// WithProfile returns a metric option with the profile attribute.
func WithProfile(p models.Profile) metric.MeasurementOption {
	return metric.WithAttributes(profileAttr(p))
}
