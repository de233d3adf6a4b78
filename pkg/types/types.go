package types

import (
	"maps"
	"time"
)

// IntegrationRequest is produced by a trigger when it fires. It is treated as
// immutable; WithBuildValues returns a copy.
type IntegrationRequest struct {
	BuildCondition BuildCondition    `json:"buildCondition"`
	SourceName     string            `json:"sourceName"`
	BuildValues    map[string]string `json:"buildValues,omitempty"`
}

// NewIntegrationRequest creates a request without build values.
func NewIntegrationRequest(condition BuildCondition, source string) *IntegrationRequest {
	return &IntegrationRequest{BuildCondition: condition, SourceName: source}
}

// WithBuildValues returns a copy of r whose BuildValues hold values merged
// over any values r already carries.
func (r IntegrationRequest) WithBuildValues(values map[string]string) *IntegrationRequest {
	out := r
	out.BuildValues = make(map[string]string, len(r.BuildValues)+len(values))
	maps.Copy(out.BuildValues, r.BuildValues)
	maps.Copy(out.BuildValues, values)
	return &out
}

// ProjectStatus is a point-in-time snapshot of a project as reported by a
// build server. It is also the JSON wire format of GET /api/projects.
type ProjectStatus struct {
	Name          string            `json:"name"`
	BuildStatus   IntegrationStatus `json:"buildStatus"`
	LastBuildDate time.Time         `json:"lastBuildDate"`
	Activity      ProjectActivity   `json:"activity,omitempty"`
	NextBuildTime time.Time         `json:"nextBuildTime,omitempty"`
	LastSource    string            `json:"lastSource,omitempty"`
	LastBuildID   string            `json:"lastBuildId,omitempty"`
}
