// Package types defines the public domain types for the buildwatch build trigger engine.
package types

import (
	"fmt"
	"strings"
)

// BuildCondition is the reason class attached to a fired integration request.
type BuildCondition string

// BuildCondition values. The zero value is treated as NoBuild.
const (
	NoBuild              BuildCondition = "NoBuild"
	IfModificationExists BuildCondition = "IfModificationExists"
	ForceBuild           BuildCondition = "ForceBuild"
)

// ParseBuildCondition accepts the canonical names case-insensitively.
// An empty string yields def.
func ParseBuildCondition(s string, def BuildCondition) (BuildCondition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def, nil
	case "nobuild":
		return NoBuild, nil
	case "ifmodificationexists":
		return IfModificationExists, nil
	case "forcebuild":
		return ForceBuild, nil
	default:
		return "", fmt.Errorf("unknown build condition %q", s)
	}
}

// IntegrationStatus is the outcome of a build.
type IntegrationStatus string

// IntegrationStatus values.
const (
	StatusUnknown   IntegrationStatus = "Unknown"
	StatusSuccess   IntegrationStatus = "Success"
	StatusFailure   IntegrationStatus = "Failure"
	StatusException IntegrationStatus = "Exception"
	StatusCancelled IntegrationStatus = "Cancelled"
)

// ParseIntegrationStatus accepts the canonical names case-insensitively.
// An empty string yields StatusSuccess, the usual dependency target.
func ParseIntegrationStatus(s string) (IntegrationStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "success":
		return StatusSuccess, nil
	case "unknown":
		return StatusUnknown, nil
	case "failure":
		return StatusFailure, nil
	case "exception":
		return StatusException, nil
	case "cancelled":
		return StatusCancelled, nil
	default:
		return "", fmt.Errorf("unknown integration status %q", s)
	}
}

// Operator combines the children of a multiple trigger.
type Operator string

// Operator values. Or is the default.
const (
	OperatorOr  Operator = "Or"
	OperatorAnd Operator = "And"
)

// ParseOperator accepts "and"/"or" case-insensitively; empty means Or.
func ParseOperator(s string) (Operator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "or":
		return OperatorOr, nil
	case "and":
		return OperatorAnd, nil
	default:
		return "", fmt.Errorf("unknown operator %q", s)
	}
}

// ProjectActivity is what a project's integrator is doing right now.
type ProjectActivity string

// ProjectActivity values.
const (
	ActivitySleeping ProjectActivity = "Sleeping"
	ActivityPending  ProjectActivity = "Pending"
	ActivityBuilding ProjectActivity = "Building"
)

// TriggerType names a trigger variant in configuration.
type TriggerType string

// TriggerType values enumerate the supported trigger variants.
const (
	TriggerInterval  TriggerType = "interval"
	TriggerSchedule  TriggerType = "schedule"
	TriggerCron      TriggerType = "cron"
	TriggerURL       TriggerType = "url"
	TriggerFilter    TriggerType = "filter"
	TriggerParameter TriggerType = "parameter"
	TriggerRollUp    TriggerType = "rollup"
	TriggerMultiple  TriggerType = "multiple"
	TriggerProject   TriggerType = "project"
)

// PipelineType defines how a fired request is handed to the build pipeline.
type PipelineType string

// PipelineType values.
const (
	PipelineCommand PipelineType = "command"
	PipelineHTTP    PipelineType = "http"
	PipelineSFN     PipelineType = "stepfunctions"
)

// FailureCategory classifies why a remote call failed.
type FailureCategory string

const (
	FailureTransient FailureCategory = "TRANSIENT"
	FailurePermanent FailureCategory = "PERMANENT"
	FailureTimeout   FailureCategory = "TIMEOUT"
)
