package testutil

import "github.com/thruflo/wreckit/internal/state"

// ScenarioIDs are three items whose sorted order is the order given here.
var ScenarioIDs = []string{"bugs/001-first", "features/001-first", "features/002-second"}

// SampleResearch is a minimal research.md.
const SampleResearch = `# Research

## Relevant code

- internal/server/handler.go

## Risks

None identified.
`

// SamplePlan is a minimal plan.md.
const SamplePlan = `# Plan

1. Add the handler
2. Add tests
`

// SamplePRD returns prd.json content for id with two stories. When allDone
// is true both stories are done.
func SamplePRD(id string, allDone bool) *state.PRD {
	status := state.StoryPending
	if allDone {
		status = state.StoryDone
	}
	return &state.PRD{
		SchemaVersion: 1,
		ID:            id,
		UserStories: []state.Story{
			{ID: "US-001", Title: "Add the handler", Status: state.StoryDone},
			{ID: "US-002", Title: "Add tests", Status: status},
		},
	}
}
