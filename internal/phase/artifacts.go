package phase

import (
	"github.com/thruflo/wreckit/internal/state"
	"github.com/thruflo/wreckit/internal/workflow"
)

// hasArtifacts reports whether a phase produces files that can stand in
// for running it. pr and complete do not and always execute.
func hasArtifacts(p workflow.Phase) bool {
	switch p {
	case workflow.PhaseResearch, workflow.PhasePlan, workflow.PhaseImplement:
		return true
	}
	return false
}

// artifactsPresent checks the phase's outputs on disk:
//
//	research   research.md
//	plan       plan.md and prd.json
//	implement  prd.json with every story done
//
// Phases without artifacts report true.
func (e *Engine) artifactsPresent(p workflow.Phase, id string) bool {
	switch p {
	case workflow.PhaseResearch:
		return e.store.HasArtifact(id, state.ResearchFileName)
	case workflow.PhasePlan:
		return e.store.HasArtifact(id, state.PlanFileName) && e.store.HasArtifact(id, state.PRDFileName)
	case workflow.PhaseImplement:
		prd, err := e.store.LoadPRD(id)
		if err != nil {
			e.log.Debug("ignoring unreadable prd", "item", id, "error", err)
			return false
		}
		return prd != nil && prd.AllStoriesDone()
	}
	return true
}
