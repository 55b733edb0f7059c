package models_test

import (
	"testing"

	"github.com/framerhq/framer/pkg/models"
)

// fullCoverageExceptRootCause builds a state with every section fully
// covered except root_cause, which stays at zero.
func fullCoverageExceptRootCause(frameType string) models.ConversationState {
	state := models.NewConversationState()
	state.FrameType = frameType
	for _, s := range models.FrameSections {
		state.SectionsCovered[s] = 1.0
	}
	state.SectionsCovered[models.SectionRootCause] = 0.0
	return state
}

func TestCoverageComplete_RootCauseOnlyGatesBugs(t *testing.T) {
	bug := fullCoverageExceptRootCause("bug")
	if bug.CoverageComplete() {
		t.Error("CoverageComplete() = true for bug with uncovered root_cause, want false")
	}

	feature := fullCoverageExceptRootCause("feature")
	if !feature.CoverageComplete() {
		t.Error("CoverageComplete() = false for feature, want true: root_cause does not apply")
	}
}

func TestCoverageComplete_UnsetTypeDefaultsToFeature(t *testing.T) {
	state := fullCoverageExceptRootCause("")
	if !state.CoverageComplete() {
		t.Error("CoverageComplete() = false for unset frame type, want feature-section behavior")
	}
}

func TestCoverageComplete_BelowThresholdSection(t *testing.T) {
	state := fullCoverageExceptRootCause("feature")
	state.SectionsCovered[models.SectionUserPerspective] = models.CoverageThreshold - 0.1
	if state.CoverageComplete() {
		t.Error("CoverageComplete() = true with a section below threshold, want false")
	}

	state.SectionsCovered[models.SectionUserPerspective] = models.CoverageThreshold
	if !state.CoverageComplete() {
		t.Error("CoverageComplete() = false with every section at threshold, want true")
	}
}

func TestApplicableSections(t *testing.T) {
	bug := models.ApplicableSections(models.FrameTypeBug)
	if len(bug) != len(models.FrameSections) {
		t.Errorf("ApplicableSections(bug) = %v, want every section", bug)
	}

	feature := models.ApplicableSections(models.FrameTypeFeature)
	if len(feature) != len(models.FrameSections)-1 {
		t.Fatalf("ApplicableSections(feature) = %v, want all but root_cause", feature)
	}
	for _, s := range feature {
		if s == models.SectionRootCause {
			t.Error("ApplicableSections(feature) contains root_cause")
		}
	}
}
