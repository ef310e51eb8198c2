// Package lifecycle classifies where a sound sits in its popularity curve.
// Stages are recomputed from scratch on every pass.
package lifecycle

import (
	"github.com/okian/trendetl/internal/domain/model"
)

// EmergingMaxHistory is the longest history still treated as emerging.
const EmergingMaxHistory = 3

// MainstreamPeak is the peak usage above which a declining sound is
// labelled mainstream.
const MainstreamPeak = 100_000

// Classify returns the stage for the given inputs.
func Classify(peakDate, latestDate string, v7, v14 float64, historyLength int) model.Stage {
	atPeak := peakDate == latestDate
	switch {
	case atPeak && v7 > 0:
		if v7 > v14 {
			return model.StageGrowing
		}
		return model.StagePeaking
	case !atPeak:
		return model.StageDeclining
	case historyLength <= EmergingMaxHistory:
		return model.StageEmerging
	default:
		return model.StageStable
	}
}

// SocialTier derives the social-context label from a stage.
func SocialTier(stage model.Stage, peakUsage int64) model.Tier {
	switch stage {
	case model.StageGrowing:
		return model.TierGrowing
	case model.StagePeaking:
		return model.TierPeaking
	case model.StageDeclining:
		if peakUsage > MainstreamPeak {
			return model.TierMainstream
		}
		return model.TierDeclining
	default:
		return model.TierDeclining
	}
}

// Of classifies a sound from its current stats.
func Of(s *model.Sound, latestDate string, historyLength int) model.Lifecycle {
	stage := Classify(s.Stats.PeakDate, latestDate, s.Stats.GrowthVelocity7d, s.Stats.GrowthVelocity14d, historyLength)
	return model.Lifecycle{Stage: stage, SocialTier: SocialTier(stage, s.Stats.PeakUsage)}
}
