package deploy

import (
	"time"

	"github.com/miradorstack/mirador-remediate/internal/models"
)

// Stage is one rollout step: push this traffic share, then hold and watch.
type Stage struct {
	TrafficPercent int
	Hold           time.Duration
}

// Strategy expands a fix plan into ordered rollout stages.
type Strategy interface {
	Name() models.DeploymentStrategy
	Stages(plan models.FixPlan) []Stage
}

// StrategyFor resolves a plan's strategy to a rollout implementation.
// Unknown strategies degrade to blue/green, the most conservative automated
// path.
func StrategyFor(name models.DeploymentStrategy, canaryHold time.Duration, rollingBatches int) Strategy {
	switch name {
	case models.StrategyImmediate:
		return immediateStrategy{}
	case models.StrategyCanary:
		return canaryStrategy{hold: canaryHold}
	case models.StrategyRolling:
		return rollingStrategy{batches: rollingBatches, hold: canaryHold}
	default:
		return blueGreenStrategy{hold: canaryHold}
	}
}

type immediateStrategy struct{}

func (immediateStrategy) Name() models.DeploymentStrategy { return models.StrategyImmediate }

func (immediateStrategy) Stages(models.FixPlan) []Stage {
	return []Stage{{TrafficPercent: 100}}
}

type blueGreenStrategy struct {
	hold time.Duration
}

func (blueGreenStrategy) Name() models.DeploymentStrategy { return models.StrategyBlueGreen }

// Stages stands the fix up on the idle colour first, then cuts traffic over.
func (s blueGreenStrategy) Stages(models.FixPlan) []Stage {
	return []Stage{
		{TrafficPercent: 0, Hold: s.hold},
		{TrafficPercent: 100},
	}
}

type canaryStrategy struct {
	hold time.Duration
}

func (canaryStrategy) Name() models.DeploymentStrategy { return models.StrategyCanary }

func (s canaryStrategy) Stages(plan models.FixPlan) []Stage {
	slice := plan.TrafficPercent
	if slice <= 0 || slice >= 100 {
		slice = 25
	}
	return []Stage{
		{TrafficPercent: slice, Hold: s.hold},
		{TrafficPercent: 100},
	}
}

type rollingStrategy struct {
	batches int
	hold    time.Duration
}

func (rollingStrategy) Name() models.DeploymentStrategy { return models.StrategyRolling }

func (s rollingStrategy) Stages(models.FixPlan) []Stage {
	batches := s.batches
	if batches < 2 {
		batches = 4
	}
	stages := make([]Stage, 0, batches)
	for i := 1; i <= batches; i++ {
		stage := Stage{TrafficPercent: i * 100 / batches}
		if i < batches {
			stage.Hold = s.hold
		}
		stages = append(stages, stage)
	}
	return stages
}
