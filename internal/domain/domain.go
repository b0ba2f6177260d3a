package domain

import (
	"github.com/yungbote/neurobridge-threads/internal/domain/threads"
)

type Facet = threads.Facet
type ThreadStatus = threads.ThreadStatus
type ChangeType = threads.ChangeType
type RotationStatus = threads.RotationStatus
type CourseMode = threads.CourseMode

type Thread = threads.Thread
type EvolutionNote = threads.EvolutionNote
type ThreadOccurrence = threads.ThreadOccurrence
type ThreadUpdate = threads.ThreadUpdate
type ThreadRotation = threads.ThreadRotation
type ThreadMetrics = threads.ThreadMetrics

const (
	FacetHow   = threads.FacetHow
	FacetWhat  = threads.FacetWhat
	FacetWhen  = threads.FacetWhen
	FacetWhere = threads.FacetWhere
	FacetWho   = threads.FacetWho
	FacetWhy   = threads.FacetWhy

	ThreadStatusFoundational = threads.ThreadStatusFoundational
	ThreadStatusAdvanced     = threads.ThreadStatusAdvanced
	ThreadStatusArchived     = threads.ThreadStatusArchived

	ChangeRefinement         = threads.ChangeRefinement
	ChangeContradiction      = threads.ChangeContradiction
	ChangeComplexityIncrease = threads.ChangeComplexityIncrease
	ChangeFaceShift          = threads.ChangeFaceShift
	ChangeStatusPromotion    = threads.ChangeStatusPromotion

	RotationInProgress    = threads.RotationInProgress
	RotationEquilibrium   = threads.RotationEquilibrium
	RotationCollapsed     = threads.RotationCollapsed
	RotationMaxIterations = threads.RotationMaxIterations
)

// AllModels lists every table owned by the thread engine, in migration order.
func AllModels() []any {
	return []any{
		&threads.Thread{},
		&threads.ThreadOccurrence{},
		&threads.ThreadUpdate{},
		&threads.ThreadRotation{},
		&threads.ThreadMetrics{},
	}
}
