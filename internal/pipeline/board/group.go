package board

import (
	"github.com/google/uuid"

	funnelrepo "imobcrm_backend/internal/funnels/repository"
)

// Stage aliases the funnel stage shape.
type Stage = funnelrepo.Stage

// Bucket is one rendered column: a stage and its leads in input order.
type Bucket struct {
	Stage Stage
	Leads []Lead
}

// Group buckets leads by stage, in stage position order. A lead whose
// stage is not in the given list is omitted; that happens when a stage
// was deleted while leads still referenced it.
func Group(leads []Lead, stages []Stage) []Bucket {
	byStage := map[uuid.UUID]int{}
	buckets := make([]Bucket, len(stages))
	for i, stage := range stages {
		byStage[stage.ID] = i
		buckets[i] = Bucket{Stage: stage, Leads: []Lead{}}
	}

	for _, lead := range leads {
		if i, ok := byStage[lead.StageID]; ok {
			buckets[i].Leads = append(buckets[i].Leads, lead)
		}
	}
	return buckets
}
