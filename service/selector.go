package service

import (
	"fmt"
	"sort"

	"github.com/TIANLI0/TissueKit/model"
)

// SelectBest picks the highest-confidence detection across all classes.
// Classes are scanned in ascending id order and ties keep the first hit.
func SelectBest(detections model.Detections) (model.Detection, error) {
	classes := make([]int, 0, len(detections))
	for cls := range detections {
		classes = append(classes, cls)
	}
	sort.Ints(classes)

	var best model.Detection
	found := false
	for _, cls := range classes {
		for _, box := range detections[cls] {
			if !found || box.Confidence > best.Confidence {
				best = model.Detection{ClassID: cls, Confidence: box.Confidence, BBox: box.BBox}
				found = true
			}
		}
	}

	if !found {
		return model.Detection{}, fmt.Errorf("%w: detector returned %d classes and no boxes", ErrNoDetection, len(detections))
	}
	return best, nil
}

// BestMask returns the highest-scoring segmenter candidate, first on ties.
func BestMask(candidates []model.MaskCandidate) (model.BinaryMask, error) {
	if len(candidates) == 0 {
		return model.BinaryMask{}, fmt.Errorf("%w: segmenter returned no masks", ErrNoDetection)
	}
	best := 0
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Score > candidates[best].Score {
			best = i
		}
	}
	return candidates[best].Mask, nil
}
