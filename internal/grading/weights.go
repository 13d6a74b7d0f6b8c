// Package grading holds the pure computation core: weighted composites,
// class-wide aggregation, and exam rankings. Nothing here performs I/O;
// every function is re-entrant over whatever snapshot it is handed.
package grading

import "github.com/classmark/classmark-api/internal/models"

// Weights is the fixed per-subject multiplier table for the composite
// score. Essay carries no weight and never contributes.
var Weights = map[models.Subject]int{
	models.SubjectChinese: 5,
	models.SubjectMath:    4,
	models.SubjectEnglish: 3,
	models.SubjectScience: 3,
	models.SubjectSocial:  3,
}

// WeightedSubjects lists the weighted subjects in display order.
var WeightedSubjects = []models.Subject{
	models.SubjectChinese,
	models.SubjectMath,
	models.SubjectEnglish,
	models.SubjectScience,
	models.SubjectSocial,
}

// WeightedAverage computes the composite score over the weighted subjects
// present in the input. Absent subjects are skipped, not zeroed. Returns 0
// when no weighted subject is present.
func WeightedAverage(scores map[models.Subject]int) float64 {
	numerator := 0
	denominator := 0
	for _, subject := range WeightedSubjects {
		score, ok := scores[subject]
		if !ok {
			continue
		}
		weight := Weights[subject]
		numerator += score * weight
		denominator += weight
	}
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}

// weightedAverageFloat applies the weight table to real-valued inputs,
// used for the class composite over per-subject means.
func weightedAverageFloat(values map[models.Subject]float64) float64 {
	numerator := 0.0
	denominator := 0
	for _, subject := range WeightedSubjects {
		value, ok := values[subject]
		if !ok {
			continue
		}
		weight := Weights[subject]
		numerator += value * float64(weight)
		denominator += weight
	}
	if denominator == 0 {
		return 0
	}
	return numerator / float64(denominator)
}
