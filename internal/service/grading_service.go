package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-api/internal/models"
)

type gradingBandsReader interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.GradingBand, error)
}

// GradingService maps percentages onto grade bands. Schools without a
// configured scale get the built-in default table.
type GradingService struct {
	bands  gradingBandsReader
	logger *zap.Logger
}

// NewGradingService constructs GradingService.
func NewGradingService(bands gradingBandsReader, logger *zap.Logger) *GradingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradingService{bands: bands, logger: logger}
}

// Resolve returns the grade for a percentage. School bands win when one
// contains the percentage; overlapping bands resolve to the highest
// min_score. Lookup failures fall through to the default table so grading
// never blocks result aggregation.
func (s *GradingService) Resolve(ctx context.Context, schoolID string, percentage float64) models.Grade {
	bands, err := s.bands.ListBySchool(ctx, schoolID)
	if err != nil {
		s.logger.Warn("grading scale lookup failed, using default table",
			zap.String("school_id", schoolID), zap.Error(err))
		return defaultGrade(percentage)
	}
	if len(bands) == 0 {
		return defaultGrade(percentage)
	}

	// Bands arrive ordered by min_score descending; the first containing
	// band is the most specific one.
	for _, band := range bands {
		if percentage >= band.MinScore && percentage <= band.MaxScore {
			return models.Grade{Label: band.Label, Point: band.Point}
		}
	}
	return defaultGrade(percentage)
}

// defaultGrade is the built-in band table. Schools with no custom scale
// depend on these exact cutoffs.
func defaultGrade(percentage float64) models.Grade {
	switch {
	case percentage >= 90:
		return models.Grade{Label: "A+", Point: 10}
	case percentage >= 80:
		return models.Grade{Label: "A", Point: 9}
	case percentage >= 70:
		return models.Grade{Label: "B", Point: 8}
	case percentage >= 60:
		return models.Grade{Label: "C", Point: 7}
	case percentage >= 50:
		return models.Grade{Label: "D", Point: 6}
	case percentage >= 35:
		return models.Grade{Label: "E", Point: 4}
	default:
		return models.Grade{Label: "F", Point: 0}
	}
}
