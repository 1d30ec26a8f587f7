package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-exam-api/internal/models"
)

type mockBandsReader struct {
	bands []models.GradingBand
	err   error
	calls int
}

func (m *mockBandsReader) ListBySchool(_ context.Context, _ string) ([]models.GradingBand, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.bands, nil
}

func TestGradingResolveDefaultTable(t *testing.T) {
	svc := NewGradingService(&mockBandsReader{}, zap.NewNop())

	cases := []struct {
		percentage float64
		label      string
		point      float64
	}{
		{95, "A+", 10},
		{90, "A+", 10},
		{85, "A", 9},
		{75, "B", 8},
		{65, "C", 7},
		{55, "D", 6},
		{35, "E", 4},
		{34.99, "F", 0},
		{20, "F", 0},
		{0, "F", 0},
	}
	for _, tc := range cases {
		grade := svc.Resolve(context.Background(), "school-1", tc.percentage)
		assert.Equal(t, tc.label, grade.Label, "percentage %.2f", tc.percentage)
		assert.Equal(t, tc.point, grade.Point, "percentage %.2f", tc.percentage)
	}
}

func TestGradingResolveSchoolScaleWins(t *testing.T) {
	bands := &mockBandsReader{bands: []models.GradingBand{
		{MinScore: 85, MaxScore: 100, Label: "Distinction", Point: 10},
		{MinScore: 40, MaxScore: 84.99, Label: "Pass", Point: 6},
	}}
	svc := NewGradingService(bands, zap.NewNop())

	grade := svc.Resolve(context.Background(), "school-1", 88)
	assert.Equal(t, "Distinction", grade.Label)

	grade = svc.Resolve(context.Background(), "school-1", 50)
	assert.Equal(t, "Pass", grade.Label)
}

func TestGradingResolveOverlapPrefersHigherMinScore(t *testing.T) {
	// Bands arrive ordered by min_score descending, mirroring the repository.
	bands := &mockBandsReader{bands: []models.GradingBand{
		{MinScore: 80, MaxScore: 100, Label: "Honours", Point: 10},
		{MinScore: 60, MaxScore: 100, Label: "Merit", Point: 8},
	}}
	svc := NewGradingService(bands, zap.NewNop())

	grade := svc.Resolve(context.Background(), "school-1", 85)
	assert.Equal(t, "Honours", grade.Label)
}

func TestGradingResolveGapFallsThroughToDefault(t *testing.T) {
	bands := &mockBandsReader{bands: []models.GradingBand{
		{MinScore: 90, MaxScore: 100, Label: "Top", Point: 10},
	}}
	svc := NewGradingService(bands, zap.NewNop())

	grade := svc.Resolve(context.Background(), "school-1", 75)
	assert.Equal(t, "B", grade.Label)
	assert.Equal(t, 8.0, grade.Point)
}

func TestGradingResolveLookupFailureUsesDefault(t *testing.T) {
	bands := &mockBandsReader{err: errors.New("db down")}
	svc := NewGradingService(bands, zap.NewNop())

	grade := svc.Resolve(context.Background(), "school-1", 95)
	assert.Equal(t, "A+", grade.Label)
}
