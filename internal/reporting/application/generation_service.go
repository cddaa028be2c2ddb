package application

import (
	"context"
	"fmt"

	"github.com/sngm3741/avero-reporting/api/internal/reporting/domain"
)

// NewGenerator returns the generator for report.
func NewGenerator(report domain.ReportType, deps GeneratorDeps) (Generator, error) {
	switch report {
	case domain.ReportEGS:
		return newGenerator(deps, egsProducer{reader: deps.Reader}), nil
	case domain.ReportFCP:
		return newGenerator(deps, fcpProducer{reader: deps.Reader}), nil
	case domain.ReportLCP:
		return newGenerator(deps, lcpProducer{reader: deps.Reader}), nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrInvalidReportType, report)
}

// GenerationService is the entry point used by the CLI and the admin trigger.
type GenerationService interface {
	GenerateAll(ctx context.Context) ([]RunStats, error)
	Generate(ctx context.Context, report domain.ReportType) (RunStats, error)
}

type generationService struct {
	generators map[domain.ReportType]Generator
}

// NewGenerationService builds one generator per report type.
func NewGenerationService(deps GeneratorDeps) (GenerationService, error) {
	generators := make(map[domain.ReportType]Generator, len(domain.ReportTypes))
	for _, report := range domain.ReportTypes {
		g, err := NewGenerator(report, deps)
		if err != nil {
			return nil, err
		}
		generators[report] = g
	}
	return &generationService{generators: generators}, nil
}

// GenerateAll runs EGS, FCP and LCP one after another and stops at the first failure.
func (s *generationService) GenerateAll(ctx context.Context) ([]RunStats, error) {
	results := make([]RunStats, 0, len(domain.ReportTypes))
	for _, report := range domain.ReportTypes {
		stats, err := s.Generate(ctx, report)
		if err != nil {
			return results, err
		}
		results = append(results, stats)
	}
	return results, nil
}

func (s *generationService) Generate(ctx context.Context, report domain.ReportType) (RunStats, error) {
	g, ok := s.generators[report]
	if !ok {
		return RunStats{}, fmt.Errorf("%w: %q", domain.ErrInvalidReportType, report)
	}
	return g.Generate(ctx)
}
