package service

import (
	"context"
	"log/slog"

	"github.com/vbonduro/foodsurvey/internal/apperr"
	"github.com/vbonduro/foodsurvey/internal/domain"
)

const (
	msgStatsFailed  = "Error al obtener estadísticas"
	msgExportFailed = "Error al exportar respuestas"
)

// reportRepository is the subset of store.ResponseStore that ReportService
// requires.
type reportRepository interface {
	LatestForRespondent(ctx context.Context, respondentID int64) ([]*domain.AnswerRow, error)
	LatestForAll(ctx context.Context) ([]*domain.AnswerRow, error)
	TopFoods(ctx context.Context) ([]*domain.FoodCount, error)
	FrequencyByFood(ctx context.Context) ([]*domain.FoodFrequencyCount, error)
	ByCategory(ctx context.Context) ([]*domain.CategoryFrequencyCount, error)
}

// ReportService answers read-only questions across respondents. Aggregates
// count every stored answer, history included; row listings only use each
// respondent's latest submission.
type ReportService struct {
	respondents respondentReader
	responses   reportRepository
	logger      *slog.Logger
}

func NewReportService(respondents respondentReader, responses reportRepository, logger *slog.Logger) *ReportService {
	return &ReportService{
		respondents: respondents,
		responses:   responses,
		logger:      logger,
	}
}

func (s *ReportService) TopFoods(ctx context.Context) ([]*domain.FoodCount, error) {
	counts, err := s.responses.TopFoods(ctx)
	if err != nil {
		return nil, apperr.Persistence(msgStatsFailed, err)
	}
	return counts, nil
}

func (s *ReportService) FrequencyByFood(ctx context.Context) ([]*domain.FoodFrequencyCount, error) {
	counts, err := s.responses.FrequencyByFood(ctx)
	if err != nil {
		return nil, apperr.Persistence(msgStatsFailed, err)
	}
	return counts, nil
}

// ByCategory labels the uncategorized bucket with domain.UncategorizedName.
func (s *ReportService) ByCategory(ctx context.Context) ([]*domain.CategoryFrequencyCount, error) {
	counts, err := s.responses.ByCategory(ctx)
	if err != nil {
		return nil, apperr.Persistence(msgStatsFailed, err)
	}
	for _, c := range counts {
		if !c.Category.IsCategorized() {
			c.CategoryName = domain.UncategorizedName
		}
	}
	return counts, nil
}

// RespondentRows returns the flattened latest submission of one respondent.
func (s *ReportService) RespondentRows(ctx context.Context, dni string) ([]*domain.AnswerRow, error) {
	respondent, err := findRespondent(ctx, s.respondents, dni)
	if err != nil {
		return nil, err
	}
	rows, err := s.responses.LatestForRespondent(ctx, respondent.ID)
	if err != nil {
		return nil, apperr.Persistence(msgStatsFailed, err)
	}
	return rows, nil
}

// ExportRows returns the latest submission of every respondent, ordered by
// dni and then food name.
func (s *ReportService) ExportRows(ctx context.Context) ([]*domain.AnswerRow, error) {
	rows, err := s.responses.LatestForAll(ctx)
	if err != nil {
		return nil, apperr.Persistence(msgExportFailed, err)
	}
	s.logger.Debug("export rows loaded", "rows", len(rows))
	return rows, nil
}
