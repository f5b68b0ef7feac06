package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vbonduro/foodsurvey/internal/apperr"
	"github.com/vbonduro/foodsurvey/internal/domain"
	"github.com/vbonduro/foodsurvey/internal/store"
)

const (
	msgIncompleteData     = "Datos incompletos"
	msgRespondentNotFound = "Usuario no encontrado"
	msgEmailTaken         = "El email ya está registrado por otro usuario"
	msgSaveFailed         = "Error al guardar respuestas"
	msgReadFailed         = "Error al obtener respuestas"
	msgCatalogFailed      = "Error al obtener alimentos"
)

// transactor runs fn against stores bound to a single transaction.
type transactor interface {
	InTx(ctx context.Context, fn func(r *store.Repos) error) error
}

// respondentReader is the subset of store.RespondentStore the services read.
type respondentReader interface {
	GetByDNI(ctx context.Context, dni string) (*domain.Respondent, error)
}

// catalogReader is the subset of store.CatalogStore SurveyService requires.
type catalogReader interface {
	ListCategories(ctx context.Context) ([]*domain.FoodCategory, error)
	ListItems(ctx context.Context) ([]*domain.FoodItem, error)
}

// latestReader is the subset of store.ResponseStore SurveyService requires.
type latestReader interface {
	LatestForRespondent(ctx context.Context, respondentID int64) ([]*domain.AnswerRow, error)
}

type Options struct {
	// StrictFoodIDs rejects a whole submission when any answer references a
	// food that is not in the catalog. When false such answers are skipped.
	StrictFoodIDs bool
}

type SurveyService struct {
	tx          transactor
	respondents respondentReader
	catalog     catalogReader
	responses   latestReader
	opts        Options
	logger      *slog.Logger

	now   func() time.Time
	newID func() string
}

func NewSurveyService(
	tx transactor,
	respondents respondentReader,
	catalog catalogReader,
	responses latestReader,
	opts Options,
	logger *slog.Logger,
) *SurveyService {
	return &SurveyService{
		tx:          tx,
		respondents: respondents,
		catalog:     catalog,
		responses:   responses,
		opts:        opts,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// SubmitInput is one questionnaire as sent by a client. A nil Answers means
// the answers were omitted; an empty, non-nil slice is a valid submission.
type SubmitInput struct {
	DNI      string
	Apellido string
	Email    string
	Answers  []domain.Answer
}

type SubmitResult struct {
	SubmissionID   string
	SubmittedAt    time.Time
	Saved          int
	Skipped        int
	SkippedFoodIDs []int64
}

// Submit upserts the respondent and stores the resolved answers under a new
// submission id. Everything happens in one transaction: on any failure no
// row is written.
func (s *SurveyService) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	dni := strings.TrimSpace(in.DNI)
	apellido := strings.TrimSpace(in.Apellido)
	email := strings.TrimSpace(in.Email)
	if dni == "" || apellido == "" || email == "" || in.Answers == nil {
		return nil, apperr.Validation(msgIncompleteData)
	}

	result := &SubmitResult{
		SubmissionID:   s.newID(),
		SubmittedAt:    s.now().UTC(),
		SkippedFoodIDs: []int64{},
	}

	err := s.tx.InTx(ctx, func(r *store.Repos) error {
		respondent, err := r.Respondents.Upsert(ctx, dni, apellido, email, result.SubmittedAt)
		if err != nil {
			return err
		}

		ids := make([]int64, 0, len(in.Answers))
		for _, a := range in.Answers {
			if !slices.Contains(ids, a.FoodItemID) {
				ids = append(ids, a.FoodItemID)
			}
		}
		found, err := r.Catalog.ExistingItemIDs(ctx, ids)
		if err != nil {
			return err
		}

		resolved := make([]domain.Answer, 0, len(in.Answers))
		for _, a := range in.Answers {
			if !found[a.FoodItemID] {
				result.Skipped++
				if !slices.Contains(result.SkippedFoodIDs, a.FoodItemID) {
					result.SkippedFoodIDs = append(result.SkippedFoodIDs, a.FoodItemID)
				}
				continue
			}
			resolved = append(resolved, domain.Answer{
				FoodItemID:   a.FoodItemID,
				Quantity:     strings.TrimSpace(a.Quantity),
				Frequency:    strings.TrimSpace(a.Frequency),
				Observations: strings.TrimSpace(a.Observations),
			})
		}
		slices.Sort(result.SkippedFoodIDs)

		if result.Skipped > 0 && s.opts.StrictFoodIDs {
			return apperr.Validation("Alimentos inexistentes: " + joinIDs(result.SkippedFoodIDs))
		}

		if err := r.Responses.CreateBatch(ctx, respondent.ID, result.SubmissionID, result.SubmittedAt, resolved); err != nil {
			return err
		}
		result.Saved = len(resolved)
		return nil
	})
	if err != nil {
		return nil, s.submitError(err)
	}

	if result.Skipped > 0 {
		s.logger.Warn("submission skipped unknown foods",
			"submission_id", result.SubmissionID, "skipped", result.Skipped, "food_ids", result.SkippedFoodIDs)
	}
	s.logger.Info("submission saved", "submission_id", result.SubmissionID, "answers", result.Saved)
	return result, nil
}

func (s *SurveyService) submitError(err error) error {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, store.ErrEmailTaken):
		return apperr.Conflict(msgEmailTaken, err)
	default:
		return apperr.Persistence(msgSaveFailed, err)
	}
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}

// LatestSubmission is a respondent together with the answers of their most
// recent submission. SubmissionID is empty when the respondent has none.
type LatestSubmission struct {
	Respondent   *domain.Respondent
	SubmissionID string
	SubmittedAt  time.Time
	Answers      []*domain.AnswerRow
}

func (s *SurveyService) LatestSubmission(ctx context.Context, dni string) (*LatestSubmission, error) {
	respondent, err := findRespondent(ctx, s.respondents, dni)
	if err != nil {
		return nil, err
	}

	rows, err := s.responses.LatestForRespondent(ctx, respondent.ID)
	if err != nil {
		return nil, apperr.Persistence(msgReadFailed, err)
	}

	latest := &LatestSubmission{Respondent: respondent, Answers: rows}
	if len(rows) > 0 {
		latest.SubmissionID = rows[0].SubmissionID
		latest.SubmittedAt = rows[0].CreatedAt
	}
	return latest, nil
}

// findRespondent maps an unknown or blank dni to a not-found error.
func findRespondent(ctx context.Context, respondents respondentReader, dni string) (*domain.Respondent, error) {
	dni = strings.TrimSpace(dni)
	if dni == "" {
		return nil, apperr.NotFound(msgRespondentNotFound)
	}
	respondent, err := respondents.GetByDNI(ctx, dni)
	if err != nil {
		return nil, apperr.Persistence(msgReadFailed, err)
	}
	if respondent == nil {
		return nil, apperr.NotFound(msgRespondentNotFound)
	}
	return respondent, nil
}

// ListCatalog groups every food item by category. Categorized groups come in
// category id order; items without a category form a last group.
func (s *SurveyService) ListCatalog(ctx context.Context) ([]*domain.CatalogGroup, error) {
	categories, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return nil, apperr.Persistence(msgCatalogFailed, err)
	}
	items, err := s.catalog.ListItems(ctx)
	if err != nil {
		return nil, apperr.Persistence(msgCatalogFailed, err)
	}

	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	byKey := make(map[domain.CategoryKey]*domain.CatalogGroup)
	for _, item := range items {
		key := item.Category()
		group, ok := byKey[key]
		if !ok {
			group = &domain.CatalogGroup{Category: key, Name: domain.UncategorizedName}
			if id, ok := key.ID(); ok {
				group.Name = names[id]
			}
			byKey[key] = group
		}
		group.Items = append(group.Items, item)
	}

	groups := make([]*domain.CatalogGroup, 0, len(byKey))
	for _, g := range byKey {
		groups = append(groups, g)
	}
	slices.SortFunc(groups, func(a, b *domain.CatalogGroup) int {
		switch {
		case a.Category.Less(b.Category):
			return -1
		case b.Category.Less(a.Category):
			return 1
		}
		return 0
	})
	return groups, nil
}

