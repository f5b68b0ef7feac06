package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vbonduro/foodsurvey/internal/domain"
)

type ResponseStore struct {
	db Querier
}

func NewResponseStore(db Querier) *ResponseStore {
	return &ResponseStore{db: db}
}

// CreateBatch stores answers as one submission. Callers wanting all-or-nothing
// semantics must run it inside Store.InTx.
func (s *ResponseStore) CreateBatch(ctx context.Context, respondentID int64, submissionID string, at time.Time, answers []domain.Answer) error {
	for _, a := range answers {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO food_responses
				(respondent_id, food_item_id, quantity, frequency, observations, submission_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, respondentID, a.FoodItemID, a.Quantity, a.Frequency,
			sql.NullString{String: a.Observations, Valid: a.Observations != ""},
			submissionID, at)
		if err != nil {
			return fmt.Errorf("failed to create response for food %d: %w", a.FoodItemID, err)
		}
	}
	return nil
}

// ListBySubmission returns the raw rows of one submission in insertion order.
func (s *ResponseStore) ListBySubmission(ctx context.Context, submissionID string) (responses []*domain.FoodResponse, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, respondent_id, food_item_id, quantity, frequency, COALESCE(observations, ''), submission_id, created_at
		FROM food_responses WHERE submission_id = ? ORDER BY id ASC
	`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}
	defer closeRows(rows, &err)

	for rows.Next() {
		r := &domain.FoodResponse{}
		if err := rows.Scan(&r.ID, &r.RespondentID, &r.FoodItemID, &r.Quantity, &r.Frequency, &r.Observations, &r.SubmissionID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		responses = append(responses, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating responses: %w", err)
	}

	return responses, nil
}

// latestSubmissionFilter keeps only the rows of each respondent's most recent
// submission. Recency is created_at, then id for rows stamped in the same
// instant.
const latestSubmissionFilter = `
	fr.submission_id = (
		SELECT latest.submission_id FROM food_responses latest
		WHERE latest.respondent_id = fr.respondent_id
		ORDER BY latest.created_at DESC, latest.id DESC
		LIMIT 1
	)`

const selectAnswerRow = `
	SELECT r.id, r.dni, r.apellido,
	       fi.id, fi.name, fc.id, COALESCE(fc.name, ''),
	       fr.quantity, fi.grams, fr.frequency, COALESCE(fr.observations, ''),
	       fr.submission_id, fr.created_at
	FROM food_responses fr
	JOIN respondents r     ON r.id = fr.respondent_id
	JOIN food_items fi     ON fi.id = fr.food_item_id
	LEFT JOIN food_categories fc ON fc.id = fi.category_id`

// LatestForRespondent returns the answers of the respondent's most recent
// submission ordered by food name. Empty when the respondent has none.
func (s *ResponseStore) LatestForRespondent(ctx context.Context, respondentID int64) ([]*domain.AnswerRow, error) {
	return s.queryAnswerRows(ctx, selectAnswerRow+`
		WHERE fr.respondent_id = ? AND `+latestSubmissionFilter+`
		ORDER BY fi.name ASC, fr.id ASC
	`, respondentID)
}

// LatestForAll returns the most recent submission of every respondent,
// ordered by respondent dni and food name.
func (s *ResponseStore) LatestForAll(ctx context.Context) ([]*domain.AnswerRow, error) {
	return s.queryAnswerRows(ctx, selectAnswerRow+`
		WHERE `+latestSubmissionFilter+`
		ORDER BY r.dni ASC, fi.name ASC, fr.id ASC
	`)
}

func (s *ResponseStore) queryAnswerRows(ctx context.Context, query string, args ...any) (out []*domain.AnswerRow, err error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query answers: %w", err)
	}
	defer closeRows(rows, &err)

	for rows.Next() {
		a := &domain.AnswerRow{}
		var categoryID sql.NullInt64
		var grams sql.NullFloat64
		if err := rows.Scan(
			&a.RespondentID, &a.RespondentDNI, &a.RespondentName,
			&a.FoodItemID, &a.FoodName, &categoryID, &a.CategoryName,
			&a.Quantity, &grams, &a.Frequency, &a.Observations,
			&a.SubmissionID, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		if categoryID.Valid {
			a.Category = domain.Categorized(categoryID.Int64)
		}
		if grams.Valid {
			a.Grams = &grams.Float64
		}
		out = append(out, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating answers: %w", err)
	}

	return out, nil
}

// TopFoods counts answers per food across all submissions, most answered
// first.
func (s *ResponseStore) TopFoods(ctx context.Context) (out []*domain.FoodCount, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fi.name, COUNT(*) AS total
		FROM food_responses fr
		JOIN food_items fi ON fi.id = fr.food_item_id
		GROUP BY fi.id, fi.name
		ORDER BY total DESC, fi.name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count foods: %w", err)
	}
	defer closeRows(rows, &err)

	for rows.Next() {
		c := &domain.FoodCount{}
		if err := rows.Scan(&c.Food, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan food count: %w", err)
		}
		out = append(out, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating food counts: %w", err)
	}

	return out, nil
}

// FrequencyByFood counts answers per (food, frequency).
func (s *ResponseStore) FrequencyByFood(ctx context.Context) (out []*domain.FoodFrequencyCount, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fi.name, fr.frequency, COUNT(*)
		FROM food_responses fr
		JOIN food_items fi ON fi.id = fr.food_item_id
		GROUP BY fi.id, fi.name, fr.frequency
		ORDER BY fi.name ASC, fr.frequency ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count frequencies: %w", err)
	}
	defer closeRows(rows, &err)

	for rows.Next() {
		c := &domain.FoodFrequencyCount{}
		if err := rows.Scan(&c.Food, &c.Frequency, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan frequency count: %w", err)
		}
		out = append(out, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating frequency counts: %w", err)
	}

	return out, nil
}

// ByCategory counts answers per (category, frequency). Items without a
// category are counted under Uncategorized, listed after every category.
func (s *ResponseStore) ByCategory(ctx context.Context) (out []*domain.CategoryFrequencyCount, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fc.id, COALESCE(fc.name, ''), fr.frequency, COUNT(*)
		FROM food_responses fr
		JOIN food_items fi ON fi.id = fr.food_item_id
		LEFT JOIN food_categories fc ON fc.id = fi.category_id
		GROUP BY fc.id, fc.name, fr.frequency
		ORDER BY fc.id IS NULL, fc.name ASC, fr.frequency ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	defer closeRows(rows, &err)

	for rows.Next() {
		c := &domain.CategoryFrequencyCount{}
		var categoryID sql.NullInt64
		if err := rows.Scan(&categoryID, &c.CategoryName, &c.Frequency, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		if categoryID.Valid {
			c.Category = domain.Categorized(categoryID.Int64)
		}
		out = append(out, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category counts: %w", err)
	}

	return out, nil
}
