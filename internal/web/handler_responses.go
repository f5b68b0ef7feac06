package web

import (
	"net/http"
	"time"

	"github.com/vbonduro/foodsurvey/internal/domain"
)

type respondentJSON struct {
	DNI      string `json:"dni"`
	Apellido string `json:"apellido"`
	Email    string `json:"email"`
}

type answerJSON struct {
	FoodID       int64    `json:"food_id"`
	Food         string   `json:"food"`
	CategoryID   *int64   `json:"category_id"`
	Category     string   `json:"category"`
	Quantity     string   `json:"quantity"`
	Grams        *float64 `json:"grams"`
	Frequency    string   `json:"frequency"`
	Observations string   `json:"observations"`
}

type latestResponse struct {
	Respondent  respondentJSON `json:"respondent"`
	IDResponse  *string        `json:"id_response"`
	SubmittedAt *time.Time     `json:"submitted_at"`
	Answers     []answerJSON   `json:"answers"`
}

// rowJSON is one flattened answer as listed by /stats/user/{dni}.
type rowJSON struct {
	DNI          string    `json:"dni"`
	Apellido     string    `json:"apellido"`
	Food         string    `json:"food"`
	Category     string    `json:"category"`
	Quantity     string    `json:"quantity"`
	Grams        *float64  `json:"grams"`
	Frequency    string    `json:"frequency"`
	Observations string    `json:"observations"`
	IDResponse   string    `json:"id_response"`
	CreatedAt    time.Time `json:"created_at"`
}

func categoryIDPtr(k domain.CategoryKey) *int64 {
	if id, ok := k.ID(); ok {
		return &id
	}
	return nil
}

func (s *Server) handleLatestResponses(w http.ResponseWriter, r *http.Request) {
	latest, err := s.survey.LatestSubmission(r.Context(), r.PathValue("dni"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := latestResponse{
		Respondent: respondentJSON{
			DNI:      latest.Respondent.DNI,
			Apellido: latest.Respondent.Apellido,
			Email:    latest.Respondent.Email,
		},
		Answers: make([]answerJSON, 0, len(latest.Answers)),
	}
	if latest.SubmissionID != "" {
		resp.IDResponse = &latest.SubmissionID
		resp.SubmittedAt = &latest.SubmittedAt
	}
	for _, a := range latest.Answers {
		resp.Answers = append(resp.Answers, answerJSON{
			FoodID:       a.FoodItemID,
			Food:         a.FoodName,
			CategoryID:   categoryIDPtr(a.Category),
			Category:     a.CategoryName,
			Quantity:     a.Quantity,
			Grams:        a.Grams,
			Frequency:    a.Frequency,
			Observations: a.Observations,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRespondentRows(w http.ResponseWriter, r *http.Request) {
	rows, err := s.reports.RespondentRows(r.Context(), r.PathValue("dni"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]rowJSON, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowJSON{
			DNI:          row.RespondentDNI,
			Apellido:     row.RespondentName,
			Food:         row.FoodName,
			Category:     row.CategoryName,
			Quantity:     row.Quantity,
			Grams:        row.Grams,
			Frequency:    row.Frequency,
			Observations: row.Observations,
			IDResponse:   row.SubmissionID,
			CreatedAt:    row.CreatedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}
