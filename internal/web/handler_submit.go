package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vbonduro/foodsurvey/internal/apperr"
	"github.com/vbonduro/foodsurvey/internal/domain"
	"github.com/vbonduro/foodsurvey/internal/service"
)

const (
	maxSubmitBytes = 1 << 20

	msgSaved       = "Respuestas guardadas correctamente"
	msgInvalidJSON = "JSON inválido"
	msgTooLarge    = "Solicitud demasiado grande"
)

type submitRequest struct {
	DNI      string         `json:"dni"`
	Apellido string         `json:"apellido"`
	Email    string         `json:"email"`
	Foods    []submitAnswer `json:"foods"`
}

type submitAnswer struct {
	FoodID       int64  `json:"foodId"`
	Quantity     string `json:"quantity"`
	Frequency    string `json:"frequency"`
	Observations string `json:"observations"`
}

type submitResponse struct {
	Message        string  `json:"message"`
	IDResponse     string  `json:"id_response"`
	Saved          int     `json:"saved"`
	Skipped        int     `json:"skipped"`
	SkippedFoodIDs []int64 `json:"skipped_food_ids"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxSubmitBytes)
	defer closeWithLog(body, "submit body", s.logger)

	var req submitRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, messageResponse{Message: msgTooLarge})
			return
		}
		s.writeError(w, r, apperr.Validation(msgInvalidJSON))
		return
	}

	in := service.SubmitInput{
		DNI:      req.DNI,
		Apellido: req.Apellido,
		Email:    req.Email,
	}
	if req.Foods != nil {
		in.Answers = make([]domain.Answer, 0, len(req.Foods))
		for _, f := range req.Foods {
			in.Answers = append(in.Answers, domain.Answer{
				FoodItemID:   f.FoodID,
				Quantity:     f.Quantity,
				Frequency:    f.Frequency,
				Observations: f.Observations,
			})
		}
	}

	result, err := s.survey.Submit(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, submitResponse{
		Message:        msgSaved,
		IDResponse:     result.SubmissionID,
		Saved:          result.Saved,
		Skipped:        result.Skipped,
		SkippedFoodIDs: result.SkippedFoodIDs,
	})
}
