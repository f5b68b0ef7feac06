package web

import (
	"net/http"
)

type foodCountJSON struct {
	Food  string `json:"food"`
	Count int64  `json:"count"`
}

type foodFrequencyJSON struct {
	Food      string `json:"food"`
	Frequency string `json:"frequency"`
	Count     int64  `json:"count"`
}

type categoryFrequencyJSON struct {
	CategoryID *int64 `json:"category_id"`
	Category   string `json:"category"`
	Frequency  string `json:"frequency"`
	Count      int64  `json:"count"`
}

func (s *Server) handleTopFoods(w http.ResponseWriter, r *http.Request) {
	counts, err := s.reports.TopFoods(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]foodCountJSON, 0, len(counts))
	for _, c := range counts {
		out = append(out, foodCountJSON{Food: c.Food, Count: c.Count})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFrequencyByFood(w http.ResponseWriter, r *http.Request) {
	counts, err := s.reports.FrequencyByFood(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]foodFrequencyJSON, 0, len(counts))
	for _, c := range counts {
		out = append(out, foodFrequencyJSON{Food: c.Food, Frequency: c.Frequency, Count: c.Count})
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleByCategory(w http.ResponseWriter, r *http.Request) {
	counts, err := s.reports.ByCategory(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]categoryFrequencyJSON, 0, len(counts))
	for _, c := range counts {
		out = append(out, categoryFrequencyJSON{
			CategoryID: categoryIDPtr(c.Category),
			Category:   c.CategoryName,
			Frequency:  c.Frequency,
			Count:      c.Count,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}
