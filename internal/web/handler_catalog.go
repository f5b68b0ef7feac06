package web

import (
	"net/http"
)

type foodItemJSON struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Quantity string   `json:"quantity"`
	Grams    *float64 `json:"grams"`
}

type catalogGroupJSON struct {
	CategoryID *int64         `json:"category_id"`
	Category   string         `json:"category"`
	Items      []foodItemJSON `json:"items"`
}

func (s *Server) handleListFoods(w http.ResponseWriter, r *http.Request) {
	groups, err := s.survey.ListCatalog(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]catalogGroupJSON, 0, len(groups))
	for _, g := range groups {
		items := make([]foodItemJSON, 0, len(g.Items))
		for _, it := range g.Items {
			items = append(items, foodItemJSON{ID: it.ID, Name: it.Name, Quantity: it.Quantity, Grams: it.Grams})
		}
		out = append(out, catalogGroupJSON{
			CategoryID: categoryIDPtr(g.Category),
			Category:   g.Name,
			Items:      items,
		})
	}
	s.writeJSON(w, http.StatusOK, out)
}
