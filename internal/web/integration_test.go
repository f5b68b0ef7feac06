package web_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vbonduro/foodsurvey/internal/catalog"
	"github.com/vbonduro/foodsurvey/internal/db"
	"github.com/vbonduro/foodsurvey/internal/service"
	"github.com/vbonduro/foodsurvey/internal/store"
	"github.com/vbonduro/foodsurvey/internal/web"
)

// testCatalog yields item ids Leche=1, Yogur=2, Pan=3, Agua=4 in a fresh DB.
const testCatalog = `
categories:
  - name: Lácteos
    items:
      - {name: Leche, quantity: 1 taza, grams: 240}
      - {name: Yogur, quantity: 1 pote, grams: 200}
  - name: Cereales
    items:
      - {name: Pan, quantity: 1 rebanada, grams: 30}
uncategorized:
  - {name: Agua, quantity: 1 vaso}
`

type testEnv struct {
	srv *httptest.Server
	db  *sql.DB
}

// newTestServer sets up a real web.Server backed by in-memory SQLite seeded
// with testCatalog.
func newTestServer(t *testing.T, opts service.Options) *testEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	database, err := db.OpenForTesting()
	require.NoError(t, err)
	st := store.New(database)

	f, err := catalog.Parse(strings.NewReader(testCatalog))
	require.NoError(t, err)
	require.NoError(t, catalog.Seed(context.Background(), st, f))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	survey := service.NewSurveyService(st, st.Respondents, st.Catalog, st.Responses, opts, logger)
	reports := service.NewReportService(st.Respondents, st.Responses, logger)

	srv := httptest.NewServer(web.NewServer(survey, reports, st, []string{"*"}, logger))
	t.Cleanup(func() {
		srv.Close()
		_ = database.Close()
	})
	return &testEnv{srv: srv, db: database}
}

func (e *testEnv) postJSON(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(e.srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type submitResult struct {
	Message        string  `json:"message"`
	IDResponse     string  `json:"id_response"`
	Saved          int     `json:"saved"`
	Skipped        int     `json:"skipped"`
	SkippedFoodIDs []int64 `json:"skipped_food_ids"`
}

type message struct {
	Message string `json:"message"`
}

func TestIntegration_SubmitAndReadLatest(t *testing.T) {
	env := newTestServer(t, service.Options{})

	resp := env.postJSON(t, "/submit",
		`{"dni":"123","apellido":"Lopez","email":"a@b.com","foods":[{"foodId":1,"quantity":"1 cup","frequency":"daily"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[submitResult](t, resp)
	assert.Equal(t, "Respuestas guardadas correctamente", res.Message)
	assert.Len(t, res.IDResponse, 36)
	assert.Equal(t, 1, res.Saved)
	assert.Equal(t, []int64{}, res.SkippedFoodIDs)

	resp = env.get(t, "/responses/123")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	latest := decode[struct {
		Respondent struct {
			DNI      string `json:"dni"`
			Apellido string `json:"apellido"`
		} `json:"respondent"`
		IDResponse string `json:"id_response"`
		Answers    []struct {
			FoodID    int64  `json:"food_id"`
			Food      string `json:"food"`
			Category  string `json:"category"`
			Quantity  string `json:"quantity"`
			Frequency string `json:"frequency"`
		} `json:"answers"`
	}](t, resp)
	assert.Equal(t, "Lopez", latest.Respondent.Apellido)
	assert.Equal(t, res.IDResponse, latest.IDResponse)
	require.Len(t, latest.Answers, 1)
	assert.EqualValues(t, 1, latest.Answers[0].FoodID)
	assert.Equal(t, "Leche", latest.Answers[0].Food)
	assert.Equal(t, "Lácteos", latest.Answers[0].Category)
	assert.Equal(t, "1 cup", latest.Answers[0].Quantity)
	assert.Equal(t, "daily", latest.Answers[0].Frequency)
}

func TestIntegration_SubmitRejectsBadInput(t *testing.T) {
	env := newTestServer(t, service.Options{})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing dni", `{"apellido":"Lopez","email":"a@b.com","foods":[]}`, "Datos incompletos"},
		{"missing foods", `{"dni":"1","apellido":"Lopez","email":"a@b.com"}`, "Datos incompletos"},
		{"null foods", `{"dni":"1","apellido":"Lopez","email":"a@b.com","foods":null}`, "Datos incompletos"},
		{"name keyed foods", `{"dni":"1","apellido":"Lopez","email":"a@b.com","foods":{"Leche":{"quantity":"1","frequency":"diaria"}}}`, "JSON inválido"},
		{"not json", `dni=1`, "JSON inválido"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.postJSON(t, "/submit", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.want, decode[message](t, resp).Message)
		})
	}
}

func TestIntegration_SubmitSkipsUnknownFoods(t *testing.T) {
	env := newTestServer(t, service.Options{})

	resp := env.postJSON(t, "/submit",
		`{"dni":"1","apellido":"A","email":"a@b.com","foods":[{"foodId":99,"quantity":"1","frequency":"diaria"},{"foodId":3,"quantity":"1","frequency":"diaria"}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decode[submitResult](t, resp)
	assert.Equal(t, 1, res.Saved)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, []int64{99}, res.SkippedFoodIDs)
}

func TestIntegration_SubmitStrictMode(t *testing.T) {
	env := newTestServer(t, service.Options{StrictFoodIDs: true})

	resp := env.postJSON(t, "/submit",
		`{"dni":"1","apellido":"A","email":"a@b.com","foods":[{"foodId":99,"quantity":"1","frequency":"diaria"}]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decode[message](t, resp).Message, "99")

	resp = env.get(t, "/responses/1")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegration_SubmitEmailConflict(t *testing.T) {
	env := newTestServer(t, service.Options{})

	resp := env.postJSON(t, "/submit", `{"dni":"1","apellido":"A","email":"same@x.com","foods":[]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.postJSON(t, "/submit", `{"dni":"2","apellido":"B","email":"same@x.com","foods":[]}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestIntegration_SubmitStoreFailure(t *testing.T) {
	env := newTestServer(t, service.Options{})
	require.NoError(t, env.db.Close())

	resp := env.postJSON(t, "/submit", `{"dni":"1","apellido":"A","email":"a@b.com","foods":[]}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Error al guardar respuestas", decode[message](t, resp).Message)
}

func TestIntegration_ResponsesNotFound(t *testing.T) {
	env := newTestServer(t, service.Options{})

	resp := env.get(t, "/responses/nobody")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Usuario no encontrado", decode[message](t, resp).Message)
}

func TestIntegration_Stats(t *testing.T) {
	env := newTestServer(t, service.Options{})

	env.postJSON(t, "/submit", `{"dni":"1","apellido":"A","email":"a@x.com","foods":[
		{"foodId":1,"quantity":"1","frequency":"diaria"},
		{"foodId":4,"quantity":"1","frequency":"diaria"}]}`)
	env.postJSON(t, "/submit", `{"dni":"2","apellido":"B","email":"b@x.com","foods":[
		{"foodId":1,"quantity":"1","frequency":"semanal"},
		{"foodId":3,"quantity":"1","frequency":"diaria"}]}`)

	resp := env.get(t, "/stats/top-foods")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	top := decode[[]struct {
		Food  string `json:"food"`
		Count int    `json:"count"`
	}](t, resp)
	require.Len(t, top, 3)
	assert.Equal(t, "Leche", top[0].Food)
	assert.Equal(t, 2, top[0].Count)

	resp = env.get(t, "/stats/frequency-by-food")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	freq := decode[[]map[string]any](t, resp)
	assert.Len(t, freq, 4)

	resp = env.get(t, "/stats/by-category")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	byCat := decode[[]struct {
		CategoryID *int64 `json:"category_id"`
		Category   string `json:"category"`
		Frequency  string `json:"frequency"`
		Count      int    `json:"count"`
	}](t, resp)
	require.Len(t, byCat, 4)
	assert.Equal(t, "Cereales", byCat[0].Category)
	last := byCat[len(byCat)-1]
	assert.Nil(t, last.CategoryID)
	assert.Equal(t, "Sin categoría", last.Category)
}

func TestIntegration_StatsEmptyArrays(t *testing.T) {
	env := newTestServer(t, service.Options{})

	for _, path := range []string{"/stats/top-foods", "/stats/frequency-by-food", "/stats/by-category"} {
		resp := env.get(t, path)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "[]", strings.TrimSpace(string(body)), path)
	}
}

func TestIntegration_StatsUser(t *testing.T) {
	env := newTestServer(t, service.Options{})

	resp := env.get(t, "/stats/user/1")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	env.postJSON(t, "/submit", `{"dni":"1","apellido":"A","email":"a@x.com","foods":[{"foodId":2,"quantity":"1","frequency":"diaria"}]}`)
	env.postJSON(t, "/submit", `{"dni":"1","apellido":"A","email":"a@x.com","foods":[{"foodId":4,"quantity":"2","frequency":"semanal"}]}`)

	resp = env.get(t, "/stats/user/1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rows := decode[[]struct {
		DNI      string   `json:"dni"`
		Food     string   `json:"food"`
		Category string   `json:"category"`
		Grams    *float64 `json:"grams"`
	}](t, resp)
	require.Len(t, rows, 1)
	assert.Equal(t, "Agua", rows[0].Food)
	assert.Empty(t, rows[0].Category)
	assert.Nil(t, rows[0].Grams)
}

func TestIntegration_Foods(t *testing.T) {
	env := newTestServer(t, service.Options{})

	resp := env.get(t, "/foods")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	groups := decode[[]struct {
		CategoryID *int64 `json:"category_id"`
		Category   string `json:"category"`
		Items      []struct {
			ID       int64    `json:"id"`
			Name     string   `json:"name"`
			Quantity string   `json:"quantity"`
			Grams    *float64 `json:"grams"`
		} `json:"items"`
	}](t, resp)

	require.Len(t, groups, 3)
	require.NotNil(t, groups[0].CategoryID)
	assert.EqualValues(t, 1, *groups[0].CategoryID)
	assert.Equal(t, "Lácteos", groups[0].Category)
	require.Len(t, groups[0].Items, 2)
	assert.Equal(t, "1 taza", groups[0].Items[0].Quantity)
	require.NotNil(t, groups[0].Items[0].Grams)
	assert.InDelta(t, 240.0, *groups[0].Items[0].Grams, 0.001)

	assert.Nil(t, groups[2].CategoryID)
	require.Len(t, groups[2].Items, 1)
	assert.Equal(t, "Agua", groups[2].Items[0].Name)
}

func TestIntegration_ExportEmpty(t *testing.T) {
	env := newTestServer(t, service.Options{})

	resp := env.get(t, "/export-responses")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestIntegration_ExportXLSX(t *testing.T) {
	env := newTestServer(t, service.Options{})

	env.postJSON(t, "/submit", `{"dni":"2","apellido":"B","email":"b@x.com","foods":[{"foodId":1,"quantity":"1","frequency":"diaria"}]}`)
	env.postJSON(t, "/submit", `{"dni":"2","apellido":"B","email":"b@x.com","foods":[{"foodId":3,"quantity":"2","frequency":"semanal"}]}`)
	env.postJSON(t, "/submit", `{"dni":"1","apellido":"A","email":"a@x.com","foods":[{"foodId":4,"quantity":"1","frequency":"diaria"}]}`)

	resp := env.get(t, "/export-responses")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus the latest submission of each respondent")
	assert.Equal(t, []string{"1", "A", "Agua"}, rows[1][:3])
	assert.Equal(t, []string{"2", "B", "Pan"}, rows[2][:3])
}

func TestIntegration_ExportCSV(t *testing.T) {
	env := newTestServer(t, service.Options{})

	env.postJSON(t, "/submit", `{"dni":"1","apellido":"A","email":"a@x.com","foods":[{"foodId":1,"quantity":"1","frequency":"diaria"}]}`)

	resp := env.get(t, "/export-responses?format=csv")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")

	records, err := csv.NewReader(resp.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Leche", records[1][2])
	assert.Equal(t, "Lácteos", records[1][3])
	assert.Equal(t, "240", records[1][5])
}

func TestIntegration_ExportBadFormat(t *testing.T) {
	env := newTestServer(t, service.Options{})

	resp := env.get(t, "/export-responses?format=pdf")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIntegration_Health(t *testing.T) {
	env := newTestServer(t, service.Options{})

	resp := env.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, env.db.Close())
	resp = env.get(t, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestIntegration_CORSPreflight(t *testing.T) {
	env := newTestServer(t, service.Options{})

	req, err := http.NewRequest(http.MethodOptions, env.srv.URL+"/submit", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://survey.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	assert.Less(t, resp.StatusCode, 300)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestIntegration_UnknownRoute(t *testing.T) {
	env := newTestServer(t, service.Options{})

	resp := env.get(t, "/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}
