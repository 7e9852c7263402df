package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/juanifmera/progresion/internal/config"
	"github.com/juanifmera/progresion/internal/importer"
	"github.com/juanifmera/progresion/internal/model"
	"github.com/juanifmera/progresion/internal/parser"
	"github.com/juanifmera/progresion/internal/report"
	"github.com/juanifmera/progresion/internal/store"
)

const salesCSV = `Ventas
Año,Mes,Direccion,Punto Operacional,Sector,Seccion,Grupo de Familia,Ventas c/impuesto,Venta en Unidades
2024,Agosto 2024,HIPER,1 - HIPER UNO,ALMACEN,BEBIDAS,GASEOSAS,"1.000,00","100,0"
2025,Agosto 2025,HIPER,1 - HIPER UNO,ALMACEN,BEBIDAS,GASEOSAS,"1.200,00","110,0"
`

const ticketsCSV = `Debitos
Año,Mes,Direccion,Punto Operacional,Cant. Tickets por Local
2024,Agosto 2024,HIPER,1 - HIPER UNO,1.000
2025,Agosto 2025,HIPER,1 - HIPER UNO,1.100
`

func registryXLSX(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })
	header := []any{"N°", "NOMBRE", "Fecha apertura", "PROVINCIA", "AGO"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A18", &header))
	row := []any{1, "HIPER UNO", 40179, "BUENOS AIRES", "SC"}
	require.NoError(t, f.SetSheetRow("Sheet1", "A19", &row))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

type testServer struct {
	router  *gin.Engine
	handler *Handler
	store   *store.Store
}

func newTestServer(t *testing.T, limit *RateLimiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.DefaultConfig()
	st, err := store.New(filepath.Join(t.TempDir(), store.DefaultFileName))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	catalog, err := report.NewCatalog(nil)
	require.NoError(t, err)
	runner := report.NewRunner(
		importer.NewCoordinator(importer.Options{
			Extract:  parser.ReadOptions{HeaderRow: 1},
			Registry: parser.RegistryOptions{HeaderRow: parser.DefaultRegistryHeaderRow},
		}),
		report.NewBuilder(catalog, report.BuildOptions{}),
		st,
	)
	h := NewHandler(runner, st, cfg)

	r := gin.New()
	r.Use(RouteAccessLogger())
	var mw gin.HandlerFunc
	if limit != nil {
		mw = limit.Middleware()
	}
	h.RegisterRoutes(r.Group("/api"), mw)
	return &testServer{router: r, handler: h, store: st}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func multipartRequest(t *testing.T, path string, fields map[string]string, withRegistry bool) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	files := map[string][]byte{
		FieldSales:   []byte(salesCSV),
		FieldTickets: []byte(ticketsCSV),
	}
	names := map[string]string{FieldSales: "ventas.csv", FieldTickets: "debitos.csv", FieldRegistry: "padron.xlsx"}
	if withRegistry {
		files[FieldRegistry] = registryXLSX(t)
	}
	for field, data := range files {
		fw, err := mw.CreateFormFile(field, names[field])
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestRunReport_AndDownload(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(multipartRequest(t, "/api/reports/monthly", map[string]string{"month": "Agosto", "format": "zip"}, true))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "succeeded", resp.Status)
	assert.Equal(t, "Progresiones MMAA - Agosto.zip", resp.FileName)
	assert.Len(t, resp.Sheets, 11)
	require.True(t, strings.HasPrefix(resp.DownloadURL, "/api/export/download/"))

	dl := s.do(httptest.NewRequest(http.MethodGet, resp.DownloadURL, nil))
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, "application/zip", dl.Header().Get("Content-Type"))
	assert.Contains(t, dl.Header().Get("Content-Disposition"), `filename="Progresiones MMAA - Agosto.zip"`)
	assert.NotEmpty(t, dl.Body.Bytes())

	// 一次性
	again := s.do(httptest.NewRequest(http.MethodGet, resp.DownloadURL, nil))
	assert.Equal(t, http.StatusNotFound, again.Code)

	runs := s.do(httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	require.Equal(t, http.StatusOK, runs.Code)
	var list struct {
		Items []model.RunRecord `json:"items"`
	}
	require.NoError(t, json.Unmarshal(runs.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, resp.RunID, list.Items[0].ID)
	assert.Equal(t, "succeeded", list.Items[0].Status)
}

func TestRunReport_BadRequests(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(multipartRequest(t, "/api/reports/semanal", map[string]string{"month": "Agosto"}, true))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(multipartRequest(t, "/api/reports/monthly", map[string]string{"month": "Agostito"}, true))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(multipartRequest(t, "/api/reports/monthly", map[string]string{"month": "Agosto"}, false))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), FieldRegistry)

	w = s.do(multipartRequest(t, "/api/reports/monthly", map[string]string{"month": "Agosto", "format": "pdf"}, true))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, model.StageValidate, resp.Stage)
}

func TestRunReport_SchemaDrift(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(multipartRequest(t, "/api/reports/monthly", map[string]string{"month": "Septiembre"}, true))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "failed", resp.Status)
	assert.Equal(t, model.StageRegistry, resp.Stage)
	assert.Empty(t, resp.DownloadURL)
}

func TestRunReportStream(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(multipartRequest(t, "/api/reports/comparacion/stream", map[string]string{"month": "Agosto", "format": "csv"}, true))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	var events []streamEvent
	for _, chunk := range strings.Split(strings.TrimSpace(w.Body.String()), "\n\n") {
		require.True(t, strings.HasPrefix(chunk, "data: "), chunk)
		var e streamEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(chunk, "data: ")), &e))
		events = append(events, e)
	}
	require.GreaterOrEqual(t, len(events), 3)
	assert.Equal(t, "start", events[0].Type)
	last := events[len(events)-1]
	assert.Equal(t, "done", last.Type)
	data, ok := last.Data.(map[string]any)
	require.True(t, ok)
	assert.Contains(t, data["downloadUrl"], "/api/export/download/")
	assert.Equal(t, "Comparacion Progresiones - Agosto.csv", data["fileName"])
}

func TestInfoEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/months", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var months struct {
		Items []monthItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &months))
	require.Len(t, months.Items, 12)
	assert.Equal(t, monthItem{Name: "Agosto", Key: "ago", Ordinal: 8, RegistryColumn: "AGO"}, months.Items[7])

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/reports", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"monthly"`)
	assert.Contains(t, w.Body.String(), "Prog Aperturado x Tienda")

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/config", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"comparableFlag":"SC"`)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var status StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Status)
	assert.Nil(t, status.LastRun)

	w = s.do(httptest.NewRequest(http.MethodGet, "/api/runs?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimiter(t *testing.T) {
	s := newTestServer(t, NewRateLimiter(0.001, 1))

	first := s.do(multipartRequest(t, "/api/reports/monthly", map[string]string{"month": "Agostito"}, true))
	assert.Equal(t, http.StatusBadRequest, first.Code)

	second := s.do(multipartRequest(t, "/api/reports/monthly", map[string]string{"month": "Agosto"}, true))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// 非报表接口不受限流影响
	w := s.do(httptest.NewRequest(http.MethodGet, "/api/months", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDownloadStore_Expiry(t *testing.T) {
	s := newDownloadStore()
	now := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	token := s.put(&model.Artifact{FileName: "a.xlsx"}, "run", time.Minute)
	assert.Equal(t, 1, s.len())

	now = now.Add(2 * time.Minute)
	_, ok := s.take(token)
	assert.False(t, ok)
	assert.Equal(t, 0, s.len())
}

func TestContentDisposition(t *testing.T) {
	got := contentDisposition("Progresiones MMAA - Año.xlsx")
	assert.Equal(t, `attachment; filename="Progresiones MMAA - A_o.xlsx"; filename*=UTF-8''Progresiones%20MMAA%20-%20A%C3%B1o.xlsx`, got)
}
