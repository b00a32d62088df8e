package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"goviper/adapters/regulonfile"
	"goviper/app"
	"goviper/domain/activity"
	"goviper/domain/regulon"
	"goviper/internal"
	"goviper/internal/errors"
	"goviper/internal/testkit"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func networkDocument(net *regulon.Network) regulonfile.Document {
	var doc regulonfile.Document
	for _, r := range net.Regulators() {
		rd := regulonfile.RegulatorDoc{Name: r.Name()}
		for _, target := range r.Targets() {
			mode, _ := r.Mode(target)
			lik, _ := r.Likelihood(target)
			rd.Targets = append(rd.Targets, regulonfile.TargetDoc{Gene: target, Mode: mode, Likelihood: &lik})
		}
		doc.Regulators = append(doc.Regulators, rd)
	}
	return doc
}

func setup(t *testing.T) (*gin.Engine, *testkit.TestKit, ActivityPayload) {
	t.Helper()
	kit := testkit.NewTestKit()
	logger := internal.NewDiscardLogger()
	service := app.NewActivityService(kit.RNGAdapter(), kit.ActivityRepository(), logger)
	router := NewRouter(NewActivityHandler(service, kit.ActivityRepository(), activity.DefaultOptions(), logger))

	ds, err := kit.Dataset(21)
	require.NoError(t, err)
	payload := ActivityPayload{
		Signature: NewMatrixPayload(ds.Signature),
		Network:   networkDocument(ds.Network),
		Options:   activity.DefaultOptions(),
	}
	return router, kit, payload
}

func do(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRunActivity_ReturnsScoresAndStoresRun(t *testing.T) {
	router, _, payload := setup(t)
	payload.Report = "markdown"
	payload.Top = 3

	w := do(t, router, http.MethodPost, "/api/activity", payload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ActivityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Run)
	assert.Len(t, resp.Scores, 8*6)
	assert.Contains(t, resp.Report, "# Regulator activity run "+resp.Run.ID.String())

	w = do(t, router, http.MethodGet, "/api/runs/"+resp.Run.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stored RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stored))
	assert.Equal(t, resp.Run.Fingerprint, stored.Summary.Fingerprint)
	assert.Len(t, stored.Scores, len(resp.Scores))

	w = do(t, router, http.MethodGet, "/api/runs?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), resp.Run.ID.String())
}

func TestRunActivity_Errors(t *testing.T) {
	router, _, payload := setup(t)

	ragged := payload
	ragged.Signature.Values = ragged.Signature.Values[:3]
	w := do(t, router, http.MethodPost, "/api/activity", ragged)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), errors.CodeInvalidInput)

	bad := payload
	bad.Network = regulonfile.Document{Regulators: []regulonfile.RegulatorDoc{{
		Name: "TF", Targets: []regulonfile.TargetDoc{{Gene: "G0001", Mode: 2}},
	}}}
	w = do(t, router, http.MethodPost, "/api/activity", bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), errors.CodeInvalidRegulon)

	format := payload
	format.Report = "pdf"
	w = do(t, router, http.MethodPost, "/api/activity", format)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/activity", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRun_NotFound(t *testing.T) {
	router, _, _ := setup(t)

	w := do(t, router, http.MethodGet, "/api/runs/0190b6a4-0000-7000-8000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodGet, "/api/runs/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
