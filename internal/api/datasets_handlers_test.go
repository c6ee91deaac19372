package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaxtrack-io/vaxtrack/internal/ingestion"
	"github.com/vaxtrack-io/vaxtrack/internal/operator"
)

const uploadCSV = `country,location,vaccine_type,age_group,coverage_rate,observation_date
Benin,Cotonou,BCG,0-5 years,87.5,2024-03-01
Benin,Porto-Novo,DTP3,0-5 years,73.2,2024-03-01
Togo,Lomé,BCG,0-5 years,91.0,2024-03-02
`

// multipartUpload builds a POST /api/v1/upload request carrying content as
// the "file" form field.
func multipartUpload(t *testing.T, filename, content string) *http.Request {
	t.Helper()

	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)

	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return req
}

func TestHandleUpload(t *testing.T) {
	t.Run("valid file returns the batch result", func(t *testing.T) {
		env := newTestEnv(t)

		rr := env.do(multipartUpload(t, "coverage_2024.csv", uploadCSV))

		require.Equal(t, http.StatusOK, rr.Code, "Response: %s", rr.Body.String())

		var result ingestion.BatchResult
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))

		assert.NotEmpty(t, result.BatchID)
		assert.Equal(t, "coverage_2024.csv", result.Filename)
		assert.Equal(t, 3, result.RowsAttempted)
		assert.Equal(t, 3, result.RowsAccepted)
		assert.Equal(t, ingestion.OutcomeSuccess, result.Status)
	})

	t.Run("unparseable file answers with a failed batch", func(t *testing.T) {
		env := newTestEnv(t)

		rr := env.do(multipartUpload(t, "garbage.csv", "this is not a csv header"))

		require.Equal(t, http.StatusOK, rr.Code, "Response: %s", rr.Body.String())

		var result ingestion.BatchResult
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
		assert.Equal(t, ingestion.OutcomeFailed, result.Status)
		assert.Zero(t, result.RowsAccepted)
	})

	t.Run("partially valid file reports partial", func(t *testing.T) {
		env := newTestEnv(t)

		csv := uploadCSV + "Benin,Cotonou,BCG,0-5 years,150,2024-03-01\n"
		rr := env.do(multipartUpload(t, "mixed.csv", csv))

		require.Equal(t, http.StatusOK, rr.Code)

		var result ingestion.BatchResult
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
		assert.Equal(t, ingestion.OutcomePartial, result.Status)
		assert.Equal(t, 4, result.RowsAttempted)
		assert.Equal(t, 3, result.RowsAccepted)
	})

	t.Run("missing file part is a bad request", func(t *testing.T) {
		env := newTestEnv(t)

		var buf bytes.Buffer

		writer := multipart.NewWriter(&buf)
		require.NoError(t, writer.WriteField("note", "no file here"))
		require.NoError(t, writer.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", &buf)
		req.Header.Set("Content-Type", writer.FormDataContentType())

		rr := env.do(req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("non-multipart body is a bad request", func(t *testing.T) {
		env := newTestEnv(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", strings.NewReader(uploadCSV))
		req.Header.Set("Content-Type", "text/csv")

		rr := env.do(req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("declared oversize payload is rejected", func(t *testing.T) {
		env := newTestEnv(t)

		req := multipartUpload(t, "huge.csv", uploadCSV)
		req.ContentLength = env.server.config.MaxUploadSize + 1

		rr := env.do(req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	})
}

func TestHandleRecords(t *testing.T) {
	t.Run("scoped caller sees only their country", func(t *testing.T) {
		env := newTestEnv(t)
		require.Equal(t, http.StatusOK, env.do(multipartUpload(t, "mixed.csv", uploadCSV)).Code)

		caller := env.registerActive(t, "benin@example.org", "Benin")

		req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
		req.Header.Set("X-Operator-Email", caller)

		rr := env.do(req)
		require.Equal(t, http.StatusOK, rr.Code, "Response: %s", rr.Body.String())

		var response RecordsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
		require.Equal(t, 2, response.Count)

		for _, record := range response.Records {
			assert.Equal(t, "Benin", record.Country)
			assert.Equal(t, "mixed.csv", record.Filename)
		}

		assert.Equal(t, "2024-03-01", response.Records[0].ObservationDate)
	})

	t.Run("unrestricted caller sees everything", func(t *testing.T) {
		env := newTestEnv(t)
		require.Equal(t, http.StatusOK, env.do(multipartUpload(t, "mixed.csv", uploadCSV)).Code)

		caller := env.registerActive(t, "admin@example.org", operator.ScopeAll)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
		req.Header.Set("X-Operator-Email", caller)

		rr := env.do(req)
		require.Equal(t, http.StatusOK, rr.Code)

		var response RecordsResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
		assert.Equal(t, 3, response.Count)
	})

	t.Run("missing caller header is unauthorized", func(t *testing.T) {
		env := newTestEnv(t)

		rr := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/records", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("provisional caller is unauthorized", func(t *testing.T) {
		env := newTestEnv(t)

		rr := env.do(jsonRequest(http.MethodPost, "/api/v1/register", `{
			"full_name": "Ama Mensah",
			"email": "pending@example.org",
			"password": "correct horse battery staple",
			"country": "Ghana"
		}`))
		require.Equal(t, http.StatusCreated, rr.Code)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/records", nil)
		req.Header.Set("X-Operator-Email", "pending@example.org")

		assert.Equal(t, http.StatusUnauthorized, env.do(req).Code)
	})
}

func TestHandleHistory(t *testing.T) {
	t.Run("aggregates follow the caller scope", func(t *testing.T) {
		env := newTestEnv(t)
		require.Equal(t, http.StatusOK, env.do(multipartUpload(t, "mixed.csv", uploadCSV)).Code)

		admin := env.registerActive(t, "admin@example.org", operator.ScopeAll)
		scoped := env.registerActive(t, "benin@example.org", "Benin")

		req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
		req.Header.Set("X-Operator-Email", admin)

		rr := env.do(req)
		require.Equal(t, http.StatusOK, rr.Code, "Response: %s", rr.Body.String())

		var response HistoryResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
		require.Equal(t, 1, response.Count)
		assert.Equal(t, "Benin, Togo", response.Batches[0].Countries)
		assert.Equal(t, "BCG, DTP3", response.Batches[0].Vaccines)

		req = httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
		req.Header.Set("X-Operator-Email", scoped)

		rr = env.do(req)
		require.Equal(t, http.StatusOK, rr.Code)

		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
		require.Equal(t, 1, response.Count)
		assert.Equal(t, "Benin", response.Batches[0].Countries)

		// Ledger counters describe the upload itself and are never rescoped.
		assert.Equal(t, 3, response.Batches[0].RowsAttempted)
		assert.Equal(t, 3, response.Batches[0].RowsAccepted)
	})

	t.Run("empty ledger yields an empty list", func(t *testing.T) {
		env := newTestEnv(t)
		caller := env.registerActive(t, "admin@example.org", operator.ScopeAll)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
		req.Header.Set("X-Operator-Email", caller)

		rr := env.do(req)
		require.Equal(t, http.StatusOK, rr.Code)

		var response HistoryResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
		assert.Zero(t, response.Count)
		assert.NotNil(t, response.Batches)
	})

	t.Run("missing caller header is unauthorized", func(t *testing.T) {
		env := newTestEnv(t)

		rr := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
