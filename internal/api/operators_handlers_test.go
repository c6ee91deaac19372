package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaxtrack-io/vaxtrack/internal/operator"
)

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	return req
}

func TestHandleRegister(t *testing.T) {
	t.Run("creates provisional operator", func(t *testing.T) {
		env := newTestEnv(t)

		rr := env.do(jsonRequest(http.MethodPost, "/api/v1/register", `{
			"full_name": "Ama Mensah",
			"email": "Ama@Example.org",
			"password": "correct horse battery staple",
			"country": "Ghana",
			"company": "Ministry of Health",
			"job_title": "Epidemiologist"
		}`))

		require.Equal(t, http.StatusCreated, rr.Code, "Response: %s", rr.Body.String())

		var profile operator.Profile
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &profile))

		assert.NotEmpty(t, profile.ID)
		assert.Equal(t, "ama@example.org", profile.Email)
		assert.Equal(t, operator.RoleUser, profile.Role)
		assert.Equal(t, operator.StatusProvisional, profile.Status)
		assert.Equal(t, "Ghana", profile.Scope)
	})

	t.Run("rejects non-JSON content type", func(t *testing.T) {
		env := newTestEnv(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/register", strings.NewReader("full_name=x"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		rr := env.do(req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
		assert.Equal(t, contentTypeProblemJSON, rr.Header().Get("Content-Type"))
	})

	t.Run("rejects empty body", func(t *testing.T) {
		env := newTestEnv(t)

		rr := env.do(jsonRequest(http.MethodPost, "/api/v1/register", ""))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("rejects invalid JSON", func(t *testing.T) {
		env := newTestEnv(t)

		rr := env.do(jsonRequest(http.MethodPost, "/api/v1/register", `{"full_name":`))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("rejects missing required fields", func(t *testing.T) {
		env := newTestEnv(t)

		rr := env.do(jsonRequest(http.MethodPost, "/api/v1/register", `{"email": "ama@example.org"}`))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		env := newTestEnv(t)

		payload := `{
			"full_name": "Ama Mensah",
			"email": "ama@example.org",
			"password": "correct horse battery staple",
			"country": "Ghana"
		}`

		first := env.do(jsonRequest(http.MethodPost, "/api/v1/register", payload))
		require.Equal(t, http.StatusCreated, first.Code)

		second := env.do(jsonRequest(http.MethodPost, "/api/v1/register", payload))
		assert.Equal(t, http.StatusConflict, second.Code)
	})
}

func TestHandleLogin(t *testing.T) {
	registerPayload := `{
		"full_name": "Ama Mensah",
		"email": "ama@example.org",
		"password": "correct horse battery staple",
		"country": "Ghana"
	}`

	t.Run("valid credentials return the profile", func(t *testing.T) {
		env := newTestEnv(t)
		require.Equal(t, http.StatusCreated,
			env.do(jsonRequest(http.MethodPost, "/api/v1/register", registerPayload)).Code)

		rr := env.do(jsonRequest(http.MethodPost, "/api/v1/login",
			`{"email": "ama@example.org", "password": "correct horse battery staple"}`))

		require.Equal(t, http.StatusOK, rr.Code, "Response: %s", rr.Body.String())

		var profile operator.Profile
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &profile))
		assert.Equal(t, "ama@example.org", profile.Email)
		assert.Equal(t, operator.StatusProvisional, profile.Status)
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		env := newTestEnv(t)
		require.Equal(t, http.StatusCreated,
			env.do(jsonRequest(http.MethodPost, "/api/v1/register", registerPayload)).Code)

		rr := env.do(jsonRequest(http.MethodPost, "/api/v1/login",
			`{"email": "ama@example.org", "password": "wrong"}`))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("unknown email is unauthorized", func(t *testing.T) {
		env := newTestEnv(t)

		rr := env.do(jsonRequest(http.MethodPost, "/api/v1/login",
			`{"email": "ghost@example.org", "password": "whatever"}`))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("rejects empty body", func(t *testing.T) {
		env := newTestEnv(t)

		rr := env.do(jsonRequest(http.MethodPost, "/api/v1/login", ""))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHandlePendingOperators(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/admin/pending-operators", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var response PendingOperatorsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Zero(t, response.Count)
	assert.NotNil(t, response.Operators)

	profile, err := env.operators.Register(context.Background(), operator.Registration{
		FullName: "Ama Mensah",
		Email:    "ama@example.org",
		Password: "correct horse battery staple",
		Country:  "Ghana",
	})
	require.NoError(t, err)

	rr = env.do(httptest.NewRequest(http.MethodGet, "/api/v1/admin/pending-operators", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	require.Equal(t, 1, response.Count)
	assert.Equal(t, profile.ID, response.Operators[0].ID)
}

func TestHandleApproveOperator(t *testing.T) {
	t.Run("promotes a provisional operator", func(t *testing.T) {
		env := newTestEnv(t)

		profile, err := env.operators.Register(context.Background(), operator.Registration{
			FullName: "Ama Mensah",
			Email:    "ama@example.org",
			Password: "correct horse battery staple",
			Country:  "Ghana",
		})
		require.NoError(t, err)

		rr := env.do(jsonRequest(http.MethodPost, "/api/v1/admin/approve-operator",
			`{"operator_id": "`+profile.ID+`", "scope": "All"}`))

		require.Equal(t, http.StatusOK, rr.Code, "Response: %s", rr.Body.String())

		var updated operator.Profile
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
		assert.Equal(t, operator.RoleAdmin, updated.Role)
		assert.Equal(t, operator.StatusActive, updated.Status)
		assert.Equal(t, operator.ScopeAll, updated.Scope)
	})

	t.Run("empty scope is a bad request", func(t *testing.T) {
		env := newTestEnv(t)

		rr := env.do(jsonRequest(http.MethodPost, "/api/v1/admin/approve-operator",
			`{"operator_id": "`+uuid.New().String()+`", "scope": ""}`))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown operator id", func(t *testing.T) {
		env := newTestEnv(t)

		rr := env.do(jsonRequest(http.MethodPost, "/api/v1/admin/approve-operator",
			`{"operator_id": "`+uuid.New().String()+`", "scope": "Benin"}`))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestHandleRejectOperator(t *testing.T) {
	t.Run("deletes the operator", func(t *testing.T) {
		env := newTestEnv(t)

		profile, err := env.operators.Register(context.Background(), operator.Registration{
			FullName: "Ama Mensah",
			Email:    "ama@example.org",
			Password: "correct horse battery staple",
			Country:  "Ghana",
		})
		require.NoError(t, err)

		rr := env.do(jsonRequest(http.MethodPost, "/api/v1/admin/reject-operator",
			`{"operator_id": "`+profile.ID+`"}`))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"status": "rejected"}`, rr.Body.String())

		// A rejected id cannot be approved afterwards.
		approve := env.do(jsonRequest(http.MethodPost, "/api/v1/admin/approve-operator",
			`{"operator_id": "`+profile.ID+`", "scope": "All"}`))
		assert.Equal(t, http.StatusNotFound, approve.Code)
	})

	t.Run("unknown operator id", func(t *testing.T) {
		env := newTestEnv(t)

		rr := env.do(jsonRequest(http.MethodPost, "/api/v1/admin/reject-operator",
			`{"operator_id": "`+uuid.New().String()+`"}`))

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
