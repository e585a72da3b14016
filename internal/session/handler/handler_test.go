package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"sahaya/internal/session"
)

type HandlerSuite struct {
	suite.Suite
	server *httptest.Server
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := session.NewService(
		session.NewMemoryStore(),
		session.DefaultSensitivityPolicy(),
		30*time.Minute,
		log, nil, nil,
	)
	r := chi.NewRouter()
	New(service, log).Register(r)
	s.server = httptest.NewServer(r)
}

func (s *HandlerSuite) TearDownTest() {
	s.server.Close()
}

func (s *HandlerSuite) do(method, path string, body any) (*http.Response, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (s *HandlerSuite) createSession() string {
	resp, body := s.do(http.MethodPost, "/sessions", map[string]any{"preferred_language": "hi"})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	id, _ := body["session_id"].(string)
	s.Require().NotEmpty(id)
	return id
}

func (s *HandlerSuite) TestSessionLifecycle() {
	id := s.createSession()

	resp, _ := s.do(http.MethodPut, "/sessions/"+id+"/attributes", map[string]any{
		"name":  "age",
		"value": 65,
	})
	s.Equal(http.StatusNoContent, resp.StatusCode)

	resp, body := s.do(http.MethodGet, "/sessions/"+id+"/context", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	userCtx, _ := body["context"].(map[string]any)
	s.Equal(float64(65), userCtx["age"])

	resp, _ = s.do(http.MethodDelete, "/sessions/"+id, nil)
	s.Equal(http.StatusNoContent, resp.StatusCode)

	resp, body = s.do(http.MethodGet, "/sessions/"+id+"/context", nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("not_found", body["error"])
}

func (s *HandlerSuite) TestSensitiveAttributeFlow() {
	id := s.createSession()

	resp, body := s.do(http.MethodPut, "/sessions/"+id+"/attributes", map[string]any{
		"name":  "income",
		"value": 45000,
	})
	s.Equal(http.StatusPreconditionRequired, resp.StatusCode)
	s.Equal("requires_confirmation", body["error"])

	resp, _ = s.do(http.MethodPut, "/sessions/"+id+"/attributes", map[string]any{
		"name":      "income",
		"value":     45000,
		"confirmed": true,
	})
	s.Equal(http.StatusNoContent, resp.StatusCode)

	resp, body = s.do(http.MethodGet, "/sessions/"+id+"/context", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	userCtx, _ := body["context"].(map[string]any)
	s.Equal(float64(45000), userCtx["income"])
}

func (s *HandlerSuite) TestBadRequests() {
	id := s.createSession()

	s.Run("malformed session id", func() {
		resp, _ := s.do(http.MethodGet, "/sessions/not-a-uuid/context", nil)
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})

	s.Run("structured attribute value", func() {
		resp, _ := s.do(http.MethodPut, "/sessions/"+id+"/attributes", map[string]any{
			"name":  "age",
			"value": map[string]any{"years": 65},
		})
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})

	s.Run("unknown body field", func() {
		resp, _ := s.do(http.MethodPut, "/sessions/"+id+"/attributes", map[string]any{
			"name":  "age",
			"value": 65,
			"nope":  true,
		})
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})
}
