package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/dinhhieu2003/toeic-recommender/internal/model"
	"github.com/dinhhieu2003/toeic-recommender/internal/recommend"
	"github.com/dinhhieu2003/toeic-recommender/internal/task"
	"github.com/dinhhieu2003/toeic-recommender/pkg/backend"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubRecommender struct {
	list *model.RecommendationList
	err  error
}

func (s *stubRecommender) Recommend(_ context.Context, learnerID string, count int, _ recommend.Options) (*model.RecommendationList, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.list != nil {
		return s.list, nil
	}
	return &model.RecommendationList{LearnerID: learnerID}, nil
}

type stubSink struct{ err error }

func (s *stubSink) SaveFeedback(context.Context, backend.Feedback) error { return s.err }

func newTestServer(rec Recommender, token string) *Server {
	return NewServer(rec, &stubSink{}, nil, task.NewManager(), token)
}

func doRequest(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleRecommendOK(t *testing.T) {
	rec := &stubRecommender{
		list: &model.RecommendationList{
			LearnerID: "l1",
			Items: []model.Recommendation{
				{ItemID: "t1", Name: "Test 1", Type: model.ItemTypeTest, Score: 0.9, Provenance: model.ProvenanceSimilarity},
			},
		},
	}
	w := doRequest(newTestServer(rec, ""), http.MethodGet, "/api/v1/recommendations/l1?limit=3&type=test")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var got model.RecommendationList
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.LearnerID != "l1" || len(got.Items) != 1 {
		t.Errorf("unexpected response: %+v", got)
	}
}

func TestHandleRecommendErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"upstream unavailable", backend.ErrUpstreamUnavailable, http.StatusServiceUnavailable},
		{"upstream auth", backend.ErrUpstreamAuth, http.StatusBadGateway},
		{"insufficient catalog", recommend.ErrInsufficientCatalog, http.StatusNotFound},
		{"feature dimension", recommend.ErrInvalidFeatureDimension, http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(newTestServer(&stubRecommender{err: tc.err}, ""), http.MethodGet, "/api/v1/recommendations/l1")
			if w.Code != tc.want {
				t.Errorf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}

func TestHandleRecommendBadParams(t *testing.T) {
	s := newTestServer(&stubRecommender{}, "")
	for _, target := range []string{
		"/api/v1/recommendations/l1?limit=abc",
		"/api/v1/recommendations/l1?limit=-1",
		"/api/v1/recommendations/l1?type=podcast",
		"/api/v1/recommendations/l1?include_completed=maybe",
	} {
		if w := doRequest(s, http.MethodGet, target); w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, w.Code)
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(&stubRecommender{}, "sekrit")

	if w := doRequest(s, http.MethodGet, "/api/v1/recommendations/l1"); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/l1", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with bad token, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/recommendations/l1", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with valid token, got %d", w.Code)
	}

	// Health stays open regardless of token config.
	if w := doRequest(s, http.MethodGet, "/health"); w.Code != http.StatusOK {
		t.Errorf("expected open health endpoint, got %d", w.Code)
	}
}

func TestHandleGetTaskNotFound(t *testing.T) {
	w := doRequest(newTestServer(&stubRecommender{}, ""), http.MethodGet, "/api/v1/tasks/nope")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
