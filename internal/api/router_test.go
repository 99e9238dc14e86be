package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-gota/gota/dataframe"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jengzang/trip-features-go/internal/config"
	"github.com/jengzang/trip-features-go/internal/database"
	"github.com/jengzang/trip-features-go/internal/features"
	"github.com/jengzang/trip-features-go/internal/handler"
	"github.com/jengzang/trip-features-go/internal/models"
	"github.com/jengzang/trip-features-go/internal/repository"
	"github.com/jengzang/trip-features-go/internal/service"
)

const testSecret = "test-secret"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func newTestServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.Config{Driver: database.DriverSQLite, DSN: filepath.Join(t.TempDir(), "api.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrationManager(db, nil).RunMigrations(context.Background()))

	cfg := &config.Config{JWTSecret: testSecret, RateLimitRPS: 1000, RateLimitBurst: 1000}
	tripRepo := repository.NewTripRepository(db)
	modelRepo := repository.NewModelRepository(db)
	router := SetupRouter(cfg, zap.NewNop(), Handlers{
		Trips:    handler.NewTripHandler(service.NewTripService(tripRepo, nil)),
		Features: handler.NewFeatureHandler(service.NewFeatureService(tripRepo, modelRepo, 4, 2, nil)),
	})

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "tester",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	return &testServer{t: t, router: router, token: token}
}

func (s *testServer) do(method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func randomInputs(seed int64, n int) []models.TripInput {
	rng := rand.New(rand.NewSource(seed))
	inputs := make([]models.TripInput, n)
	for i := range inputs {
		inputs[i] = models.TripInput{
			DayOfWeek:        rng.Intn(7),
			Hour:             rng.Intn(24),
			LogHaversine:     0.5 + rng.Float64()*2,
			LogTripDuration:  5 + rng.Float64()*2,
			PickupLongitude:  -73.98 + rng.NormFloat64()*0.03,
			PickupLatitude:   40.75 + rng.NormFloat64()*0.03,
			DropoffLongitude: -73.97 + rng.NormFloat64()*0.04,
			DropoffLatitude:  40.74 + rng.NormFloat64()*0.04,
		}
	}
	return inputs
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestAPIRequiresToken(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/models", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFitAndTransformOverHTTP(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(http.MethodPost, "/api/v1/models", models.FitModelRequest{HorBins: 4, VerBins: 2})
	assert.Equal(t, http.StatusConflict, w.Code)

	train := randomInputs(11, 250)
	w, env := s.do(http.MethodPost, "/api/v1/trips", gin.H{"trips": train})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var imported models.ImportTripsResponse
	require.NoError(t, json.Unmarshal(env.Data, &imported))
	assert.Equal(t, 250, imported.Count)
	assert.Len(t, imported.IDs, 250)

	w, env = s.do(http.MethodPost, "/api/v1/models", models.FitModelRequest{HorBins: 4, VerBins: 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var model models.FeatureModelDetail
	require.NoError(t, json.Unmarshal(env.Data, &model))
	assert.Equal(t, 250, model.TrainingRows)
	assert.Equal(t, "coordinate", model.MatchMode)

	rows := randomInputs(12, 30)
	w, env = s.do(http.MethodPost, "/api/v1/models/"+model.ID+"/transform", gin.H{"rows": rows})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got []models.TransformResult
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, len(rows))

	traffic, err := features.NewTrafficClassifier(features.TrafficConfig{}, nil)
	require.NoError(t, err)
	grid, err := features.NewGridIndexer(features.GridConfig{HorBins: 4, VerBins: 2}, nil)
	require.NoError(t, err)
	pipeline := features.NewPipeline(traffic, grid)
	require.NoError(t, pipeline.Fit(dataframe.LoadStructs(train)))
	want, err := pipeline.Transform(dataframe.LoadStructs(rows))
	require.NoError(t, err)

	wantTraffic, err := want.Col(features.ColTraffic).Bool()
	require.NoError(t, err)
	wantFree, err := want.Col(features.ColNoTraffic).Bool()
	require.NoError(t, err)
	wantPickup, err := want.Col(features.ColPickupSquare).Int()
	require.NoError(t, err)
	wantDropoff, err := want.Col(features.ColDropoffSquare).Int()
	require.NoError(t, err)
	for i, r := range got {
		assert.Equal(t, wantTraffic[i], r.Trafic)
		assert.Equal(t, wantFree[i], r.NoTrafic)
		assert.Equal(t, wantPickup[i], r.PickupSquare)
		assert.Equal(t, wantDropoff[i], r.DropoffSquare)
	}

	w, env = s.do(http.MethodGet, "/api/v1/models/"+model.ID+"/cells?kind=dropoff", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cells models.GridCellsResponse
	require.NoError(t, json.Unmarshal(env.Data, &cells))
	assert.Equal(t, "dropoff", cells.Kind)
	assert.Len(t, cells.Cells, 8)

	w, _ = s.do(http.MethodGet, "/api/v1/models/"+model.ID+"/cells?kind=taxi", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(http.MethodGet, "/api/v1/models/"+model.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail models.FeatureModelDetail
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, model.State, detail.State)

	w, env = s.do(http.MethodGet, "/api/v1/models", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.FeatureModel
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)
}

func TestTripsListing(t *testing.T) {
	s := newTestServer(t)

	inputs := randomInputs(21, 5)
	inputs[0].DayOfWeek, inputs[0].Hour = 6, 23
	w, _ := s.do(http.MethodPost, "/api/v1/trips", gin.H{"trips": inputs})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := s.do(http.MethodGet, "/api/v1/trips?page=1&page_size=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page models.TripsResponse
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, int64(5), page.Total)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, 3, page.TotalPages)

	w, _ = s.do(http.MethodGet, "/api/v1/trips?day_of_week=9", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBadRequests(t *testing.T) {
	s := newTestServer(t)

	testCases := []struct {
		name string
		path string
		body interface{}
		want int
	}{
		{name: "empty import", path: "/api/v1/trips", body: gin.H{}, want: http.StatusBadRequest},
		{
			name: "hour out of range",
			path: "/api/v1/trips",
			body: gin.H{"trips": []models.TripInput{{DayOfWeek: 1, Hour: 24}}},
			want: http.StatusBadRequest,
		},
		{name: "zero bins", path: "/api/v1/models", body: models.FitModelRequest{HorBins: 0, VerBins: 2}, want: http.StatusBadRequest},
		{name: "unknown match", path: "/api/v1/models", body: models.FitModelRequest{HorBins: 2, VerBins: 2, Match: "fuzzy"}, want: http.StatusBadRequest},
		{
			name: "unknown model",
			path: "/api/v1/models/missing/transform",
			body: gin.H{"rows": randomInputs(1, 1)},
			want: http.StatusNotFound,
		},
		{
			name: "import row without bucket",
			path: "/api/v1/trips",
			body: gin.H{"trips": []gin.H{{"pickup_longitude": -73.9}}},
			want: http.StatusBadRequest,
		},
		{
			name: "transform row without coordinates",
			path: "/api/v1/models/missing/transform",
			body: gin.H{"rows": []gin.H{{"day_of_week": 1, "hour": 8, "log_haversine": 1.2, "log_trip_duration": 6.1}}},
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := s.do(http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	w, _ := s.do(http.MethodGet, "/api/v1/models/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// fullRow has every field present; fields can then be deleted one at a time.
func fullRow() gin.H {
	return gin.H{
		"day_of_week":       0,
		"hour":              0,
		"log_haversine":     1.2,
		"log_trip_duration": 6.1,
		"pickup_longitude":  -73.98,
		"pickup_latitude":   40.75,
		"dropoff_longitude": -73.97,
		"dropoff_latitude":  40.74,
	}
}

func TestMissingFieldsAreRejected(t *testing.T) {
	s := newTestServer(t)

	for field := range fullRow() {
		t.Run(field, func(t *testing.T) {
			row := fullRow()
			delete(row, field)

			w, _ := s.do(http.MethodPost, "/api/v1/trips", gin.H{"trips": []gin.H{fullRow(), row}})
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}

	// nothing was stored by the rejected imports
	w, _ := s.do(http.MethodPost, "/api/v1/models", models.FitModelRequest{HorBins: 2, VerBins: 2})
	require.Equal(t, http.StatusConflict, w.Code)

	// zero is a valid value when the key is present
	w, _ = s.do(http.MethodPost, "/api/v1/trips", gin.H{"trips": []gin.H{fullRow()}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w, _ = s.do(http.MethodPost, "/api/v1/trips", gin.H{"trips": randomInputs(31, 50)})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env := s.do(http.MethodPost, "/api/v1/models", models.FitModelRequest{HorBins: 2, VerBins: 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var model models.FeatureModelDetail
	require.NoError(t, json.Unmarshal(env.Data, &model))
	assert.Equal(t, 51, model.TrainingRows)

	partial := fullRow()
	delete(partial, "log_trip_duration")
	w, _ = s.do(http.MethodPost, "/api/v1/models/"+model.ID+"/transform", gin.H{"rows": []gin.H{partial}})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	w, _ = s.do(http.MethodPost, "/api/v1/models/"+model.ID+"/transform", gin.H{"rows": []gin.H{fullRow()}})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
