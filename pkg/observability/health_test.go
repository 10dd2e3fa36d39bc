package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*HealthChecker, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewHealthChecker(db, nil, "test"), mock
}

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestHealthChecker_Check(t *testing.T) {
	t.Run("database healthy", func(t *testing.T) {
		checker, mock := newMockDB(t)
		mock.ExpectPing()
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

		status := checker.Check(context.Background())

		assert.Equal(t, StatusHealthy, status.Status)
		assert.Equal(t, "test", status.Version)
		assert.Equal(t, StatusHealthy, status.Dependencies["database"].Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database ping fails", func(t *testing.T) {
		checker, mock := newMockDB(t)
		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		status := checker.Check(context.Background())

		assert.Equal(t, StatusUnhealthy, status.Status)
		assert.Contains(t, status.Dependencies["database"].Message, "connection refused")
	})

	t.Run("database query fails", func(t *testing.T) {
		checker, mock := newMockDB(t)
		mock.ExpectPing()
		mock.ExpectQuery("SELECT 1").WillReturnError(errors.New("read only"))

		status := checker.Check(context.Background())

		assert.Equal(t, StatusUnhealthy, status.Status)
		assert.Contains(t, status.Dependencies["database"].Message, "query failed")
	})

	t.Run("redis healthy", func(t *testing.T) {
		client, _ := newRedis(t)
		checker := NewHealthChecker(nil, client, "")

		status := checker.Check(context.Background())

		assert.Equal(t, StatusHealthy, status.Status)
		assert.Equal(t, StatusHealthy, status.Dependencies["redis"].Status)
		_, hasDB := status.Dependencies["database"]
		assert.False(t, hasDB)
	})

	t.Run("redis down degrades", func(t *testing.T) {
		client, mr := newRedis(t)
		mr.Close()

		checker, mock := newMockDB(t)
		checker.redis = client
		mock.ExpectPing()
		mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

		status := checker.Check(context.Background())

		assert.Equal(t, StatusDegraded, status.Status)
		assert.Equal(t, StatusUnhealthy, status.Dependencies["redis"].Status)
		assert.Equal(t, StatusHealthy, status.Dependencies["database"].Status)
	})
}

func TestRegisterHealthRoutes(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		pingErr  error
		wantCode int
		wantStat string
	}{
		{"live ignores dependencies", "/health/live", errors.New("down"), http.StatusOK, StatusHealthy},
		{"ready healthy", "/health/ready", nil, http.StatusOK, StatusHealthy},
		{"ready unhealthy", "/health/ready", errors.New("down"), http.StatusServiceUnavailable, StatusUnhealthy},
		{"health alias", "/health", errors.New("down"), http.StatusServiceUnavailable, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker, mock := newMockDB(t)
			if tt.pingErr != nil {
				mock.ExpectPing().WillReturnError(tt.pingErr)
			} else {
				mock.ExpectPing()
				mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
			}

			router := mux.NewRouter()
			RegisterHealthRoutes(router, checker)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var status HealthStatus
			require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
			assert.Equal(t, tt.wantStat, status.Status)
		})
	}
}
