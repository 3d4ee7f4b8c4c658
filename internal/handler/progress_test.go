package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"fibre-tracker/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockProgressService is a mock implementation of the ProgressService interface
type MockProgressService struct {
	mock.Mock
}

func (m *MockProgressService) Progress(ctx context.Context) (models.ProgressReport, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.ProgressReport), args.Error(1)
}

func TestProgressHandler_Progress(t *testing.T) {
	gin.SetMode(gin.TestMode)

	report := models.ProgressReport{
		Suburbs: models.Progress{
			All:    models.StateTallies{"ACT": models.NewTally(2, 4)},
			Listed: models.StateTallies{"ACT": models.NewTally(1, 2)},
		},
	}

	tests := []struct {
		name           string
		mockReport     models.ProgressReport
		mockError      error
		expectedStatus int
		expectedBody   interface{}
	}{
		{
			name:           "progress report",
			mockReport:     report,
			expectedStatus: http.StatusOK,
			expectedBody: map[string]interface{}{
				"suburbs": map[string]interface{}{
					"all":    map[string]interface{}{"ACT": map[string]interface{}{"done": 2.0, "total": 4.0, "percent": 50.0}},
					"listed": map[string]interface{}{"ACT": map[string]interface{}{"done": 1.0, "total": 2.0, "percent": 50.0}},
				},
				"addresses": map[string]interface{}{"all": nil, "listed": nil},
			},
		},
		{
			name:           "service error",
			mockError:      assert.AnError,
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   map[string]interface{}{"error": "internal server error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			mockSvc := new(MockProgressService)
			mockSvc.On("Progress", mock.Anything).Return(tt.mockReport, tt.mockError)
			handler := NewProgressHandler(mockSvc)

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/progress", nil)

			// Execute
			handler.Progress(c)

			// Assert
			assert.Equal(t, tt.expectedStatus, w.Code)

			var actualBody interface{}
			err := json.Unmarshal(w.Body.Bytes(), &actualBody)
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedBody, actualBody)
			mockSvc.AssertExpectations(t)
		})
	}
}
