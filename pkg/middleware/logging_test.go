package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TheWonderFran/wonder-tasks/pkg/config"
)

func TestLogger_PassesRequestThroughInBothEnvironments(t *testing.T) {
	for _, env := range []string{"development", "production"} {
		cfg := &config.Config{Environment: env}

		called := false
		h := Logger(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusTeapot)
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

		assert.True(t, called, env)
		assert.Equal(t, http.StatusTeapot, rec.Code, env)
	}
}
