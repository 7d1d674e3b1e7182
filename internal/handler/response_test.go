package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"orderbackup/internal/service"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrTokenRequired, http.StatusBadRequest},
		{fmt.Errorf("restore: %w", service.ErrNoRestorePoint), http.StatusNotFound},
		{service.ErrDataIntegrity, http.StatusUnprocessableEntity},
		{service.ErrSyncPaused, http.StatusConflict},
		{service.ErrQueueFull, http.StatusServiceUnavailable},
		{service.ErrJobsStopped, http.StatusServiceUnavailable},
		{errors.New("connection reset"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}
