package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"orderbackup/internal/service"
)

func TestJobStreamDeliversTerminalStatus(t *testing.T) {
	a := newTestAPI(t)
	srv := httptest.NewServer(a.engine)
	defer srv.Close()
	admin := a.admin(t)

	var handle service.JobHandle
	w := a.do(t, http.MethodPost, "/api/sync", admin, map[string]any{"token_id": "tok-a"})
	require.Equal(t, http.StatusAccepted, w.Code)
	decode(t, w, &handle)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sync/jobs/" + handle.JobID + "/ws?access_token=" + admin
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var last service.JobHandle
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err), "read: %v", err)
			break
		}
		require.NoError(t, json.Unmarshal(data, &last))
		assert.Equal(t, handle.JobID, last.JobID)
	}
	assert.Equal(t, service.JobFailed, last.Status)
}

func TestJobStreamUnknownJob(t *testing.T) {
	a := newTestAPI(t)
	srv := httptest.NewServer(a.engine)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sync/jobs/missing/ws?access_token=" + a.admin(t)
	_, resp, err := websocket.Dial(ctx, url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, errors.Is(err, context.DeadlineExceeded))
}
