package box

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 5*time.Second)
}

func TestDownloadURLFollowsNoRedirect(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/files/42/content", r.URL.Path)
		assert.Equal(t, "Bearer read-token", r.Header.Get("Authorization"))
		w.Header().Set("Location", "https://dl.example.com/42?sig=abc")
		w.WriteHeader(http.StatusFound)
	})
	url, err := c.DownloadURL(context.Background(), "read-token", "42")
	require.NoError(t, err)
	assert.Equal(t, "https://dl.example.com/42?sig=abc", url)
}

func TestDownloadURLErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":"not_found"}`, http.StatusNotFound)
	})
	_, err := c.DownloadURL(context.Background(), "t", "42")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))

	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusAccepted)
	})
	_, err = c.DownloadURL(context.Background(), "t", "42")
	assert.True(t, IsStatus(err, http.StatusAccepted))
}

func TestUpdateSkillInvocation(t *testing.T) {
	var got SkillInvocationUpdate
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/skill_invocations/skill-9", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Write([]byte(`{"type":"metadata","cards":[]}`))
	})
	update := SkillInvocationUpdate{
		Status: InvocationProcessing,
		File:   Reference{Type: "file", ID: "42"},
		Metadata: CardMetadata{Cards: []SkillCard{{
			Type:          "skill_card",
			SkillCardType: CardTypeStatus,
			Title:         CardTitle{Code: "skill_x", Message: "X"},
			Status:        &CardStatus{Code: "processing", Message: "hold on"},
		}}},
	}
	raw, err := c.UpdateSkillInvocation(context.Background(), "write-token", "skill-9", update)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"metadata","cards":[]}`, string(raw))
	assert.Equal(t, update, got)
}

func TestUpdateSkillInvocationEmptyBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	raw, err := c.UpdateSkillInvocation(context.Background(), "t", "s", SkillInvocationUpdate{})
	require.NoError(t, err)
	assert.Equal(t, "{}", string(raw))
}

func TestDeleteSkillCards(t *testing.T) {
	status := http.StatusNoContent
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/files/42/metadata/global/boxSkillsCards", r.URL.Path)
		w.WriteHeader(status)
	})
	require.NoError(t, c.DeleteSkillCards(context.Background(), "t", "42"))

	status = http.StatusNotFound
	require.NoError(t, c.DeleteSkillCards(context.Background(), "t", "42"))

	status = http.StatusForbidden
	err := c.DeleteSkillCards(context.Background(), "t", "42")
	assert.True(t, IsStatus(err, http.StatusForbidden))
}
