package notifier_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coecms/cmorph-mirror/internal/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotifier_Notify(t *testing.T) {
	var got map[string]string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	n := &notifier.WebhookNotifier{WebhookURL: ts.URL}
	require.NoError(t, n.Notify("CMORPH sync finished: 0 updated, 28 new, 0 error"))
	assert.Equal(t, "CMORPH sync finished: 0 updated, 28 new, 0 error", got["content"])
}

func TestWebhookNotifier_Errors(t *testing.T) {
	t.Run("missing url", func(t *testing.T) {
		n := &notifier.WebhookNotifier{}
		assert.Error(t, n.Notify("anything"))
	})

	t.Run("bad status", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer ts.Close()

		n := &notifier.WebhookNotifier{WebhookURL: ts.URL}
		assert.Error(t, n.Notify("anything"))
	})
}
