package testhelpers

import (
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTestServerServesHandler(t *testing.T) {
	srv := NewTestServer(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusTeapot, resp.StatusCode)
}

func TestWaitGroupDoneOnceOnlyDecrementsOnce(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	done := WaitGroupDoneOnce(&wg)

	done()
	done() // must not panic with "negative WaitGroup counter"
	wg.Wait()
}
