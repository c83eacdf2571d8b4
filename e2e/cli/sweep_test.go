package cli_test

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/cookiesweep/e2e/harness"
	"github.com/artpar/cookiesweep/e2e/testserver"
)

func TestCLI_ListAndDelete(t *testing.T) {
	h := harness.New(t, harness.Config{Protected: []string{"github"}})
	h.Seed(
		harness.Cookie(".example.com", "a"),
		harness.Cookie("www.example.com", "b"),
		harness.Cookie(".tracker.net", "id"),
		harness.Cookie("github.com", "session"),
	)
	check := harness.NewAssertions(t)

	t.Run("list shows every domain", func(t *testing.T) {
		result, err := h.CLI().List()
		require.NoError(t, err)

		check.OutputContains(result.Stdout, ".example.com", "www.example.com", ".tracker.net", "github.com")
		check.OutputContains(result.Stdout, "4 of 4 domains, 4 cookies total")
	})

	t.Run("delete one domain", func(t *testing.T) {
		result, err := h.CLI().DeleteDomain(".tracker.net")
		require.NoError(t, err)

		check.OutputContains(result.Stdout, "Deleted 1 cookies from .tracker.net")
		check.StoreHolds(h.Stored(), ".example.com/a", "www.example.com/b", "github.com/session")
	})

	t.Run("delete all keeps protected domains", func(t *testing.T) {
		result, err := h.CLI().DeleteAll()
		require.NoError(t, err)

		check.OutputContains(result.Stdout, "except github")
		check.StoreHolds(h.Stored(), "github.com/session")
	})

	t.Run("list after deleting", func(t *testing.T) {
		result, err := h.CLI().List("--filter", "example")
		require.NoError(t, err)

		check.OutputContains(result.Stdout, "0 of 1 domains")
	})
}

func TestCLI_DeleteFiltered(t *testing.T) {
	h := harness.New(t, harness.Config{})
	h.Seed(
		harness.Cookie("ads.example.com", "a"),
		harness.Cookie("ads.other.org", "b"),
		harness.Cookie("news.org", "c"),
	)

	result, err := h.CLI().DeleteFiltered("ads")
	require.NoError(t, err)

	harness.NewAssertions(t).OutputContains(result.Stdout, "Deleted 2 cookies")
	harness.NewAssertions(t).StoreHolds(h.Stored(), "news.org/c")
}

func TestCLI_ImportThenList(t *testing.T) {
	h := harness.New(t, harness.Config{})

	path := filepath.Join(h.TmpDir(), "cookies.txt")
	future := time.Now().Add(time.Hour).Unix()
	content := "# Netscape HTTP Cookie File\n" +
		fmt.Sprintf(".example.com\tTRUE\t/\tFALSE\t%d\tsid\tv1\n", future) +
		fmt.Sprintf(".example.com\tTRUE\t/\tFALSE\t%d\tpref\tv2\n", future) +
		"news.org\tFALSE\t/\tFALSE\t0\tn\tv3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	result, err := h.CLI().Import(path)
	require.NoError(t, err)
	assert.Contains(t, result.Stdout, "Imported 3 of 3 cookies")

	result, err = h.CLI().List()
	require.NoError(t, err)
	harness.NewAssertions(t).OutputContains(result.Stdout, ".example.com", "news.org", "2 of 2 domains, 3 cookies total")
}

func TestCLI_FetchCollectsCookies(t *testing.T) {
	handlers := testserver.Handlers{}
	srv := testserver.New(map[string]http.HandlerFunc{
		"/login":  handlers.Redirect("/home", &http.Cookie{Name: "sid", Value: "s1", Path: "/"}),
		"/home":   handlers.SetCookies(&http.Cookie{Name: "theme", Value: "dark", Path: "/"}),
		"/logout": handlers.Expire("sid"),
	})
	defer srv.Close()

	h := harness.New(t, harness.Config{})
	check := harness.NewAssertions(t)

	result, err := h.CLI().Fetch(srv.URL + "/login")
	require.NoError(t, err)
	check.OutputContains(result.Stdout, "200 OK")
	assert.Equal(t, "s1", srv.LastRequest().Cookies["sid"])
	check.StoreHolds(h.Stored(), "127.0.0.1/sid", "127.0.0.1/theme")

	_, err = h.CLI().Fetch(srv.URL + "/logout")
	require.NoError(t, err)
	check.StoreHolds(h.Stored(), "127.0.0.1/theme")

	result, err = h.CLI().List()
	require.NoError(t, err)
	check.OutputContains(result.Stdout, "127.0.0.1")
}

func TestCLI_FetchErrorStatusSendsStoredCookies(t *testing.T) {
	handlers := testserver.Handlers{}
	srv := testserver.New(map[string]http.HandlerFunc{
		"/login":   handlers.SetCookies(&http.Cookie{Name: "sid", Value: "s1", Path: "/"}),
		"/missing": handlers.Status(http.StatusNotFound),
	})
	defer srv.Close()

	h := harness.New(t, harness.Config{})
	check := harness.NewAssertions(t)

	_, err := h.CLI().Fetch(srv.URL + "/login")
	require.NoError(t, err)

	result, err := h.CLI().Fetch(srv.URL + "/missing")
	require.NoError(t, err)
	check.OutputContains(result.Stdout, "404 Not Found", "1 cookies now sent to")
	check.OutputNotContains(result.Stdout, "  set ")
	assert.Equal(t, "/missing", srv.LastRequest().Path)
	assert.Equal(t, "s1", srv.LastRequest().Cookies["sid"])
	check.StoreHolds(h.Stored(), "127.0.0.1/sid")
}
