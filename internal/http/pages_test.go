package handlers_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicPagesRender(t *testing.T) {
	app := newTestApp(t)
	for path, want := range map[string]string{
		"/":                "Calculus: Early Transcendentals",
		"/items/ti-84":     "TI-84 Plus Calculator",
		"/users/u-alice":   "Alice",
		"/search":          "Search",
		"/search?q=lamp":   "LED Desk Lamp",
		"/login":           "Log in",
		"/register":        "Create an account",
		"/items/not-there": "no longer listed",
	} {
		resp := app.get(t, path, "")
		body := bodyString(t, resp)
		assert.Contains(t, body, want, path)
	}
}

func TestSearchRejectsInvalidInput(t *testing.T) {
	app := newTestApp(t)
	entries := captureLogs(t, func() {
		resp := app.get(t, "/search?q="+url.QueryEscape("<script>"), "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
	e, ok := findLog(entries, "validation.fail")
	require.True(t, ok, "validation.fail log not found")
	assert.Equal(t, "q", e.Fields["field"])

	resp := app.get(t, "/search?q=lamp&mode=rent", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProtectedPagesRedirectAnonymous(t *testing.T) {
	app := newTestApp(t)
	for _, p := range []string{"/transactions", "/saved", "/items/new", "/items/ti-84/request"} {
		resp := app.get(t, p, "")
		assert.Equal(t, http.StatusFound, resp.StatusCode, p)
		assert.Equal(t, "/login", resp.Header.Get("Location"), p)
	}
}

func TestCSRFRequiredForForms(t *testing.T) {
	app := newTestApp(t)
	sid := app.login(t, "u-bob")
	resp := app.postForm(t, "/saved", sid, "", url.Values{"item_id": {"calc-early"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	tok := app.csrfToken(t)
	resp = app.postForm(t, "/saved", sid, tok, url.Values{"item_id": {"calc-early"}})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Contains(t, bodyString(t, app.get(t, "/saved", sid)), "Calculus")

	resp = app.postForm(t, "/saved/delete", sid, tok, url.Values{"item_id": {"calc-early"}})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.NotContains(t, bodyString(t, app.get(t, "/saved", sid)), "Calculus")
}

func TestCreateListingForm(t *testing.T) {
	app := newTestApp(t)
	tok := app.csrfToken(t)
	sid := app.login(t, "u-carol")

	resp := app.postForm(t, "/items", sid, tok, url.Values{
		"title": {"Mini fridge"}, "availability_mode": {"sell"}, "price": {"60"},
		"category_id": {"furniture"}, "pickup_location": {"South dorms"},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(loc, "/items/"), loc)

	body := bodyString(t, app.get(t, loc, ""))
	assert.Contains(t, body, "Mini fridge")
	assert.Contains(t, body, "$60.00")

	resp = app.postForm(t, "/items", sid, tok, url.Values{"title": {"Chair"}, "availability_mode": {"sell"}, "price": {"abc"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = app.postForm(t, "/items", sid, tok, url.Values{"title": {""}, "availability_mode": {"lend"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

// Request, confirm and complete a lend through the forms.
func TestLendThroughForms(t *testing.T) {
	app := newTestApp(t)
	tok := app.csrfToken(t)
	bob, carol := app.login(t, "u-bob"), app.login(t, "u-carol")

	resp := app.postForm(t, "/items/ti-84/request", carol, tok, url.Values{"type": {"lend"}, "start_date": {"2025-02-03"}})
	require.Equal(t, http.StatusFound, resp.StatusCode, bodyString(t, resp))
	loc := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(loc, "/transactions/"), loc)

	assert.Contains(t, bodyString(t, app.get(t, loc, carol)), "pending")
	assert.Contains(t, bodyString(t, app.get(t, "/transactions", bob)), "TI-84")

	// outsiders see a 404 and the attempt is logged
	entries := captureLogs(t, func() {
		resp = app.get(t, loc, app.login(t, "u-alice"))
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_, ok := findLog(entries, "transactions.view.denied")
	assert.True(t, ok, "denied view not logged")

	// a second request for the same item is refused
	resp = app.postForm(t, "/items/ti-84/request", app.login(t, "u-alice"), tok, url.Values{"type": {"lend"}})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = app.postForm(t, loc+"/confirm", bob, tok, nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Contains(t, bodyString(t, app.get(t, loc, bob)), "active")

	// complete needs a return date for lends
	resp = app.postForm(t, loc+"/complete", bob, tok, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = app.postForm(t, loc+"/complete", bob, tok, url.Values{"return_date": {"2025-02-12"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	body := bodyString(t, app.get(t, loc, bob))
	assert.Contains(t, body, "late")
	assert.Contains(t, body, "2 day(s) late: $20.00")

	resp = app.postForm(t, loc+"/penalty/waive", bob, tok, nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	resp = app.postForm(t, loc+"/resolve", bob, tok, nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Contains(t, bodyString(t, app.get(t, loc, bob)), "completed")

	resp = app.postForm(t, loc+"/ratings", carol, tok, url.Values{"rating": {"4"}, "comment": {"works fine"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Contains(t, bodyString(t, app.get(t, "/users/u-bob", "")), "works fine")
}
