package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/language"
)

func TestSplitFields(t *testing.T) {
	assert.Equal(t, []string{"title", "transitions"}, SplitFields(" title,,transitions ,"))
	assert.Nil(t, SplitFields(""))
}

func TestTrunc(t *testing.T) {
	assert.Equal(t, "Prü", Trunc("  Prüfung ", 3))
	assert.Equal(t, "ab", Trunc("ab", 3))
	assert.Equal(t, "a", Trunc("a b", 2))
}

func TestFormatLong(t *testing.T) {
	var ts = time.Date(2024, time.May, 7, 14, 5, 0, 0, time.UTC)
	assert.Equal(t, "7. Mai 2024 14:05 Uhr", FormatLong(ts, language.German))
	assert.Equal(t, "May 7, 2024 2:05 PM", FormatLong(ts, language.AmericanEnglish))
	assert.Equal(t, "", FormatLong(time.Time{}, language.German))
}

func TestHandlePrefix(t *testing.T) {
	var mux = http.NewServeMux()
	HandlePrefix(mux, "/lims/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}))

	var rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lims/read/clients", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/lims/login", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlePrefixRoot(t *testing.T) {
	var mux = http.NewServeMux()
	HandlePrefix(mux, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"/login", http.StatusSeeOther)
	}))

	var rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/read", nil))
	assert.Equal(t, "/read/login", rec.Header().Get("Location"))
}
