package amaranth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gwreport-backend/lib/telemetry"
	"gwreport-backend/lib/timezone"

	"github.com/stretchr/testify/require"
)

func TestListingFetchPage(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/amaranth")
	defer cleanup()

	var gotStart, gotEnd string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/approval/document/list.do":
			gotStart = r.URL.Query().Get("searchStartDate")
			gotEnd = r.URL.Query().Get("searchEndDate")
			switch r.URL.Query().Get("pageIndex") {
			case "1":
				fmt.Fprint(w, `<html><table class="list"><tr><td>row</td></tr></table></html>`)
			case "2":
				w.WriteHeader(http.StatusForbidden)
			default:
				fmt.Fprint(w, `<html></html>`)
			}
		default:
			fmt.Fprint(w, `<html><body>main</body></html>`)
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	client, err := NewClient(ctx, ClientOptions{BaseUrl: server.URL})
	if err != nil {
		t.Fatal(err)
	}
	err = client.LoginUsernamePassword(ctx, "user", "pw")
	if err != nil {
		t.Fatal(err)
	}

	listing := client.Listing(
		timezone.Date(2024, time.January, 1),
		timezone.Date(2024, time.March, 31),
	)

	body, err := listing.FetchPage(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	require.Contains(t, body, "row")
	require.Equal(t, "2024-01-01", gotStart)
	require.Equal(t, "2024-03-31", gotEnd)

	_, err = listing.FetchPage(ctx, 2)
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestLoginFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><form><input name="userId"/><input name="userPw"/></form></html>`)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	client, err := NewClient(ctx, ClientOptions{BaseUrl: server.URL})
	if err != nil {
		t.Fatal(err)
	}
	err = client.LoginUsernamePassword(ctx, "user", "wrong")
	require.ErrorIs(t, err, LoginFailed)
}
