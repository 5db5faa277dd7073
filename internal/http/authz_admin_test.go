package handlers_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
)

// /admin requires the ADMIN role
func TestAdminGuardRequiresAdmin(t *testing.T) {
	app := newTestApp(t)

	// Anonymous -> redirect
	if got := app.get(t, "/admin", "").StatusCode; got != http.StatusFound {
		t.Fatalf("expected redirect, got %d", got)
	}

	// Logged-in non-admin -> 403, and the denial is logged
	userSID := app.login(t, "u-alice")
	entries := captureLogs(t, func() {
		if got := app.get(t, "/admin", userSID).StatusCode; got != http.StatusForbidden {
			t.Fatalf("expected forbidden for non-admin, got %d", got)
		}
	})
	if _, ok := findLog(entries, "access.denied.admin"); !ok {
		t.Fatal("access.denied.admin log not found")
	}

	// Admin -> 200 with counts
	adminSID := app.login(t, "u-admin")
	resp := app.get(t, "/admin", adminSID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin expected 200, got %d", resp.StatusCode)
	}
	if body := bodyString(t, resp); !strings.Contains(body, "available: 4") {
		t.Fatalf("dashboard missing item counts; body=%s", body)
	}
}

func TestAdminPagesRender(t *testing.T) {
	app := newTestApp(t)
	sid := app.login(t, "u-admin")
	for _, p := range []string{"/admin/transactions", "/admin/transactions?status=late", "/admin/penalties", "/admin/users"} {
		if got := app.get(t, p, sid).StatusCode; got != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", p, got)
		}
	}
}

// Deleting a borrower frees the item they had reserved.
func TestAdminDeleteUserReleasesHeldItems(t *testing.T) {
	app := newTestApp(t)
	tok := app.csrfToken(t)
	bob := app.login(t, "u-bob")

	resp := app.postForm(t, "/items/desk-lamp/request", bob, tok, url.Values{"type": {"sell"}, "final_price": {"12.50"}})
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("request expected redirect, got %d body=%s", resp.StatusCode, bodyString(t, resp))
	}
	var status string
	if err := app.DB.Get(&status, `SELECT status FROM items WHERE id='desk-lamp'`); err != nil {
		t.Fatal(err)
	}
	if status != "reserved" {
		t.Fatalf("expected reserved, got %s", status)
	}

	admin := app.login(t, "u-admin")
	entries := captureLogs(t, func() {
		resp = app.postForm(t, "/admin/users/u-bob/delete", admin, tok, nil)
	})
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("delete expected redirect, got %d", resp.StatusCode)
	}
	if _, ok := findLog(entries, "admin.users.delete"); !ok {
		t.Fatal("admin.users.delete audit log not found")
	}
	if err := app.DB.Get(&status, `SELECT status FROM items WHERE id='desk-lamp'`); err != nil {
		t.Fatal(err)
	}
	if status != "available" {
		t.Fatalf("expected available after borrower removal, got %s", status)
	}
	var n int
	if err := app.DB.Get(&n, `SELECT COUNT(*) FROM items WHERE owner_id='u-bob'`); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("bob's listings should cascade, %d left", n)
	}
}
