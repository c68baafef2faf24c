package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront/internal/domain"
)

type cartBody struct {
	Cart       domain.GroupCart `json:"cart"`
	InviteLink string           `json:"inviteLink"`
	Notice     domain.Notice    `json:"notice"`
}

type errorBody struct {
	Error domain.Notice `json:"error"`
}

func TestGroupCartLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	owner, ownerToken := f.guest(t, "Ada")
	friend, friendToken := f.guest(t, "Bo")

	rec := f.do(t, http.MethodPost, "/group-carts", "", ownerToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	created := decode[cartBody](t, rec)
	if created.Cart.OwnerID != owner.ID || len(created.Cart.Members) != 1 {
		t.Fatalf("unexpected cart %+v", created.Cart)
	}
	if created.Notice.Title != "Group created!" {
		t.Fatalf("unexpected notice %+v", created.Notice)
	}
	if created.InviteLink != "https://shop.test/join/"+created.Cart.ID {
		t.Fatalf("unexpected invite link %q", created.InviteLink)
	}
	base := "/group-carts/" + created.Cart.ID

	rec = f.do(t, http.MethodPost, base+"/members", "", friendToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("join: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	joined := decode[cartBody](t, rec)
	if !joined.Cart.HasMember(friend.ID) || joined.Notice.Title != "Joined Group!" {
		t.Fatalf("unexpected join response %+v", joined)
	}

	f.do(t, http.MethodPost, base+"/items", `{"productId":"p1"}`, friendToken)
	rec = f.do(t, http.MethodPost, base+"/items", `{"productId":"p1"}`, ownerToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("add: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	added := decode[cartBody](t, rec)
	if len(added.Cart.CartItems) != 1 || added.Cart.CartItems[0].Quantity != 2 || added.Cart.CartItems[0].AddedBy != friend.ID {
		t.Fatalf("unexpected items %+v", added.Cart.CartItems)
	}

	rec = f.do(t, http.MethodGet, base, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, base+"/leave", "", friendToken)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Left Group") {
		t.Fatalf("leave: unexpected %d %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, base+"/items", `{"productId":"p2"}`, friendToken)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("add after leave: expected 403, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodDelete, base, "", ownerToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodGet, base, "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", rec.Code)
	}
}

func TestGroupCartMutationsRequireGuest(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodPost, "/group-carts", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/group-carts", "", "not-a-token")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", rec.Code)
	}
}

func TestGroupCartCookieIdentity(t *testing.T) {
	f := newFixture(t, nil)
	owner, token := f.guest(t, "Ada")
	req := httptest.NewRequest(http.MethodPost, "/group-carts", nil)
	req.AddCookie(&http.Cookie{Name: guestCookie, Value: token})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	if decode[cartBody](t, rec).Cart.OwnerID != owner.ID {
		t.Fatalf("expected cart owned by cookie guest")
	}
}

func TestJoinUnknownGroupCart(t *testing.T) {
	f := newFixture(t, nil)
	_, token := f.guest(t, "Bo")
	rec := f.do(t, http.MethodPost, "/group-carts/missing/members", "", token)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	body := decode[errorBody](t, rec)
	if body.Error.Title != "Failed to Join Group" || !body.Error.Destructive {
		t.Fatalf("unexpected notice %+v", body.Error)
	}
}

func TestAddItemErrors(t *testing.T) {
	f := newFixture(t, nil)
	owner, token := f.guest(t, "Ada")
	cart, err := f.carts.Create(context.Background(), owner)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	path := "/group-carts/" + cart.ID + "/items"

	cases := []struct {
		name string
		body string
		want int
	}{
		{name: "missing product id", body: `{}`, want: http.StatusBadRequest},
		{name: "malformed body", body: `{`, want: http.StatusBadRequest},
		{name: "unknown product", body: `{"productId":"nope"}`, want: http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, path, tc.body, token)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d body=%s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestDeleteGroupCart_NonOwnerForbidden(t *testing.T) {
	f := newFixture(t, nil)
	owner, _ := f.guest(t, "Ada")
	friend, friendToken := f.guest(t, "Bo")
	cart, err := f.carts.Create(context.Background(), owner)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.carts.Join(context.Background(), cart.ID, friend); err != nil {
		t.Fatalf("join: %v", err)
	}
	rec := f.do(t, http.MethodDelete, "/group-carts/"+cart.ID, "", friendToken)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

type sseEvent struct {
	name string
	data string
}

func readEvent(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()
	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read event: %v", err)
		}
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if ev.name != "" || ev.data != "" {
				return ev
			}
		case strings.HasPrefix(line, "event:"):
			ev.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			ev.data += strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
}

func openStream(t *testing.T, srv *httptest.Server, cartID string) *bufio.Reader {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/group-carts/"+cartID+"/events", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %q", ct)
	}
	return bufio.NewReader(resp.Body)
}

func TestStreamGroupCart_SnapshotsThenDeleted(t *testing.T) {
	f := newFixture(t, nil)
	owner, _ := f.guest(t, "Ada")
	friend, _ := f.guest(t, "Bo")
	cart, err := f.carts.Create(context.Background(), owner)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	events := openStream(t, srv, cart.ID)
	first := readEvent(t, events)
	if first.name != "snapshot" {
		t.Fatalf("expected snapshot, got %+v", first)
	}
	var snap domain.GroupCart
	if err := json.Unmarshal([]byte(first.data), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.ID != cart.ID || len(snap.Members) != 1 {
		t.Fatalf("unexpected first snapshot %+v", snap)
	}

	if _, err := f.carts.Join(context.Background(), cart.ID, friend); err != nil {
		t.Fatalf("join: %v", err)
	}
	next := readEvent(t, events)
	if next.name != "snapshot" || !strings.Contains(next.data, friend.ID) {
		t.Fatalf("expected snapshot with new member, got %+v", next)
	}

	if err := f.carts.Delete(context.Background(), cart.ID, owner); err != nil {
		t.Fatalf("delete: %v", err)
	}
	last := readEvent(t, events)
	if last.name != "deleted" || !strings.Contains(last.data, cart.ID) {
		t.Fatalf("expected deleted event, got %+v", last)
	}
}

func TestStreamGroupCart_UnknownCartEndsImmediately(t *testing.T) {
	f := newFixture(t, nil)
	srv := httptest.NewServer(f.router)
	t.Cleanup(srv.Close)

	ev := readEvent(t, openStream(t, srv, "missing"))
	if ev.name != "deleted" {
		t.Fatalf("expected deleted event, got %+v", ev)
	}
}
