package session

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/client"
	"storefront/internal/domain"
	"storefront/internal/httpserver"
	groupcartrepo "storefront/internal/repository/groupcart"
	productrepo "storefront/internal/repository/product"
	groupcartsvc "storefront/internal/service/groupcart"
	"storefront/internal/service/guest"
	productsvc "storefront/internal/service/product"
)

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	catalog := productsvc.New(productrepo.NewMemory(
		domain.Product{ID: "p1", Name: "Linen Shirt", Category: "Apparel", Price: 4999, Stock: 3},
	))
	carts := groupcartsvc.New(groupcartrepo.NewMemory(), catalog, groupcartsvc.Options{PublicOrigin: "https://shop.test"})
	srv, err := httpserver.New(":0", nil, httpserver.Deps{
		GroupCarts: carts,
		Products:   catalog,
		Guests:     guest.New(nil),
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func newHTTPSession(t *testing.T, baseURL, name string) (*Session, *client.Client) {
	t.Helper()
	c := client.New(baseURL)
	user, err := c.IssueGuest(context.Background(), name)
	require.NoError(t, err)
	s := New(NewHTTPBackend(c), NewMemoryKV(), user, Options{Live: true})
	t.Cleanup(func() { _ = s.Close() })
	return s, c
}

func TestHTTPSessionFollowsServer(t *testing.T) {
	ts := newAPIServer(t)
	ctx := context.Background()
	owner, ownerClient := newHTTPSession(t, ts.URL, "Ana")
	friend, _ := newHTTPSession(t, ts.URL, "Ben")

	cart, _, err := owner.Start(ctx)
	require.NoError(t, err)

	_, err = friend.JoinByLink(ctx, "https://shop.test/join/"+cart.ID)
	require.NoError(t, err)

	_, _, err = friend.AddItem(ctx, "p1")
	require.NoError(t, err)
	eventually(t, func() bool {
		snap := owner.Snapshot()
		if snap == nil {
			return false
		}
		_, ok := snap.Item("p1")
		return ok
	}, "owner should see the added item")

	require.NoError(t, ownerClient.DeleteGroupCart(ctx, cart.ID))
	eventually(t, func() bool { return friend.State() == Solo }, "friend should drop to solo")
	eventually(t, func() bool { return owner.State() == Solo }, "owner should drop to solo")
	assert.Empty(t, friend.ActiveCartID())
}
