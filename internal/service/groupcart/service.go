package groupcart

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"storefront/internal/cache"
	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/realtime"
	groupcartrepo "storefront/internal/repository/groupcart"
)

type productLookup interface {
	Get(ctx context.Context, id string) (*domain.Product, error)
}

// Options carries the optional collaborators of Service. Zero values fall
// back to in-process or no-op implementations.
type Options struct {
	Cache          cache.SnapshotCache
	Broker         realtime.Broker
	Events         events.Publisher
	Logger         *log.Logger
	PublicOrigin   string
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Now            func() time.Time
	NewID          func() string
}

type Service struct {
	store    groupcartrepo.Store
	products productLookup
	cache    cache.SnapshotCache
	broker   realtime.Broker
	events   events.Publisher
	logger   *log.Logger
	origin   string

	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	now            func() time.Time
	newID          func() string

	sfg  singleflight.Group
	gens [64]cacheGen
}

// cacheGen counts committed mutations for the carts hashing to it. A cache
// fill is only written if no mutation committed while the store was read.
type cacheGen struct {
	mu  sync.Mutex
	gen uint64
}

func (s *Service) genFor(cartID string) *cacheGen {
	h := fnv.New32a()
	_, _ = h.Write([]byte(cartID))
	return &s.gens[h.Sum32()%uint32(len(s.gens))]
}

func New(store groupcartrepo.Store, products productLookup, opts Options) *Service {
	s := &Service{
		store:          store,
		products:       products,
		cache:          opts.Cache,
		broker:         opts.Broker,
		events:         opts.Events,
		logger:         opts.Logger,
		origin:         strings.TrimRight(opts.PublicOrigin, "/"),
		maxAttempts:    opts.MaxAttempts,
		initialBackoff: opts.InitialBackoff,
		maxBackoff:     opts.MaxBackoff,
		now:            opts.Now,
		newID:          opts.NewID,
	}
	if s.cache == nil {
		s.cache = cache.Nop{}
	}
	if s.broker == nil {
		s.broker = realtime.NewHub()
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = 8
	}
	if s.initialBackoff <= 0 {
		s.initialBackoff = 20 * time.Millisecond
	}
	if s.maxBackoff <= 0 {
		s.maxBackoff = 500 * time.Millisecond
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// InviteLink returns the shareable URL that joins cartID when opened.
func (s *Service) InviteLink(cartID string) string {
	return s.origin + "/join/" + cartID
}

// Create starts a group cart owned by owner, who is its only member.
func (s *Service) Create(ctx context.Context, owner domain.User) (*domain.GroupCart, error) {
	if !owner.Valid() {
		return nil, domain.ErrOwnerInvalid
	}
	cart := domain.NewGroupCart(s.newID(), owner, s.now())
	created, err := s.store.Create(ctx, cart)
	if err != nil {
		s.logger.Printf("groupcart service: create owner_id=%s error=%v", owner.ID, err)
		return nil, fmt.Errorf("create group cart: %w", err)
	}
	s.logger.Printf("groupcart service: created cart_id=%s owner_id=%s", created.ID, owner.ID)
	s.afterMutation(ctx, events.New(events.TypeCreated, created.ID, owner.ID))
	return created, nil
}

// Get returns the current cart, served from the snapshot cache when possible.
func (s *Service) Get(ctx context.Context, cartID string) (*domain.GroupCart, error) {
	if strings.TrimSpace(cartID) == "" {
		return nil, domain.ErrCartNotFound
	}
	v, err, _ := s.sfg.Do(cartID, func() (interface{}, error) {
		cached, err := s.cache.Get(ctx, cartID)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Printf("groupcart service: cache get cart_id=%s error=%v", cartID, err)
		}

		g := s.genFor(cartID)
		g.mu.Lock()
		seen := g.gen
		g.mu.Unlock()

		cart, err := s.store.Get(ctx, cartID)
		if err != nil {
			return nil, err
		}

		g.mu.Lock()
		defer g.mu.Unlock()
		if g.gen != seen {
			return cart, nil
		}
		if err := s.cache.Set(ctx, cartID, cart); err != nil {
			s.logger.Printf("groupcart service: cache set cart_id=%s error=%v", cartID, err)
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	cart := v.(*domain.GroupCart).Clone()
	return &cart, nil
}

// Join adds user to the cart. Joining twice is a no-op.
func (s *Service) Join(ctx context.Context, cartID string, user domain.User) (*domain.GroupCart, error) {
	if !user.Valid() {
		return nil, fmt.Errorf("join: user id required: %w", domain.ErrValidation)
	}
	if strings.TrimSpace(cartID) == "" {
		return nil, domain.ErrCartNotFound
	}
	changed, err := s.store.AddMember(ctx, cartID, user)
	if err != nil {
		s.logger.Printf("groupcart service: join cart_id=%s user_id=%s error=%v", cartID, user.ID, err)
		return nil, fmt.Errorf("join group cart %s: %w", cartID, err)
	}
	if changed {
		s.logger.Printf("groupcart service: joined cart_id=%s user_id=%s", cartID, user.ID)
		s.afterMutation(ctx, events.New(events.TypeMemberJoined, cartID, user.ID))
	}
	return s.store.Get(ctx, cartID)
}

// Leave removes user from the cart. Leaving twice is a no-op. Owners may
// leave too; the cart stays, possibly with no members.
func (s *Service) Leave(ctx context.Context, cartID string, user domain.User) error {
	if !user.Valid() {
		return fmt.Errorf("leave: user id required: %w", domain.ErrValidation)
	}
	changed, err := s.store.RemoveMember(ctx, cartID, user.ID)
	if err != nil {
		s.logger.Printf("groupcart service: leave cart_id=%s user_id=%s error=%v", cartID, user.ID, err)
		return fmt.Errorf("leave group cart %s: %w", cartID, err)
	}
	if changed {
		s.logger.Printf("groupcart service: left cart_id=%s user_id=%s", cartID, user.ID)
		s.afterMutation(ctx, events.New(events.TypeMemberLeft, cartID, user.ID))
	}
	return nil
}

// AddItem merges one unit of productID into the cart on behalf of user.
// The merge is a read-modify-write guarded by the cart version and retried
// with exponential backoff on conflict.
func (s *Service) AddItem(ctx context.Context, cartID, productID string, user domain.User) (*domain.GroupCart, error) {
	if !user.Valid() {
		return nil, fmt.Errorf("add item: user id required: %w", domain.ErrValidation)
	}
	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("add item: product %s: %w", productID, err)
	}

	attempts := 0
	merge := func() (*domain.GroupCart, error) {
		attempts++
		cart, err := s.store.Get(ctx, cartID)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if !cart.HasMember(user.ID) {
			return nil, backoff.Permanent(domain.ErrNotMember)
		}
		items := domain.MergeItem(cart.CartItems, *product, user.ID)
		if err := s.store.ReplaceItems(ctx, cartID, cart.Version, items); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				s.logger.Printf("groupcart service: add item cart_id=%s product_id=%s conflict attempt=%d", cartID, productID, attempts)
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		cart.CartItems = items
		cart.Version++
		return cart, nil
	}

	cart, err := backoff.Retry(ctx, merge,
		backoff.WithBackOff(s.newBackOff()),
		backoff.WithMaxTries(uint(s.maxAttempts)),
	)
	if err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			s.logger.Printf("groupcart service: add item cart_id=%s product_id=%s aborted after %d attempts", cartID, productID, attempts)
			return nil, fmt.Errorf("add item to %s: %w", cartID, domain.ErrTransactionAborted)
		}
		s.logger.Printf("groupcart service: add item cart_id=%s product_id=%s error=%v", cartID, productID, err)
		return nil, fmt.Errorf("add item to %s: %w", cartID, err)
	}

	e := events.New(events.TypeItemAdded, cartID, user.ID)
	e.ProductID = productID
	if it, ok := cart.Item(productID); ok {
		e.Quantity = it.Quantity
	}
	s.afterMutation(ctx, e)
	return cart, nil
}

// Delete removes the cart. Only its owner may do so.
func (s *Service) Delete(ctx context.Context, cartID string, user domain.User) error {
	cart, err := s.store.Get(ctx, cartID)
	if err != nil {
		return fmt.Errorf("delete group cart %s: %w", cartID, err)
	}
	if cart.OwnerID != user.ID {
		return domain.ErrForbidden
	}
	if err := s.store.Delete(ctx, cartID); err != nil {
		return fmt.Errorf("delete group cart %s: %w", cartID, err)
	}
	s.logger.Printf("groupcart service: deleted cart_id=%s", cartID)
	s.afterMutation(ctx, events.New(events.TypeDeleted, cartID, user.ID))
	return nil
}

// Ping reports whether the backing store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.initialBackoff
	b.MaxInterval = s.maxBackoff
	return b
}

// afterMutation runs once a write has committed; its failures are only logged.
func (s *Service) afterMutation(ctx context.Context, e events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	g := s.genFor(e.CartID)
	g.mu.Lock()
	g.gen++
	if err := s.cache.Delete(ctx, e.CartID); err != nil {
		s.logger.Printf("groupcart service: cache invalidate cart_id=%s error=%v", e.CartID, err)
	}
	g.mu.Unlock()
	if err := s.broker.Publish(ctx, e.CartID); err != nil {
		s.logger.Printf("groupcart service: notify cart_id=%s error=%v", e.CartID, err)
	}
	if err := s.events.Publish(ctx, e); err != nil {
		s.logger.Printf("groupcart service: publish event type=%s cart_id=%s error=%v", e.Type, e.CartID, err)
	}
}
