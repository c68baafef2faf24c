package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"sync"

	"storefront/internal/domain"
)

// State is whether the shopper is using a group cart.
type State int

const (
	Solo State = iota
	InGroup
)

func (s State) String() string {
	if s == InGroup {
		return "group"
	}
	return "solo"
}

const activeCartKey = "groupCartId"

// ErrFeedEnded is reported by Err when the active cart's feed stopped while
// the session was still following it.
var ErrFeedEnded = errors.New("group cart feed ended")

// Feed is a live sequence of snapshots for one cart. A nil snapshot means
// the cart was deleted.
type Feed interface {
	C() <-chan *domain.GroupCart
	Close() error
}

// Backend performs group cart operations as the session's user.
type Backend interface {
	Create(ctx context.Context) (*domain.GroupCart, error)
	Join(ctx context.Context, cartID string) (*domain.GroupCart, error)
	Leave(ctx context.Context, cartID string) error
	AddItem(ctx context.Context, cartID, productID string) (*domain.GroupCart, error)
	Subscribe(ctx context.Context, cartID string) (Feed, error)
}

type Options struct {
	// Live makes the session follow the active cart's change feed and fall
	// back to Solo when the cart disappears or drops the user.
	Live   bool
	Logger *log.Logger
}

// Session tracks which group cart, if any, the local shopper is using.
// The active cart id is persisted in a KV so it survives restarts.
type Session struct {
	backend Backend
	kv      KV
	user    domain.User
	live    bool
	logger  *log.Logger

	base context.Context
	stop context.CancelFunc

	mu       sync.Mutex
	cartID   string
	snapshot *domain.GroupCart
	feed     Feed
	feedErr  error
	gen      uint64
	changes  chan struct{}
}

func New(backend Backend, kv KV, user domain.User, opts Options) *Session {
	if kv == nil {
		kv = NewMemoryKV()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	base, stop := context.WithCancel(context.Background())
	return &Session{
		backend: backend,
		kv:      kv,
		user:    user,
		live:    opts.Live,
		logger:  logger,
		base:    base,
		stop:    stop,
		changes: make(chan struct{}, 1),
	}
}

// Load restores the persisted active cart, if any. In live mode the feed
// then confirms it: a cart that is gone or no longer lists the user drops
// the session back to Solo.
func (s *Session) Load(ctx context.Context) error {
	id, ok, err := s.kv.Get(activeCartKey)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if !ok || id == "" {
		return nil
	}
	return s.enter(ctx, id, nil)
}

// Save persists the active cart id, removing it when Solo.
func (s *Session) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

// Clear returns to Solo and forgets the persisted cart without telling the
// server.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	return s.persistLocked()
}

// Close stops following the active cart. Persisted state is kept.
func (s *Session) Close() error {
	s.stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeFeedLocked()
	return nil
}

func (s *Session) User() domain.User { return s.user }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cartID == "" {
		return Solo
	}
	return InGroup
}

func (s *Session) ActiveCartID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartID
}

// Snapshot returns a copy of the latest known state of the active cart, or
// nil when Solo or not yet known.
func (s *Session) Snapshot() *domain.GroupCart {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return nil
	}
	c := s.snapshot.Clone()
	return &c
}

// Changes signals after the state or the snapshot changed. Signals are
// coalesced.
func (s *Session) Changes() <-chan struct{} { return s.changes }

// Err reports why a live session stopped following the active cart. It is
// nil while the feed runs. The next Load, Join or AddItem on the same cart
// subscribes again.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feedErr
}

// Start creates a group cart owned by the user and makes it active.
func (s *Session) Start(ctx context.Context) (*domain.GroupCart, domain.Notice, error) {
	cart, err := s.backend.Create(ctx)
	if err != nil {
		s.logger.Printf("session: create group cart user_id=%s error=%v", s.user.ID, err)
		return nil, domain.NoticeFor(domain.OpCreate, err), err
	}
	if err := s.enter(ctx, cart.ID, cart); err != nil {
		return cart, domain.NoticeFor(domain.OpCreate, err), err
	}
	return cart, domain.SuccessNotice(domain.OpCreate), nil
}

// Join adds the user to cartID and makes it active. On failure the session
// is left as it was.
func (s *Session) Join(ctx context.Context, cartID string) (domain.Notice, error) {
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		err := fmt.Errorf("join: cart id required: %w", domain.ErrValidation)
		return domain.NoticeFor(domain.OpJoin, err), err
	}
	cart, err := s.backend.Join(ctx, cartID)
	if err != nil {
		s.logger.Printf("session: join cart_id=%s user_id=%s error=%v", cartID, s.user.ID, err)
		return domain.NoticeFor(domain.OpJoin, err), err
	}
	if err := s.enter(ctx, cart.ID, cart); err != nil {
		return domain.NoticeFor(domain.OpJoin, err), err
	}
	return domain.SuccessNotice(domain.OpJoin), nil
}

// JoinByLink joins the cart an invite link points at. Opening the same link
// again is harmless.
func (s *Session) JoinByLink(ctx context.Context, link string) (domain.Notice, error) {
	cartID, err := CartIDFromLink(link)
	if err != nil {
		return domain.NoticeFor(domain.OpJoin, err), err
	}
	return s.Join(ctx, cartID)
}

// Leave removes the user from the active cart and returns to Solo. Leaving
// while Solo, or a cart that no longer exists, succeeds.
func (s *Session) Leave(ctx context.Context) (domain.Notice, error) {
	cartID := s.ActiveCartID()
	if cartID != "" {
		err := s.backend.Leave(ctx, cartID)
		if err != nil && !errors.Is(err, domain.ErrCartNotFound) {
			s.logger.Printf("session: leave cart_id=%s user_id=%s error=%v", cartID, s.user.ID, err)
			return domain.NoticeFor(domain.OpLeave, err), err
		}
	}
	if err := s.Clear(); err != nil {
		return domain.NoticeFor(domain.OpLeave, err), err
	}
	return domain.SuccessNotice(domain.OpLeave), nil
}

// AddItem adds one unit of productID to the active cart.
func (s *Session) AddItem(ctx context.Context, productID string) (*domain.GroupCart, domain.Notice, error) {
	cartID := s.ActiveCartID()
	if cartID == "" {
		err := fmt.Errorf("add item: no active group cart: %w", domain.ErrNotMember)
		return nil, domain.NoticeFor(domain.OpAddItem, err), err
	}
	cart, err := s.backend.AddItem(ctx, cartID, productID)
	if err != nil {
		s.logger.Printf("session: add item cart_id=%s product_id=%s error=%v", cartID, productID, err)
		if errors.Is(err, domain.ErrCartNotFound) || errors.Is(err, domain.ErrNotMember) {
			s.dropIfActive(cartID)
		}
		return nil, domain.NoticeFor(domain.OpAddItem, err), err
	}

	s.mu.Lock()
	if s.cartID == cartID && (s.snapshot == nil || cart.Version >= s.snapshot.Version) {
		s.snapshot = cart
		s.notifyLocked()
	}
	s.mu.Unlock()
	s.ensureFeed(cartID)
	return cart, domain.SuccessNotice(domain.OpAddItem), nil
}

// enter makes cartID active, replacing the feed of any previous cart.
func (s *Session) enter(ctx context.Context, cartID string, snap *domain.GroupCart) error {
	s.mu.Lock()
	if s.cartID == cartID {
		if snap != nil && (s.snapshot == nil || snap.Version >= s.snapshot.Version) {
			s.snapshot = snap
			s.notifyLocked()
		}
		s.mu.Unlock()
		s.ensureFeed(cartID)
		return nil
	}
	s.resetLocked()
	s.cartID = cartID
	s.snapshot = snap
	gen := s.gen
	s.notifyLocked()
	err := s.persistLocked()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if s.live {
		s.subscribe(cartID, gen)
	}
	return nil
}

// ensureFeed subscribes again when a live session lost the feed of cartID.
func (s *Session) ensureFeed(cartID string) {
	s.mu.Lock()
	if !s.live || s.cartID != cartID || s.feed != nil {
		s.mu.Unlock()
		return
	}
	gen := s.gen
	s.mu.Unlock()
	s.subscribe(cartID, gen)
}

func (s *Session) subscribe(cartID string, gen uint64) {
	feed, err := s.backend.Subscribe(s.base, cartID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.logger.Printf("session: subscribe cart_id=%s error=%v", cartID, err)
		if s.gen == gen {
			s.feedErr = fmt.Errorf("follow cart %s: %w", cartID, err)
			s.notifyLocked()
		}
		return
	}
	if s.gen != gen || s.feed != nil {
		_ = feed.Close()
		return
	}
	s.feed = feed
	s.feedErr = nil
	go s.follow(feed, gen)
}

func (s *Session) follow(feed Feed, gen uint64) {
	for snap := range feed.C() {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			_ = feed.Close()
			return
		}
		if snap == nil || !snap.HasMember(s.user.ID) {
			s.logger.Printf("session: cart_id=%s gone or user_id=%s removed, back to solo", s.cartID, s.user.ID)
			s.resetLocked()
			if err := s.persistLocked(); err != nil {
				s.logger.Printf("session: persist error=%v", err)
			}
			s.mu.Unlock()
			return
		}
		s.snapshot = snap
		s.notifyLocked()
		s.mu.Unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.feed != feed {
		return
	}
	s.feed = nil
	s.feedErr = ErrFeedEnded
	if f, ok := feed.(interface{ Err() error }); ok && f.Err() != nil {
		s.feedErr = fmt.Errorf("%w: %w", ErrFeedEnded, f.Err())
	}
	s.logger.Printf("session: feed for cart_id=%s ended error=%v", s.cartID, s.feedErr)
	s.notifyLocked()
}

func (s *Session) dropIfActive(cartID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cartID != cartID {
		return
	}
	s.resetLocked()
	if err := s.persistLocked(); err != nil {
		s.logger.Printf("session: persist error=%v", err)
	}
}

// resetLocked returns to Solo and stops the current feed.
func (s *Session) resetLocked() {
	s.closeFeedLocked()
	s.feedErr = nil
	s.gen++
	if s.cartID != "" {
		s.cartID = ""
		s.snapshot = nil
		s.notifyLocked()
	}
}

func (s *Session) closeFeedLocked() {
	if s.feed != nil {
		_ = s.feed.Close()
		s.feed = nil
	}
}

func (s *Session) notifyLocked() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// persistLocked writes the active cart id to the KV. Callers hold mu.
func (s *Session) persistLocked() error {
	var err error
	if s.cartID == "" {
		err = s.kv.Delete(activeCartKey)
	} else {
		err = s.kv.Set(activeCartKey, s.cartID)
	}
	if err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// CartIDFromLink extracts the cart id from an invite link such as
// https://shop.example/join/<id>. A bare id is returned as is.
func CartIDFromLink(link string) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", fmt.Errorf("invite link is empty: %w", domain.ErrValidation)
	}
	if !strings.Contains(link, "/") {
		return link, nil
	}
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("invite link %q: %v: %w", link, err, domain.ErrValidation)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(segments); i++ {
		if segments[i] == "join" && segments[i+1] != "" {
			id, err := url.PathUnescape(segments[i+1])
			if err != nil {
				return "", fmt.Errorf("invite link %q: %v: %w", link, err, domain.ErrValidation)
			}
			return id, nil
		}
	}
	return "", fmt.Errorf("invite link %q has no cart id: %w", link, domain.ErrValidation)
}
