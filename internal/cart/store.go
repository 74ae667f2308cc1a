// Package cart keeps server-side cart state in an explicit store. All
// mutations flow through Dispatch, which applies the action and then
// reconciles promotional freebie lines in the same step, so no snapshot can
// ever show a cart with a stale freebie.
package cart

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// FreebiePrefix marks promotional line items. The suffix is the qualifying
// product ID, so "freebie-118" is the gift granted by product 118.
const FreebiePrefix = "freebie-"

var (
	// ErrCartNotFound is returned for unknown cart IDs.
	ErrCartNotFound = errors.New("cart: not found")
	// ErrLineNotFound is returned when an action targets a missing line.
	ErrLineNotFound = errors.New("cart: line not found")
	// ErrFreebieImmutable is returned when a client tries to mutate a freebie line directly.
	ErrFreebieImmutable = errors.New("cart: freebie lines are managed automatically")
)

// Line is a single cart entry. UnitPrice is in minor units.
type Line struct {
	Key       string `json:"key"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	// FreebieOf is the qualifying product ID when this line is a granted gift.
	FreebieOf int64 `json:"freebie_of,omitempty"`
}

// Freebie reports whether the line is a promotional gift.
func (l Line) Freebie() bool { return l.FreebieOf != 0 }

// Subtotal returns the line total in minor units. Freebie lines are free.
func (l Line) Subtotal() int64 {
	if l.Freebie() {
		return 0
	}
	return l.UnitPrice * int64(l.Quantity)
}

// Cart is an immutable snapshot of one cart's state.
type Cart struct {
	ID        string    `json:"id"`
	Currency  string    `json:"currency"`
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Total returns the cart total in minor units.
func (c Cart) Total() int64 {
	var total int64
	for _, line := range c.Lines {
		total += line.Subtotal()
	}
	return total
}

// FreebieProduct describes the gift granted when a qualifying product is in
// the cart.
type FreebieProduct struct {
	ProductID int64
	Name      string
}

// Action mutates a cart inside Dispatch.
type Action interface {
	apply(cart *Cart) error
}

// AddItem appends quantity of a product, merging with an existing line.
type AddItem struct {
	ProductID int64
	Name      string
	Quantity  int
	UnitPrice int64
}

// UpdateQuantity sets the quantity of an existing line. Zero removes it.
type UpdateQuantity struct {
	Key      string
	Quantity int
}

// RemoveItem deletes a line.
type RemoveItem struct {
	Key string
}

// SetCurrency switches the cart currency.
type SetCurrency struct {
	Currency string
}

// Clear drops every line.
type Clear struct{}

// Store owns all carts. It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	carts     map[string]Cart
	freebies  map[int64]FreebieProduct
	watchers  map[string][]chan Cart
	currency  string
	clock     func() time.Time
	entropyMu sync.Mutex
	entropy   *ulid.MonotonicEntropy
}

// StoreOption customises Store construction.
type StoreOption func(*Store)

// WithDefaultCurrency sets the currency assigned to new carts.
func WithDefaultCurrency(code string) StoreOption {
	return func(s *Store) {
		if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
			s.currency = code
		}
	}
}

// WithFreebies configures the qualifier-to-gift mapping.
func WithFreebies(freebies map[int64]FreebieProduct) StoreOption {
	return func(s *Store) {
		s.freebies = make(map[int64]FreebieProduct, len(freebies))
		for qualifier, gift := range freebies {
			s.freebies[qualifier] = gift
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewStore constructs an empty cart store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		carts:    make(map[string]Cart),
		freebies: make(map[int64]FreebieProduct),
		watchers: make(map[string][]chan Cart),
		currency: "EUR",
		clock:    time.Now,
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create allocates a new empty cart and returns its snapshot.
func (s *Store) Create() Cart {
	now := s.clock().UTC()
	cart := Cart{
		ID:        s.newID(now),
		Currency:  s.currency,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.carts[cart.ID] = cart
	s.mu.Unlock()
	return cart
}

// Snapshot returns a copy of the cart's current state.
func (s *Store) Snapshot(cartID string) (Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cart, ok := s.carts[cartID]
	if !ok {
		return Cart{}, ErrCartNotFound
	}
	return cloneCart(cart), nil
}

// Dispatch applies the action to the cart and reconciles freebie lines before
// the new state becomes visible. The returned snapshot is the post-action
// state.
func (s *Store) Dispatch(cartID string, action Action) (Cart, error) {
	s.mu.Lock()
	cart, ok := s.carts[cartID]
	if !ok {
		s.mu.Unlock()
		return Cart{}, ErrCartNotFound
	}

	next := cloneCart(cart)
	if err := action.apply(&next); err != nil {
		s.mu.Unlock()
		return Cart{}, err
	}
	s.reconcileFreebies(&next)
	next.UpdatedAt = s.clock().UTC()
	s.carts[cartID] = next

	// Watcher channels are closed by Subscribe cancel and Delete under the
	// same lock, so sends must stay inside the critical section. The sends
	// never block: channels are buffered and a full buffer drops the update.
	snapshot := cloneCart(next)
	for _, ch := range s.watchers[cartID] {
		select {
		case ch <- snapshot:
		default:
		}
	}
	s.mu.Unlock()
	return snapshot, nil
}

// Subscribe returns a channel receiving snapshots after each dispatch for the
// cart, plus a cancel func that closes it.
func (s *Store) Subscribe(cartID string) (<-chan Cart, func()) {
	ch := make(chan Cart, 8)

	s.mu.Lock()
	s.watchers[cartID] = append(s.watchers[cartID], ch)
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		watchers := s.watchers[cartID]
		for i, candidate := range watchers {
			if candidate == ch {
				s.watchers[cartID] = append(watchers[:i], watchers[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel
}

// Delete removes the cart entirely.
func (s *Store) Delete(cartID string) {
	s.mu.Lock()
	delete(s.carts, cartID)
	for _, ch := range s.watchers[cartID] {
		close(ch)
	}
	delete(s.watchers, cartID)
	s.mu.Unlock()
}

// reconcileFreebies enforces the gift rules: each qualifying product present
// in the cart grants exactly one unit of its gift, and removing the qualifier
// removes the gift in the same dispatch.
func (s *Store) reconcileFreebies(cart *Cart) {
	present := make(map[int64]bool)
	for _, line := range cart.Lines {
		if !line.Freebie() && line.Quantity > 0 {
			present[line.ProductID] = true
		}
	}

	kept := cart.Lines[:0]
	granted := make(map[int64]bool)
	for _, line := range cart.Lines {
		if line.Freebie() {
			if !present[line.FreebieOf] || granted[line.FreebieOf] {
				continue
			}
			line.Quantity = 1
			granted[line.FreebieOf] = true
		}
		kept = append(kept, line)
	}
	cart.Lines = kept

	for qualifier, gift := range s.freebies {
		if !present[qualifier] || granted[qualifier] {
			continue
		}
		cart.Lines = append(cart.Lines, Line{
			Key:       fmt.Sprintf("%s%d", FreebiePrefix, qualifier),
			ProductID: gift.ProductID,
			Name:      gift.Name,
			Quantity:  1,
			FreebieOf: qualifier,
		})
	}
}

func (s *Store) newID(now time.Time) string {
	s.entropyMu.Lock()
	defer s.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), s.entropy).String()
}

func (a AddItem) apply(cart *Cart) error {
	if a.ProductID <= 0 {
		return fmt.Errorf("cart: invalid product id %d", a.ProductID)
	}
	quantity := a.Quantity
	if quantity < 1 {
		quantity = 1
	}

	for i, line := range cart.Lines {
		if line.ProductID == a.ProductID && !line.Freebie() {
			cart.Lines[i].Quantity += quantity
			return nil
		}
	}

	cart.Lines = append(cart.Lines, Line{
		Key:       fmt.Sprintf("line-%d", a.ProductID),
		ProductID: a.ProductID,
		Name:      a.Name,
		Quantity:  quantity,
		UnitPrice: a.UnitPrice,
	})
	return nil
}

func (a UpdateQuantity) apply(cart *Cart) error {
	for i, line := range cart.Lines {
		if line.Key != a.Key {
			continue
		}
		if line.Freebie() {
			return ErrFreebieImmutable
		}
		if a.Quantity <= 0 {
			cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
		} else {
			cart.Lines[i].Quantity = a.Quantity
		}
		return nil
	}
	return ErrLineNotFound
}

func (a RemoveItem) apply(cart *Cart) error {
	for i, line := range cart.Lines {
		if line.Key != a.Key {
			continue
		}
		if line.Freebie() {
			return ErrFreebieImmutable
		}
		cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
		return nil
	}
	return ErrLineNotFound
}

func (a SetCurrency) apply(cart *Cart) error {
	code := strings.ToUpper(strings.TrimSpace(a.Currency))
	if len(code) != 3 {
		return fmt.Errorf("cart: invalid currency %q", a.Currency)
	}
	cart.Currency = code
	return nil
}

func (Clear) apply(cart *Cart) error {
	cart.Lines = nil
	return nil
}

func cloneCart(cart Cart) Cart {
	copied := cart
	copied.Lines = append([]Line(nil), cart.Lines...)
	return copied
}
