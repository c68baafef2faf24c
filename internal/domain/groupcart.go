package domain

import "time"

// GroupCart is the shared-cart document. MemberIDs mirrors Members[*].ID and
// CartItems holds at most one entry per product id.
type GroupCart struct {
	ID        string          `json:"id" bson:"_id"`
	OwnerID   string          `json:"ownerId" bson:"owner_id"`
	Members   []User          `json:"members" bson:"members"`
	MemberIDs []string        `json:"memberIds" bson:"member_ids"`
	CartItems []GroupCartItem `json:"cartItems" bson:"cart_items"`
	Version   int64           `json:"version" bson:"version"`
	CreatedAt time.Time       `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time       `json:"updatedAt" bson:"updated_at"`
}

// GroupCartItem is a denormalized product snapshot taken when the product was
// first added. Quantity is the only field that changes afterwards.
type GroupCartItem struct {
	ID            string   `json:"id" bson:"id"`
	Name          string   `json:"name" bson:"name"`
	Category      string   `json:"category" bson:"category"`
	Price         int64    `json:"price" bson:"price"`
	Stock         int      `json:"stock" bson:"stock"`
	Tags          []string `json:"tags" bson:"tags"`
	Description   string   `json:"description" bson:"description"`
	Image         string   `json:"image" bson:"image"`
	AIHint        string   `json:"aiHint" bson:"ai_hint"`
	Deal          string   `json:"deal" bson:"deal"`
	RelatedItems  []string `json:"relatedItems" bson:"related_items"`
	Views         int64    `json:"views" bson:"views"`
	WishlistCount int64    `json:"wishlistCount" bson:"wishlist_count"`
	TimeSpent     int64    `json:"timeSpent" bson:"time_spent"`
	Quantity      int      `json:"quantity" bson:"quantity"`
	AddedBy       string   `json:"addedBy" bson:"added_by"`
}

// NewGroupCart builds a cart whose only member is the owner.
func NewGroupCart(id string, owner User, now time.Time) GroupCart {
	return GroupCart{
		ID:        id,
		OwnerID:   owner.ID,
		Members:   []User{{ID: owner.ID, Name: owner.Name}},
		MemberIDs: []string{owner.ID},
		CartItems: []GroupCartItem{},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasMember reports whether userID is listed in Members.
func (c GroupCart) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

// Item returns the entry for productID, if any.
func (c GroupCart) Item(productID string) (GroupCartItem, bool) {
	for _, it := range c.CartItems {
		if it.ID == productID {
			return it, true
		}
	}
	return GroupCartItem{}, false
}

// WithMember returns a copy with user appended. The second result is false
// when the user id was already present.
func (c GroupCart) WithMember(user User) (GroupCart, bool) {
	if c.HasMember(user.ID) {
		return c.Clone(), false
	}
	out := c.Clone()
	out.Members = append(out.Members, User{ID: user.ID, Name: user.Name})
	out.MemberIDs = append(out.MemberIDs, user.ID)
	return out, true
}

// WithoutMember returns a copy with userID removed from Members and MemberIDs.
func (c GroupCart) WithoutMember(userID string) (GroupCart, bool) {
	if !c.HasMember(userID) {
		return c.Clone(), false
	}
	out := c.Clone()
	members := out.Members[:0]
	for _, m := range out.Members {
		if m.ID != userID {
			members = append(members, m)
		}
	}
	ids := out.MemberIDs[:0]
	for _, id := range out.MemberIDs {
		if id != userID {
			ids = append(ids, id)
		}
	}
	out.Members = members
	out.MemberIDs = ids
	return out, true
}

// Clone returns a deep copy.
func (c GroupCart) Clone() GroupCart {
	out := c
	out.Members = append([]User(nil), c.Members...)
	out.MemberIDs = append([]string(nil), c.MemberIDs...)
	out.CartItems = make([]GroupCartItem, 0, len(c.CartItems))
	for _, it := range c.CartItems {
		out.CartItems = append(out.CartItems, it.clone())
	}
	if out.Members == nil {
		out.Members = []User{}
	}
	if out.MemberIDs == nil {
		out.MemberIDs = []string{}
	}
	return out
}

func (it GroupCartItem) clone() GroupCartItem {
	out := it
	out.Tags = append([]string{}, it.Tags...)
	out.RelatedItems = append([]string{}, it.RelatedItems...)
	return out
}

// SnapshotItem copies product into a cart item with quantity 1. Unset
// optional fields become zero values so stored items never carry gaps.
func SnapshotItem(p Product, addedBy string) GroupCartItem {
	item := GroupCartItem{
		ID:           p.ID,
		Name:         p.Name,
		Category:     p.Category,
		Price:        p.Price,
		Stock:        p.Stock,
		Tags:         append([]string{}, p.Tags...),
		Description:  p.Description,
		Image:        p.Image,
		AIHint:       p.AIHint,
		RelatedItems: append([]string{}, p.RelatedItems...),
		Quantity:     1,
		AddedBy:      addedBy,
	}
	if p.Deal != nil {
		item.Deal = *p.Deal
	}
	if p.Views != nil {
		item.Views = *p.Views
	}
	if p.WishlistCount != nil {
		item.WishlistCount = *p.WishlistCount
	}
	if p.TimeSpent != nil {
		item.TimeSpent = *p.TimeSpent
	}
	return item
}

// MergeItem returns a new item list with product added by userID: an existing
// entry gets its quantity incremented, otherwise a snapshot is appended.
// The input slice is not modified.
func MergeItem(items []GroupCartItem, p Product, userID string) []GroupCartItem {
	out := make([]GroupCartItem, 0, len(items)+1)
	found := false
	for _, it := range items {
		next := it.clone()
		if it.ID == p.ID && !found {
			next.Quantity++
			found = true
		}
		out = append(out, next)
	}
	if !found {
		out = append(out, SnapshotItem(p, userID))
	}
	return out
}
