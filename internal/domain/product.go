package domain

import "time"

// Product is a catalog entry. Engagement metrics, Deal and RelatedItems are
// optional and stay nil when the catalog has no value for them.
type Product struct {
	ID            string    `json:"id" bson:"_id"`
	Name          string    `json:"name" bson:"name"`
	Category      string    `json:"category" bson:"category"`
	Price         int64     `json:"price" bson:"price"`
	Stock         int       `json:"stock" bson:"stock"`
	Tags          []string  `json:"tags" bson:"tags"`
	Description   string    `json:"description" bson:"description"`
	Image         string    `json:"image" bson:"image"`
	AIHint        string    `json:"aiHint,omitempty" bson:"ai_hint,omitempty"`
	Deal          *string   `json:"deal,omitempty" bson:"deal,omitempty"`
	RelatedItems  []string  `json:"relatedItems,omitempty" bson:"related_items,omitempty"`
	Views         *int64    `json:"views,omitempty" bson:"views,omitempty"`
	WishlistCount *int64    `json:"wishlistCount,omitempty" bson:"wishlist_count,omitempty"`
	TimeSpent     *int64    `json:"timeSpent,omitempty" bson:"time_spent,omitempty"`
	CreatedAt     time.Time `json:"createdAt" bson:"created_at"`
}

// HasTag reports whether the product carries tag.
func (p Product) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
