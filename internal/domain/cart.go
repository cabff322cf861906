package domain

import "time"

type CartLine struct {
	ID        string    `json:"id" bson:"id"`
	ProductID int64     `json:"product_id" bson:"product_id"`
	Quantity  int       `json:"quantity" bson:"quantity"`
	AddedAt   time.Time `json:"added_at" bson:"added_at"`
}

// MaxLineQuantity caps the merged quantity of a single cart line.
const MaxLineQuantity = 999

// Cart holds at most one line per product.
type Cart struct {
	UserID    int64      `json:"user_id" bson:"user_id"`
	Lines     []CartLine `json:"lines" bson:"lines"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

func NewCart(userID int64, now time.Time) *Cart {
	return &Cart{
		UserID:    userID,
		Lines:     []CartLine{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c *Cart) Line(lineID string) (*CartLine, bool) {
	for i := range c.Lines {
		if c.Lines[i].ID == lineID {
			return &c.Lines[i], true
		}
	}
	return nil, false
}

func (c *Cart) LineForProduct(productID int64) (*CartLine, bool) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy so callers cannot mutate a stored cart.
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Lines = make([]CartLine, len(c.Lines))
	copy(cp.Lines, c.Lines)
	return &cp
}
