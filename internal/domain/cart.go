package domain

// CartItem is one line of the cart. The JSON shape is what the storage
// bridge persists under the "cart" key.
type CartItem struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
}

// Product is what gets added to the cart.
type Product struct {
	ID    int64   `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
	Image string  `json:"image"`
}

func (i CartItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}
