package domain

type Product struct {
	ID       string `json:"id"`
	SellerID string `json:"sellerId"`
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
}
