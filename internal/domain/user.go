package domain

// User es la identidad externa que el núcleo de mensajería solo lee.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
