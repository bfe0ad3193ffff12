package models

// User - текущий аутентифицированный пользователь
type User struct {
	ID    string `json:"id"`
	Token string `json:"-"`
}
