package model

type Profile struct {
	Name    string `json:"name"`
	College string `json:"college"`
}

type User struct {
	ID      string  `json:"id"`
	Email   string  `json:"email"`
	Profile Profile `json:"profile"`
}
