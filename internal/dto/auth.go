package dto

import (
	"strings"
	"time"

	"github.com/GlebRadaev/fundsledger/internal/domain"
)

type RegisterRequestDTO struct {
	Name          string `json:"name" example:"Alice"`
	Email         string `json:"email" example:"alice@example.com"`
	Password      string `json:"password" example:"longenough1"`
	Phone         string `json:"phone" example:"+15550100"`
	Currency      string `json:"currency" example:"USD"`
	Country       string `json:"country" example:"US"`
	ReferrerEmail string `json:"referrerEmail,omitempty" example:"bob@example.com"`
}

// MissingFields lists the required fields left blank.
func (r RegisterRequestDTO) MissingFields() []string {
	return missing(map[string]string{
		"name":     r.Name,
		"email":    r.Email,
		"password": r.Password,
		"phone":    r.Phone,
		"country":  r.Country,
	}, "name", "email", "password", "phone", "country")
}

type LoginRequestDTO struct {
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"longenough1"`
}

func (r LoginRequestDTO) MissingFields() []string {
	return missing(map[string]string{"email": r.Email, "password": r.Password}, "email", "password")
}

type RefreshRequestDTO struct {
	RefreshToken string `json:"refreshToken"`
}

type LogoutRequestDTO struct {
	RefreshToken string `json:"refreshToken"`
}

type UserDTO struct {
	ID    string `json:"id" example:"3f0c6a52-9a57-4c8e-a8a5-5d1f4c2b7e10"`
	Name  string `json:"name" example:"Alice"`
	Email string `json:"email" example:"alice@example.com"`
}

type AuthResponseDTO struct {
	Token        string  `json:"token"`
	RefreshToken string  `json:"refreshToken"`
	User         UserDTO `json:"user"`
}

type RefreshResponseDTO struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

type ProfileResponseDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Currency  string    `json:"currency"`
	Country   string    `json:"country"`
	CreatedAt time.Time `json:"createdAt"`
}

type MessageResponseDTO struct {
	Message string `json:"message"`
}

func NewUserDTO(u *domain.User) UserDTO {
	return UserDTO{ID: u.ID, Name: u.Name, Email: u.Email}
}

func NewProfileDTO(u *domain.User) ProfileResponseDTO {
	return ProfileResponseDTO{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Currency:  u.Currency,
		Country:   u.Country,
		CreatedAt: u.CreatedAt,
	}
}

func missing(values map[string]string, order ...string) []string {
	var fields []string
	for _, name := range order {
		if strings.TrimSpace(values[name]) == "" {
			fields = append(fields, name)
		}
	}
	return fields
}
