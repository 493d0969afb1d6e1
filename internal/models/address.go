package models

import "github.com/gocql/gocql"

type Address struct {
	ID         gocql.UUID `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	Street     string     `json:"street"`
	City       string     `json:"city"`
	PostalCode string     `json:"postal_code"`
	Country    string     `json:"country"`
	Phone      string     `json:"phone,omitempty"`
	IsDefault  bool       `json:"is_default"`
}
