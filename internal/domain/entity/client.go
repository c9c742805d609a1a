package entity

import "time"

// Client representa un adquiriente del emisor.
type Client struct {
	ID        string
	CompanyID string
	Name      string
	DocType   string // catálogo 06 (1=DNI, 6=RUC, 7=pasaporte, 4=carné ext.)
	DocNumber string
	Email     string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
