package entity

import "time"

// Company representa un emisor (tenant) del sistema.
type Company struct {
	ID        string
	Name      string
	RUC       string // RUC peruano, 11 dígitos
	Address   string
	Email     string
	Status    string // active, suspended, inactive
	SOLUser   string // usuario secundario SOL para el WS SUNAT
	SOLPass   string
	CertPath  string // certificado digital del emisor (.p12 o PEM)
	CertPass  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Branch es un establecimiento anexo del emisor; las series pertenecen a la
// combinación empresa+sucursal.
type Branch struct {
	ID        string
	CompanyID string
	Name      string
	Code      string // código de establecimiento SUNAT (0000, 0001...)
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
