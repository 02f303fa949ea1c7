package model

import "time"

type Medication struct {
	ID                   int       `json:"id"`
	Name                 string    `json:"name"`
	Code                 string    `json:"code"`
	Description          string    `json:"description"`
	StockQuantity        int       `json:"stock_quantity"`
	Unit                 string    `json:"unit"`
	Price                float64   `json:"price"`
	RequiresPrescription bool      `json:"requires_prescription"`
	Category             string    `json:"category"`
	CreatedAt            time.Time `json:"created_at"`
}
