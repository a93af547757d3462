package model

import "time"

type Pet struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Species      string    `json:"species"`
	Breed        string    `json:"breed"`
	Sex          string    `json:"sex"`
	BirthDate    string    `json:"birth_date"`
	Color        string    `json:"color"`
	WeightKg     float64   `json:"weight_kg"`
	Size         string    `json:"size"`
	MicrochipNum string    `json:"microchip_num"`
	Neutered     bool      `json:"neutered"`
	CachedAt     time.Time `json:"cached_at"`
}
