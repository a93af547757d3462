package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vetcontrol/companion/internal/model"
)

const petCols = `id, name, species, breed, sex, birth_date, color, weight_kg, size, microchip_num, neutered, cached_at`

type PetStore struct {
	db *sql.DB
}

func NewPetStore(db *sql.DB) *PetStore {
	return &PetStore{db: db}
}

func (s *PetStore) Upsert(p *model.Pet) error {
	_, err := s.db.Exec(
		`INSERT INTO pets (id, name, species, breed, sex, birth_date, color, weight_kg, size, microchip_num, neutered, cached_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   species = excluded.species,
		   breed = excluded.breed,
		   sex = excluded.sex,
		   birth_date = excluded.birth_date,
		   color = excluded.color,
		   weight_kg = excluded.weight_kg,
		   size = excluded.size,
		   microchip_num = excluded.microchip_num,
		   neutered = excluded.neutered,
		   cached_at = excluded.cached_at`,
		p.ID, p.Name, p.Species, p.Breed, p.Sex, p.BirthDate, p.Color, p.WeightKg,
		p.Size, p.MicrochipNum, boolToInt(p.Neutered), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert pet: %w", err)
	}
	return nil
}

func (s *PetStore) GetByID(id string) (*model.Pet, error) {
	row := s.db.QueryRow(`SELECT `+petCols+` FROM pets WHERE id = ?`, id)
	p, err := scanPet(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pet: %w", err)
	}
	return p, nil
}

func (s *PetStore) List() ([]model.Pet, error) {
	rows, err := s.db.Query(`SELECT ` + petCols + ` FROM pets ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list pets: %w", err)
	}
	defer rows.Close()

	var pets []model.Pet
	for rows.Next() {
		p, err := scanPet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pet: %w", err)
		}
		pets = append(pets, *p)
	}
	return pets, rows.Err()
}

func (s *PetStore) DeleteMissing(keep []string) error {
	if len(keep) == 0 {
		_, err := s.db.Exec(`DELETE FROM pets`)
		if err != nil {
			return fmt.Errorf("delete all pets: %w", err)
		}
		return nil
	}

	query := `DELETE FROM pets WHERE id NOT IN (?` + repeatPlaceholder(len(keep)-1) + `)`
	args := make([]any, len(keep))
	for i, id := range keep {
		args[i] = id
	}
	_, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("delete missing pets: %w", err)
	}
	return nil
}

func scanPet(scanner interface{ Scan(...any) error }) (*model.Pet, error) {
	var p model.Pet
	var neutered int
	if err := scanner.Scan(&p.ID, &p.Name, &p.Species, &p.Breed, &p.Sex, &p.BirthDate,
		&p.Color, &p.WeightKg, &p.Size, &p.MicrochipNum, &neutered, &p.CachedAt); err != nil {
		return nil, err
	}
	p.Neutered = neutered != 0
	return &p, nil
}
