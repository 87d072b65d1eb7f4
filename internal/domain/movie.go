package domain

import "time"

// Genre is embedded in every movie that belongs to it.
type Genre struct {
	Name        string `json:"Name" yaml:"name"`
	Description string `json:"Description,omitempty" yaml:"description"`
}

// Director is embedded in every movie they directed. Birth and Death are
// free-form years so that living directors can omit Death.
type Director struct {
	Name  string `json:"Name" yaml:"name"`
	Bio   string `json:"Bio,omitempty" yaml:"bio"`
	Birth string `json:"Birth,omitempty" yaml:"birth"`
	Death string `json:"Death,omitempty" yaml:"death"`
}

// Movie is a catalog entry. Title is unique.
type Movie struct {
	ID          string    `json:"ID" yaml:"id"`
	Title       string    `json:"Title" yaml:"title"`
	Description string    `json:"Description,omitempty" yaml:"description"`
	Year        string    `json:"Year,omitempty" yaml:"year"`
	Rated       string    `json:"Rated,omitempty" yaml:"rated"`
	Released    string    `json:"Released,omitempty" yaml:"released"`
	Runtime     string    `json:"Runtime,omitempty" yaml:"runtime"`
	Genre       Genre     `json:"Genre" yaml:"genre"`
	Director    Director  `json:"Director" yaml:"director"`
	Actors      []string  `json:"Actors" yaml:"actors"`
	ImagePath   string    `json:"ImagePath,omitempty" yaml:"image_path"`
	Featured    bool      `json:"Featured" yaml:"featured"`
	CreatedAt   time.Time `json:"CreatedAt" yaml:"-"`
	UpdatedAt   time.Time `json:"UpdatedAt" yaml:"-"`
}
