package catalog

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidName      = errors.New("name is required")
	ErrInvalidPrice     = errors.New("price must be a non-negative number")
	ErrInvalidQuantity  = errors.New("quantity must be a non-negative integer")
	ErrInvalidCategory  = errors.New("category is required")
	ErrImageRequired    = errors.New("image is required")
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryInUse    = errors.New("category still has products")
	ErrProductNotFound  = errors.New("product not found")
)

const (
	EventsQueue = "catalog.events"

	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"

	EntityProduct  = "product"
	EntityCategory = "category"
)

type Category struct {
	ID          int64  `json:"id" example:"1"`
	Name        string `json:"name" example:"Laptops"`
	Description string `json:"description" example:"Portable computers"`
}

// Image is the single in-memory form of a product image, whether it came
// from a multipart upload, the base64 fields of a product payload or the
// binary image endpoint.
type Image struct {
	Name      string
	MediaType string
	Data      []byte
}

func (i Image) Empty() bool {
	return len(i.Data) == 0
}

type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       Price     `json:"price"`
	Quantity    int       `json:"quantity"`
	Category    *Category `json:"category,omitempty"`
	Available   bool      `json:"available"`
	Image       *Image    `json:"-"`
}

type productJSON struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       Price     `json:"price"`
	Quantity    int       `json:"quantity"`
	Category    *Category `json:"category,omitempty"`
	Available   bool      `json:"available"`
	ImageName   string    `json:"imageName,omitempty"`
	ImageType   string    `json:"imageType,omitempty"`
	ImageData   []byte    `json:"image,omitempty"`
}

// MarshalJSON writes the image, when present, as the base64 "image" field
// alongside "imageName" and "imageType".
func (p Product) MarshalJSON() ([]byte, error) {
	out := productJSON{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Quantity:    p.Quantity,
		Category:    p.Category,
		Available:   p.Available,
	}
	if p.Image != nil {
		out.ImageName = p.Image.Name
		out.ImageType = p.Image.MediaType
		out.ImageData = p.Image.Data
	}
	return json.Marshal(out)
}

func (p *Product) UnmarshalJSON(data []byte) error {
	var in productJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*p = Product{
		ID:          in.ID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Quantity:    in.Quantity,
		Category:    in.Category,
		Available:   in.Available,
	}
	if len(in.ImageData) > 0 {
		p.Image = &Image{Name: in.ImageName, MediaType: in.ImageType, Data: in.ImageData}
	}
	return nil
}

// CategoryID returns the referenced category id, or 0 when unset.
func (p Product) CategoryID() int64 {
	if p.Category == nil {
		return 0
	}
	return p.Category.ID
}

type Event struct {
	EventType string    `json:"event_type"`
	Entity    string    `json:"entity"`
	EntityID  int64     `json:"entity_id"`
	Name      string    `json:"name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
