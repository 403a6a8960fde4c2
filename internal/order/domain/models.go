package domain

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCanceled || s == StatusCompleted
}

type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
)

var Professions = []string{
	"electrician", "plumber", "carpenter", "builder", "painter", "tiler",
	"blacksmith", "contractor", "aluminum_technician", "glass_technician",
	"auto_mechanic", "diesel_mechanic", "ac_technician", "refrigeration_tech",
	"brake_technician", "appliance_tech", "tank_cleaner", "pest_control",
	"carpet_cleaner", "satellite_tech", "computer_tech", "network_tech",
	"cctv_tech", "audio_tech", "barber", "hairstylist", "tailor",
	"calligrapher", "decorator", "medical_equipment_tech", "elevator_tech",
	"solar_panel_installer", "safety_technician",
}

// Cancellation is present iff the order is rejected or canceled.
type Cancellation struct {
	Reason      string    `json:"reason"`
	CancelledBy string    `json:"cancelledBy"` // "client" or "artisan"
	Type        string    `json:"type"`        // "rejected" or "canceled"
	Date        time.Time `json:"date"`
}

// Order is a task put out for bidding. ArtisanID stays nil for open-bid
// orders until the client accepts.
type Order struct {
	ID           string        `json:"id"`
	ClientID     string        `json:"clientId"`
	ArtisanID    *string       `json:"artisanId,omitempty"`
	Professions  []string      `json:"professions"`
	Wilaya       string        `json:"wilaya"`
	Address      string        `json:"address"`
	Description  string        `json:"description"`
	MaxPrice     *float64      `json:"maxPrice,omitempty"`
	Status       Status        `json:"status"`
	Cancellation *Cancellation `json:"cancellation,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Offer is an artisan's bid on an order. At most one offer exists per
// (artisan, order) pair.
type Offer struct {
	ID          string      `json:"id"`
	ArtisanID   string      `json:"artisanId"`
	OrderID     string      `json:"orderId"`
	Price       float64     `json:"price"`
	Description string      `json:"description,omitempty"`
	Status      OfferStatus `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type CreateOrderInput struct {
	ArtisanID   string   `json:"artisan,omitempty"`
	Professions []string `json:"professions"`
	Wilaya      string   `json:"wilaya"`
	Address     string   `json:"address"`
	Description string   `json:"description"`
	MaxPrice    *float64 `json:"maxPrice,omitempty"`
}

type CreateOfferInput struct {
	OrderID     string  `json:"order"`
	Price       float64 `json:"price"`
	Description string  `json:"description,omitempty"`
}
