package domain

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusWaiting    Status = "waiting"
	StatusConfirm    Status = "confirm"
	StatusInTrip     Status = "in_trip"
	StatusToCustomer Status = "to_customer"
	StatusPayment    Status = "payment"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusWaiting, StatusConfirm, StatusInTrip,
		StatusToCustomer, StatusPayment, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

var TransportTypes = []string{
	"cargo",
	"food_delivery",
	"out_of_state",
	"interstate",
	"passenger",
	"school_transport",
	"corporate_transport",
	"tourist_transport",
	"medical_transport",
}

var VehicleTypes = []string{"car", "motorcycle", "small_truck", "large_truck"}

type GeoPoint struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Trip is a ride request. DriverID stays nil while the trip is pending and is
// bound on the first transition out of pending.
type Trip struct {
	ID            string    `json:"id"`
	ClientID      string    `json:"clientId"`
	DriverID      *string   `json:"driverId,omitempty"`
	StartLocation GeoPoint  `json:"startLocation"`
	EndLocation   GeoPoint  `json:"endLocation"`
	TripType      string    `json:"tripType"`
	VehicleTypes  []string  `json:"vehicleTypes,omitempty"`
	Description   string    `json:"description,omitempty"`
	PlacesNumber  int       `json:"placesNumber"`
	Price         float64   `json:"price"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CancelledTrip is the append-only audit record written when a trip is
// cancelled after it had progressed past pending.
type CancelledTrip struct {
	ID          string    `json:"id"`
	TripID      string    `json:"tripId"`
	CancelledBy string    `json:"cancelledBy"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Driver is the 1:1 vehicle profile behind a user of role driver. The
// persisted IsAvailable flag is the authoritative default when no live
// presence entry exists.
type Driver struct {
	ID             string   `json:"id"`
	UserID         string   `json:"userId"`
	VehicleType    string   `json:"vehicleType"`
	TransportTypes []string `json:"transportTypes,omitempty"`
	VehicleName    string   `json:"vehicleName,omitempty"`
	PlacesNumber   int      `json:"placesNumber"`
	IsAvailable    bool     `json:"isAvailable"`
}

type CreateTripInput struct {
	StartLocation GeoPoint `json:"startLocation"`
	EndLocation   GeoPoint `json:"endLocation"`
	TripType      string   `json:"tripType"`
	VehicleTypes  []string `json:"vehicleTypes"`
	Description   string   `json:"description"`
	PlacesNumber  int      `json:"placesNumber"`
	Price         float64  `json:"price"`
}

type ChangeStatusInput struct {
	Status   string `json:"status"`
	DriverID string `json:"driver,omitempty"`
	Reason   string `json:"reason,omitempty"`
}
