package domain

import "time"

// GeoPoint is a GeoJSON point, coordinates ordered [latitude, longitude] as
// the frontend map expects.
type GeoPoint struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

func NewGeoPoint(latitude, longitude float64) GeoPoint {
	return GeoPoint{
		Type:        "Point",
		Coordinates: [2]float64{latitude, longitude},
	}
}

// CourierLocation is the last known position of a courier. Last value wins;
// no history is kept.
type CourierLocation struct {
	UserID    string    `json:"userId"`
	Location  GeoPoint  `json:"location"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IdentityLink is the durable {user -> current connection} mapping refreshed
// on every identity handshake. Last handshake wins. On disconnect the link is
// tombstoned (Active=false) rather than deleted, so reconnect logic can tell
// "never connected" from "recently dropped".
type IdentityLink struct {
	UserID       string    `json:"userId"`
	ConnectionID string    `json:"connectionId"`
	Active       bool      `json:"active"`
	LastSeen     time.Time `json:"last_seen"`
}
