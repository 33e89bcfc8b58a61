package models

// Location is a WGS84 point in degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Offset returns the location moved by dLat/dLng degrees.
func (l Location) Offset(dLat, dLng float64) Location {
	return Location{Lat: l.Lat + dLat, Lng: l.Lng + dLng}
}
