package stock

// Location represents a physical location where lots are stored
type Location string

const (
	// LocationProductionFloor is where freshly cut pieces accumulate
	LocationProductionFloor Location = "PRODUCTION_FLOOR"
	// LocationDrying is the drying area
	LocationDrying Location = "DRYING"
	// LocationWarehouse is the main finished-goods warehouse
	LocationWarehouse Location = "WAREHOUSE"
	// LocationShelf is the retail shelf
	LocationShelf Location = "SHELF"
)

// String returns the string representation of Location
func (l Location) String() string {
	return string(l)
}

// IsValid returns true if the location is valid
func (l Location) IsValid() bool {
	switch l {
	case LocationProductionFloor, LocationDrying, LocationWarehouse, LocationShelf:
		return true
	}
	return false
}

// AllLocations returns all valid locations
func AllLocations() []Location {
	return []Location{
		LocationProductionFloor,
		LocationDrying,
		LocationWarehouse,
		LocationShelf,
	}
}
