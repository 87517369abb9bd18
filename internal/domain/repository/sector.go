package repository

// Sector identifies one configured dashboard sector.
type Sector string

const (
	SectorDefense Sector = "defense"
	SectorHealth  Sector = "health"
	SectorEnergy  Sector = "energy"
)

// IsValidSector returns true if s is a supported sector.
func IsValidSector(s Sector) bool {
	switch s {
	case SectorDefense, SectorHealth, SectorEnergy:
		return true
	default:
		return false
	}
}

// NormalizeSector converts a raw string to a valid sector, ok=false otherwise.
func NormalizeSector(s string) (Sector, bool) {
	sec := Sector(s)
	if IsValidSector(sec) {
		return sec, true
	}
	return "", false
}
