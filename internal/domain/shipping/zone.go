package shipping

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// ZoneType describes which geographic dimension primarily defines a zone
type ZoneType string

const (
	ZoneTypeCountry    ZoneType = "country"
	ZoneTypeRegion     ZoneType = "region"
	ZoneTypeCity       ZoneType = "city"
	ZoneTypePostalCode ZoneType = "postal_code"
	ZoneTypeCustom     ZoneType = "custom"
)

// IsValid returns true if the zone type is valid
func (t ZoneType) IsValid() bool {
	switch t {
	case ZoneTypeCountry, ZoneTypeRegion, ZoneTypeCity, ZoneTypePostalCode, ZoneTypeCustom:
		return true
	default:
		return false
	}
}

// StringList is a list of strings stored as a JSON column
type StringList []string

// Value implements driver.Valuer for database storage
func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for database retrieval
func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
	return json.Unmarshal(data, l)
}

// PostalCodeRange is an inclusive range of postal codes. Bounds compare as
// zero-padded fixed-width strings, never as locale-dependent numbers.
type PostalCodeRange struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

// Contains reports whether the code falls inside the range
func (r PostalCodeRange) Contains(code string) bool {
	return shared.PostalCodeInRange(code, r.Min, r.Max)
}

// PostalCodeRanges is a list of ranges stored as a JSON column
type PostalCodeRanges []PostalCodeRange

// Value implements driver.Valuer for database storage
func (rs PostalCodeRanges) Value() (driver.Value, error) {
	if len(rs) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(rs)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for database retrieval
func (rs *PostalCodeRanges) Scan(value any) error {
	if value == nil {
		*rs = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into PostalCodeRanges", value)
	}
	return json.Unmarshal(data, rs)
}

// Zone is a named geography predicate plus zone-level defaults. A zone with
// every membership list empty is a catch-all ("rest of world").
type Zone struct {
	shared.BaseEntity
	Slug             string               `gorm:"type:varchar(100);not null;uniqueIndex"`
	Code             string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name             string               `gorm:"type:varchar(100);not null"`
	Type             ZoneType             `gorm:"type:varchar(20);not null;default:'custom'"`
	Countries        StringList           `gorm:"type:jsonb"`
	Regions          StringList           `gorm:"type:jsonb"`
	Cities           StringList           `gorm:"type:jsonb"`
	PostalCodes      StringList           `gorm:"type:jsonb"`
	PostalCodeRanges PostalCodeRanges     `gorm:"type:jsonb"`
	DefaultTaxRate   decimal.Decimal      `gorm:"type:decimal(8,6);not null;default:0"`
	CurrencyCode     valueobject.Currency `gorm:"type:varchar(3);not null;default:'TRY'"`
	SortOrder        int                  `gorm:"not null;default:0"`
	IsActive         bool                 `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Zone) TableName() string {
	return "shipping_zones"
}

// NewZone creates a new shipping zone
func NewZone(slug, code, name string, zoneType ZoneType) (*Zone, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	code = strings.ToUpper(strings.TrimSpace(code))
	if slug == "" || code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Zone slug and code cannot be empty")
	}
	if !zoneType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ZONE_TYPE", fmt.Sprintf("Unknown zone type %q", zoneType))
	}

	return &Zone{
		BaseEntity:   shared.NewBaseEntity(),
		Slug:         slug,
		Code:         code,
		Name:         name,
		Type:         zoneType,
		CurrencyCode: valueobject.DefaultCurrency,
		IsActive:     true,
	}, nil
}

// IsCatchAll returns true when every membership list is empty, meaning the
// zone matches any address.
func (z *Zone) IsCatchAll() bool {
	return len(z.Countries) == 0 &&
		len(z.Regions) == 0 &&
		len(z.Cities) == 0 &&
		len(z.PostalCodes) == 0 &&
		len(z.PostalCodeRanges) == 0
}
