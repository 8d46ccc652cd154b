package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Address is a value object representing a shipping destination.
// It is immutable - all operations return new Address instances.
// Country code is ISO 3166-1 alpha-2 and is the only required field;
// region, city and postal code refine geographic matching when present.
type Address struct {
	countryCode string
	region      string
	city        string
	postalCode  string
}

// NewAddress creates a new Address. The country code is required and is
// normalized to upper case; the remaining fields are trimmed as-is so
// matchers can apply their own comparison rules (e.g. locale folding).
func NewAddress(countryCode, region, city, postalCode string) (Address, error) {
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))
	if countryCode == "" {
		return Address{}, fmt.Errorf("country code cannot be empty")
	}
	if len(countryCode) != 2 {
		return Address{}, fmt.Errorf("country code must be ISO 3166-1 alpha-2, got %q", countryCode)
	}

	return Address{
		countryCode: countryCode,
		region:      strings.TrimSpace(region),
		city:        strings.TrimSpace(city),
		postalCode:  strings.TrimSpace(postalCode),
	}, nil
}

// MustNewAddress creates a new Address, panics on error
func MustNewAddress(countryCode, region, city, postalCode string) Address {
	addr, err := NewAddress(countryCode, region, city, postalCode)
	if err != nil {
		panic(err)
	}
	return addr
}

// CountryCode returns the ISO country code
func (a Address) CountryCode() string {
	return a.countryCode
}

// Region returns the region/province name
func (a Address) Region() string {
	return a.region
}

// City returns the city name
func (a Address) City() string {
	return a.city
}

// PostalCode returns the postal code
func (a Address) PostalCode() string {
	return a.postalCode
}

// Equals returns true if both addresses have identical fields
func (a Address) Equals(other Address) bool {
	return a == other
}

// String returns a human-readable representation
func (a Address) String() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{a.city, a.region, a.postalCode, a.countryCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// addressJSON is the serialized form of Address
type addressJSON struct {
	CountryCode string `json:"country_code"`
	Region      string `json:"region,omitempty"`
	City        string `json:"city,omitempty"`
	PostalCode  string `json:"postal_code,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(addressJSON{
		CountryCode: a.countryCode,
		Region:      a.region,
		City:        a.city,
		PostalCode:  a.postalCode,
	})
}

// UnmarshalJSON implements json.Unmarshaler for request binding
func (a *Address) UnmarshalJSON(data []byte) error {
	var v addressJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	addr, err := NewAddress(v.CountryCode, v.Region, v.City, v.PostalCode)
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// Value implements driver.Valuer for database storage (JSON column)
func (a Address) Value() (driver.Value, error) {
	return json.Marshal(addressJSON{
		CountryCode: a.countryCode,
		Region:      a.region,
		City:        a.city,
		PostalCode:  a.postalCode,
	})
}

// Scan implements sql.Scanner for database retrieval
func (a *Address) Scan(value any) error {
	if value == nil {
		*a = Address{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Address", value)
	}

	return a.UnmarshalJSON(data)
}
