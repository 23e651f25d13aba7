package entities

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"
)

// ManagementType tells whether a facility is run in-house or by a partner
type ManagementType string

const (
	ManagementTypeInternal ManagementType = "internal"
	ManagementTypeExternal ManagementType = "external"
)

// Valid reports whether m is a known management type
func (m ManagementType) Valid() bool {
	return m == ManagementTypeInternal || m == ManagementTypeExternal
}

// ErrInvalidEquipment is returned when an equipment document is not valid JSON.
var ErrInvalidEquipment = errors.New("equipment is not a valid JSON document")

// Facility represents a bookable company facility
type Facility struct {
	ID             string          `json:"facility_id" db:"facility_id"`
	Name           string          `json:"facility_name" db:"facility_name"`
	FacilityType   string          `json:"facility_type" db:"facility_type"`
	Capacity       int             `json:"capacity" db:"capacity"`
	Location       string          `json:"location" db:"location"`
	Equipment      json.RawMessage `json:"equipment" db:"-"`
	ManagementType ManagementType  `json:"management_type" db:"management_type"`
	ExternalID     *string         `json:"external_id,omitempty" db:"external_id"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// ParseEquipment decodes a stored equipment document. Empty input yields a
// nil document.
func ParseEquipment(stored []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(stored)
	if len(trimmed) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, errors.Join(ErrInvalidEquipment, err)
	}
	return json.RawMessage(buf.Bytes()), nil
}
