package domain

import "fmt"

// Status is the lifecycle state of a product. Transitions are one-directional
// along the issuance cycle and operator-privileged.
type Status int

const (
	StatusPending Status = iota
	StatusFundAccepting
	StatusFundLocked
	StatusIssued
	StatusMature
)

var statusNames = map[Status]string{
	StatusPending:       "Pending",
	StatusFundAccepting: "FundAccepting",
	StatusFundLocked:    "FundLocked",
	StatusIssued:        "Issued",
	StatusMature:        "Mature",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// MarshalJSON renders the status as its name for API responses and the journal.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}
