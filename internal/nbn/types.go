package nbn

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Suggestion is one candidate returned by the autocomplete endpoint.
type Suggestion struct {
	ID               string  `json:"id"`
	FormattedAddress string  `json:"formattedAddress"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	Source           string  `json:"source,omitempty"`
}

type autocompleteResponse struct {
	Timestamp   int64        `json:"timestamp"`
	Source      string       `json:"source"`
	Suggestions []Suggestion `json:"suggestions"`
}

// FirstUsable returns the highest ranked suggestion that carries an id. The service's own
// ordering is the rank.
func FirstUsable(suggestions []Suggestion) (Suggestion, bool) {
	for _, s := range suggestions {
		if strings.TrimSpace(s.ID) != "" {
			return s, true
		}
	}
	return Suggestion{}, false
}

// Detail is the record returned by the details endpoint.
type Detail struct {
	ServingArea   ServingArea   `json:"servingArea"`
	AddressDetail AddressDetail `json:"addressDetail"`
	AddressSplit  SplitAddress  `json:"addressSplitDetails"`
}

type ServingArea struct {
	CsaID         string `json:"csaId"`
	TechType      string `json:"techType"`
	ServiceType   string `json:"serviceType"`
	ServiceStatus string `json:"serviceStatus"`
	Description   string `json:"description"`
}

type AddressDetail struct {
	ID                string `json:"id"`
	FormattedAddress  string `json:"formattedAddress"`
	TechType          string `json:"techType"`
	ServiceType       string `json:"serviceType"`
	ServiceStatus     string `json:"serviceStatus"`
	AltReasonCode     string `json:"altReasonCode,omitempty"`
	TechChangeStatus  string `json:"techChangeStatus,omitempty"`
	ProgramType       string `json:"programType,omitempty"`
	TargetEligibility string `json:"targetEligibilityQuarter,omitempty"`
}

// SplitAddress holds the decomposed address lines of a non-final location in the order the
// service returned them.
type SplitAddress struct {
	Keys   []string
	Values []string
}

// Join reassembles the address from its non-empty components.
func (s SplitAddress) Join() string {
	parts := make([]string, 0, len(s.Values))
	for _, v := range s.Values {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

func (s *SplitAddress) UnmarshalJSON(data []byte) error {
	*s = SplitAddress{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("nbn: addressSplitDetails: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var value string
		switch v := raw.(type) {
		case nil:
		case string:
			value = v
		case float64, bool:
			value = fmt.Sprint(v)
		default:
			continue
		}
		s.Keys = append(s.Keys, keyTok.(string))
		s.Values = append(s.Values, value)
	}
	_, err = dec.Token()
	return err
}

func (s SplitAddress) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(s.Values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
