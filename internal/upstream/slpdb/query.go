package slpdb

import (
	"encoding/base64"
	"strconv"
	"strings"
)

// query is the SLPDB request document: {"v":3,"q":{...}}.
type query struct {
	V int `json:"v"`
	Q q   `json:"q"`
}

type q struct {
	DB      []string `json:"db"`
	Find    any      `json:"find"`
	Project any      `json:"project,omitempty"`
	Sort    any      `json:"sort,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}

type findQuery struct {
	Query map[string]any `json:"$query"`
}

type tokenProject struct {
	TokenDetails int `json:"tokenDetails"`
	TokenStats   int `json:"tokenStats"`
	ID           int `json:"_id"`
}

var tokenFields = tokenProject{TokenDetails: 1, TokenStats: 1, ID: 0}

// encode renders the query as the base64 path segment SLPDB expects.
func (qr query) encode() (string, error) {
	data, err := json.Marshal(qr)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decimal is an SLPDB numeric value. SLPDB renders Decimal128 fields as
// strings, plain numbers or {"$numberDecimal": "..."} depending on version.
type Decimal string

// UnmarshalJSON accepts every rendering SLPDB produces.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	switch {
	case raw == "null" || raw == "":
		*d = ""
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = Decimal(s)
	case strings.HasPrefix(raw, "{"):
		var wrapped struct {
			Value string `json:"$numberDecimal"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return err
		}
		*d = Decimal(wrapped.Value)
	default:
		*d = Decimal(raw)
	}
	return nil
}

// String returns the decimal text, "0" when empty.
func (d Decimal) String() string {
	if d == "" {
		return "0"
	}
	return string(d)
}

// Float parses the decimal, returning 0 on garbage.
func (d Decimal) Float() float64 {
	f, err := strconv.ParseFloat(d.String(), 64)
	if err != nil {
		return 0
	}
	return f
}
