package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

// Amount stores a smallest-unit token amount as a decimal string column and
// marshals to JSON as a string, so 18-decimal values survive JavaScript clients.
type Amount string

// NewAmount converts a big.Int (nil counts as zero).
func NewAmount(v *big.Int) Amount {
	return Amount(orZero(v).String())
}

// Big parses the amount. An empty amount is zero.
func (a Amount) Big() (*big.Int, error) {
	if a == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(string(a), 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", string(a))
	}
	return v, nil
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	if a == "" {
		return []byte(`"0"`), nil
	}
	return json.Marshal(string(a))
}

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		s = n.String()
	}
	if _, ok := new(big.Int).SetString(s, 10); !ok {
		return fmt.Errorf("invalid amount %q", s)
	}
	*a = Amount(s)
	return nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*a = ""
	case []byte:
		*a = Amount(v)
	case string:
		*a = Amount(v)
	case int64:
		*a = Amount(big.NewInt(v).String())
	default:
		return errors.New("unsupported type for Amount")
	}
	return nil
}

// Value implements driver.Valuer.
func (a Amount) Value() (driver.Value, error) {
	if a == "" {
		return "0", nil
	}
	return string(a), nil
}
