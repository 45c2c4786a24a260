package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

var errInvalidUserID = errors.New("user id must be a whole number")

// flexID accepts an id sent as a JSON number or as a numeric string. The
// storefront reads user ids back from local storage, so they arrive as
// strings. An empty string decodes to zero.
type flexID int64

func (id *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return errInvalidUserID
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*id = 0
			return nil
		}
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return errInvalidUserID
	}
	*id = flexID(v)
	return nil
}

// optional returns nil for an absent or zero id.
func (id *flexID) optional() *int64 {
	if id == nil || *id == 0 {
		return nil
	}
	v := int64(*id)
	return &v
}
