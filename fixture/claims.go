package fixture

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DefaultKeyID is the kid used when neither an override nor a fixture option sets one
const DefaultKeyID = "1234567"

// DefaultAlgorithm is the signing algorithm used when none is requested
const DefaultAlgorithm = "RS256"

// sampleHeader returns the default JWT header
func sampleHeader(kid string) map[string]interface{} {
	return map[string]interface{}{
		"alg": DefaultAlgorithm,
		"typ": "JWT",
		"kid": kid,
	}
}

// samplePayload returns the default claim set for the sample identity
func samplePayload() map[string]interface{} {
	return map[string]interface{}{
		"realm_access": map[string]interface{}{
			"roles": []interface{}{"admin", "uma_authorization", "user"},
		},
		"resource_access": map[string]interface{}{
			"node-service": map[string]interface{}{
				"roles": []interface{}{"view-everything"},
			},
			"account": map[string]interface{}{
				"roles": []interface{}{"manage-account", "manage-account-links", "view-profile"},
			},
		},
		"name":               "Juan Perez",
		"preferred_username": "juanperez@example.com",
		"given_name":         "Juan",
		"family_name":        "Perez",
		"email":              "juanperez@example.com",
		"typ":                "Bearer",
	}
}

// merge copies each override onto base at the top level. Nested values
// replace the base value wholesale.
func merge(base map[string]interface{}, overrides ...map[string]interface{}) map[string]interface{} {
	for _, o := range overrides {
		for k, v := range o {
			base[k] = v
		}
	}
	return base
}

// normalize round-trips m through JSON. With useNumber set, numbers are
// kept as json.Number, which is how the decoder in this package reads claims.
func normalize(m map[string]interface{}, useNumber bool) (map[string]interface{}, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if useNumber {
		dec.UseNumber()
	}

	var out map[string]interface{}
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// copyMap deep-copies a normalized JSON object
func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return copyMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

// normalizeValue is normalize for a single value. Values that cannot be
// marshaled are returned unchanged.
func normalizeValue(v interface{}) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var out interface{}
	if err := dec.Decode(&out); err != nil {
		return v
	}
	return out
}

// stringField returns m[key] as a string. Absent keys are reported with ok
// false; present keys of another type are an error.
func stringField(m map[string]interface{}, key string) (value string, ok bool, err error) {
	raw, exists := m[key]
	if !exists {
		return "", false, nil
	}
	s, isString := raw.(string)
	if !isString {
		return "", true, fmt.Errorf("header %q must be a string, got %T", key, raw)
	}
	return s, true, nil
}
