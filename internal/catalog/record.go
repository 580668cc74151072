package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RawRecord is one untyped upstream record. Fields may be missing, empty,
// null, or number-punned; every accessor documents its absence behavior and
// nothing here is treated as an error.
type RawRecord map[string]any

// field returns the trimmed string form of a value. Absent, null, and
// empty-string values report ok=false. Numbers are rendered without a
// trailing ".0" so ids and years survive JSON number decoding.
func (r RawRecord) field(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return strconv.FormatInt(int64(t), 10), true
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		s := strings.TrimSpace(fmt.Sprint(t))
		return s, s != ""
	}
}

// stringOr returns the field value or a default when absent.
func (r RawRecord) stringOr(key, def string) string {
	if s, ok := r.field(key); ok {
		return s
	}
	return def
}

// Make returns the manufacturer name.
func (r RawRecord) Make() (string, bool) { return r.field("make") }

// Model returns the full model name (trim variants included).
func (r RawRecord) Model() (string, bool) { return r.field("model") }

// BaseModel returns the upstream base model name, falling back to the full
// model name when the key is absent. A present-but-empty base model is
// reported as absent and later fails model resolution.
func (r RawRecord) BaseModel() (string, bool) {
	if _, exists := r["basemodel"]; exists {
		return r.field("basemodel")
	}
	return r.Model()
}

// Year returns the unparsed model year text.
func (r RawRecord) Year() (string, bool) { return r.field("year") }

// Displacement returns the unparsed engine displacement text, "" when absent.
func (r RawRecord) Displacement() string { return r.stringOr("displ", "") }

// FuelText returns the primary fuel description, "" when absent.
func (r RawRecord) FuelText() string { return r.stringOr("fueltype1", "") }

// TransmissionText returns the transmission description, "" when absent.
func (r RawRecord) TransmissionText() string { return r.stringOr("trany", "") }

// DriveText returns the drivetrain description, "" when absent.
func (r RawRecord) DriveText() string { return r.stringOr("drive", "") }

// VehicleClass returns the vehicle class description, "" when absent.
func (r RawRecord) VehicleClass() string { return r.stringOr("vclass", "") }

// UpstreamID returns the source record id, "" when absent.
func (r RawRecord) UpstreamID() string { return r.stringOr("id", "") }
