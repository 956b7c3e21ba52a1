package order

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AnalyticLayout is the local date-time form used by the sink and by LINX
// search filters.
const AnalyticLayout = "2006-01-02 15:04:05"

const (
	vendorDatePrefix = "/Date("
	vendorDateSuffix = ")/"
)

var (
	ErrNotVendorDate   = errors.New("order: not a vendor date")
	ErrEmptyVendorDate = errors.New("order: empty vendor date")
)

// IsVendorDate reports whether s looks like /Date(...)/.
func IsVendorDate(s string) bool {
	return strings.HasPrefix(s, vendorDatePrefix)
}

// ParseVendorDate decodes /Date(<millis>[±<offset>])/ into an instant in loc,
// truncated to whole seconds. The offset suffix is ignored since the
// millisecond value is already UTC-based. A leading '-' belongs to the
// millisecond value.
func ParseVendorDate(s string, loc *time.Location) (time.Time, error) {
	if !IsVendorDate(s) {
		return time.Time{}, ErrNotVendorDate
	}
	if loc == nil {
		loc = time.Local
	}

	inner := strings.TrimPrefix(s, vendorDatePrefix)
	if end := strings.IndexByte(inner, ')'); end >= 0 {
		inner = inner[:end]
	}
	if inner == "" {
		return time.Time{}, ErrEmptyVendorDate
	}

	millis := inner
	if i := strings.IndexAny(inner[1:], "+-"); i >= 0 {
		millis = inner[:i+1]
	}

	ms, err := strconv.ParseInt(millis, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("order: invalid vendor date %q: %w", s, err)
	}
	return time.UnixMilli(ms).In(loc).Truncate(time.Second), nil
}

// FormatVendorDate encodes t as /Date(<unix millis>)/.
func FormatVendorDate(t time.Time) string {
	return vendorDatePrefix + strconv.FormatInt(t.UnixMilli(), 10) + vendorDateSuffix
}

// VendorDateToAnalytic converts a cursor value into the analytic form used
// in LINX search filters. Values that are not vendor-encoded are returned
// unchanged.
func VendorDateToAnalytic(s string, loc *time.Location) (string, error) {
	if !IsVendorDate(s) {
		return s, nil
	}
	t, err := ParseVendorDate(s, loc)
	if err != nil {
		return "", err
	}
	return t.Format(AnalyticLayout), nil
}
