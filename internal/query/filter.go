// Package query composes and runs the filtered history query.
package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cityops/traffic-light-monitor/internal/errs"
	"github.com/cityops/traffic-light-monitor/internal/repository"
	"github.com/cityops/traffic-light-monitor/tools/timeparse"
)

// deviceAll is the sentinel meaning "no device filter"
const deviceAll = "all"

// Params are the raw filter parameters as extracted by the endpoint
// framing. Empty strings mean the filter is absent.
type Params struct {
	StreetID  string
	DeviceID  string
	StartDate string
	EndDate   string
}

// ParseFilter validates the raw parameters into a repository filter.
// A device id that is neither an integer nor the case-insensitive "all"
// sentinel, or an unparsable date bound, is an invalid filter.
func ParseFilter(p Params) (repository.Filter, error) {
	f := repository.Filter{StreetID: strings.TrimSpace(p.StreetID)}

	device := strings.TrimSpace(p.DeviceID)
	if device != "" && !strings.EqualFold(device, deviceAll) {
		id, err := strconv.Atoi(device)
		if err != nil {
			return repository.Filter{}, fmt.Errorf("%w: device id %q is not an integer or %q", errs.ErrInvalidFilter, device, deviceAll)
		}
		f.DeviceID = &id
	}

	if start := strings.TrimSpace(p.StartDate); start != "" {
		t, err := timeparse.ParseFilterTime(start)
		if err != nil {
			return repository.Filter{}, fmt.Errorf("%w: start date: %v", errs.ErrInvalidFilter, err)
		}
		f.Start = &t
	}

	if end := strings.TrimSpace(p.EndDate); end != "" {
		t, err := timeparse.ParseFilterTime(end)
		if err != nil {
			return repository.Filter{}, fmt.Errorf("%w: end date: %v", errs.ErrInvalidFilter, err)
		}
		f.End = &t
	}

	return f, nil
}
