package parking

import (
	"fmt"
	"time"
)

// rateTier is the pricing applied to one vehicle type
type rateTier struct {
	FirstHour      float64
	AdditionalHour float64
}

var (
	motorcycleTier = rateTier{FirstHour: 8.00, AdditionalHour: 5.00}
	carTier        = rateTier{FirstHour: 12.00, AdditionalHour: 8.00}
)

// tierFor returns the rate tier for a vehicle type. Other bills as a car.
func tierFor(t VehicleType) rateTier {
	switch t {
	case VehicleTypeMotorcycle:
		return motorcycleTier
	case VehicleTypeCar, VehicleTypeOther:
		return carTier
	default:
		return carTier
	}
}

// ElapsedDuration returns how long the vehicle has been (or was) at the lot.
// For a vehicle still present it is measured up to now.
func (r *VehicleRecord) ElapsedDuration(now time.Time) time.Duration {
	end := now
	if r.ExitTime != nil {
		end = *r.ExitTime
	}
	d := end.Sub(r.EntryTime)
	if d < 0 {
		return 0
	}
	return d
}

// BillableHours converts the stay into whole hours: any started hour counts,
// and a stay of zero minutes still bills one hour.
func (r *VehicleRecord) BillableHours(now time.Time) int64 {
	return billableHours(r.ElapsedDuration(now))
}

// CalculateFee prices the stay using the tier of the vehicle's type
func (r *VehicleRecord) CalculateFee(now time.Time) float64 {
	return feeFor(r.VehicleType, r.BillableHours(now))
}

func billableHours(d time.Duration) int64 {
	minutes := int64(d / time.Minute)
	hours := minutes / 60
	if minutes%60 > 0 || hours == 0 {
		hours++
	}
	return hours
}

func feeFor(t VehicleType, hours int64) float64 {
	tier := tierFor(t)
	if hours <= 1 {
		return tier.FirstHour
	}
	return tier.FirstHour + float64(hours-1)*tier.AdditionalHour
}

// HumanReadableElapsed renders a duration the way the front desk reads it out
func HumanReadableElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int64(d / time.Hour)
	minutes := int64(d/time.Minute) % 60

	switch {
	case hours == 0 && minutes == 0:
		return "less than 1 minute"
	case hours == 0:
		return fmt.Sprintf("%d minute(s)", minutes)
	case minutes == 0:
		return fmt.Sprintf("%d hour(s)", hours)
	default:
		return fmt.Sprintf("%d hour(s) and %d minute(s)", hours, minutes)
	}
}
