package types

// PricingMode is how a plan turns a quantity into line items
type PricingMode string

const (
	// PricingModePerUnit charges the plan amount for every unit
	PricingModePerUnit PricingMode = "per_unit"

	// PricingModeTiered prices each tier's portion at that tier's rate
	// ex 1-10 seats at $10, 11-50 seats at $8
	PricingModeTiered PricingMode = "tiered"

	// PricingModeVolume prices all units at the rate of the tier that
	// contains the total quantity
	PricingModeVolume PricingMode = "volume"

	// PricingModeCustom uses an amount negotiated per subscription
	PricingModeCustom PricingMode = "custom"
)

var PricingModeValues = []PricingMode{
	PricingModePerUnit,
	PricingModeTiered,
	PricingModeVolume,
	PricingModeCustom,
}

func (p PricingMode) String() string {
	return string(p)
}

// IsTierBased reports whether the mode uses a tier table
func (p PricingMode) IsTierBased() bool {
	return p == PricingModeTiered || p == PricingModeVolume
}
