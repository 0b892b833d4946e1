package enums

type DiscountType string

const (
	DiscountTypeFree       DiscountType = "free"
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

func (d DiscountType) Valid() bool {
	switch d {
	case DiscountTypeFree, DiscountTypePercentage, DiscountTypeFixed:
		return true
	default:
		return false
	}
}
