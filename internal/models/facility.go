package models

// ChildDiscountAge is the age below which the child discount applies.
const ChildDiscountAge = 12

// Facility is one entry of the kiosk's facility catalog. The catalog is
// seeded once at first store initialization and read-mostly afterward.
type Facility struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	BasePrice   float64 `db:"base_price" json:"base_price"`
	Description string  `db:"description" json:"description"`
	IsActive    bool    `db:"is_active" json:"is_active"`
	CreatedAt   int64   `db:"created_at" json:"created_at"`
}

// TableName returns the table name for Facility.
func (Facility) TableName() string {
	return "facilities"
}

// PriceFor returns the price for a visitor of the given age. Children
// under ChildDiscountAge pay half the base price.
func (f *Facility) PriceFor(age *int) (price float64, discounted bool) {
	if age != nil && *age < ChildDiscountAge {
		return f.BasePrice * 0.5, true
	}
	return f.BasePrice, false
}

// DefaultFacilities is the fixed catalog seeded on first run.
func DefaultFacilities() []Facility {
	return []Facility{
		{Name: "Oval", BasePrice: 20, Description: "Running track and field area", IsActive: true},
		{Name: "Basketball Gym/Kadasig Gym", BasePrice: 20, Description: "Indoor basketball court", IsActive: true},
		{Name: "Badminton Court", BasePrice: 20, Description: "Indoor badminton facility", IsActive: true},
		{Name: "Tennis Court", BasePrice: 20, Description: "Outdoor tennis court", IsActive: true},
		{Name: "Swimming Pool", BasePrice: 100, Description: "Olympic-size swimming pool", IsActive: true},
		{Name: "Fitness Gym", BasePrice: 50, Description: "Weight training and cardio equipment", IsActive: true},
	}
}
