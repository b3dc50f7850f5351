package model

import "time"

// MountType is the motor installation style, selecting which price column of
// a MotorPrice row applies.
type MountType string

const (
	MountFlange MountType = "Flange"
	MountFoot   MountType = "Foot"
)

// Valid reports whether the mount type is one of the two known styles.
func (m MountType) Valid() bool {
	return m == MountFlange || m == MountFoot
}

// Motor holds a motor model's static attributes.
type Motor struct {
	ID            int64   `json:"id"`
	SupplierName  string  `json:"supplier_name"`
	MotorRange    string  `json:"motor_range,omitempty"`
	RatedOutputKW float64 `json:"rated_output"`
	Poles         int     `json:"poles"`
	SpeedRPM      int     `json:"speed_rpm,omitempty"`
	FrameSize     string  `json:"frame_size,omitempty"`
}

// MotorPrice is one entry in a motor's price time-series. A nil price column
// means the supplier does not offer that mount style for this motor.
type MotorPrice struct {
	ID            int64     `json:"id"`
	MotorID       int64     `json:"motor_id"`
	FlangePrice   *float64  `json:"flange_price,omitempty"`
	FootPrice     *float64  `json:"foot_price,omitempty"`
	DateEffective time.Time `json:"date_effective"`
}

// MotorWithPrice pairs a motor with its most recent price row.
type MotorWithPrice struct {
	Motor
	Price MotorPrice `json:"price"`
}

// MotorSupplierDiscount is a supplier-keyed, date-effective discount
// percentage (0-100).
type MotorSupplierDiscount struct {
	ID            int64     `json:"id"`
	SupplierName  string    `json:"supplier_name"`
	DiscountPct   float64   `json:"discount_pct"`
	DateEffective time.Time `json:"date_effective"`
}
