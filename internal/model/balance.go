package model

// Balance is the electrical and thermal generation and load of an entity
// during one step, in W.
type Balance struct {
	GenE  float64 `json:"gen_e" csv:"gen_e"`
	LoadE float64 `json:"load_e" csv:"load_e"`
	GenT  float64 `json:"gen_t" csv:"gen_t"`
	LoadT float64 `json:"load_t" csv:"load_t"`
}

// Add returns the component-wise sum of b and o.
func (b Balance) Add(o Balance) Balance {
	return Balance{
		GenE:  b.GenE + o.GenE,
		LoadE: b.LoadE + o.LoadE,
		GenT:  b.GenT + o.GenT,
		LoadT: b.LoadT + o.LoadT,
	}
}

// Electrical is the net electrical balance (negative = net consumption).
func (b Balance) Electrical() float64 {
	return b.GenE - b.LoadE
}

// Thermal is the net thermal balance (negative = net consumption).
func (b Balance) Thermal() float64 {
	return b.GenT - b.LoadT
}
