package component

import (
	"fmt"

	"cellsim/internal/hist"
)

// heatpumpMinLoad is the lowest modulation level of a running heatpump.
const heatpumpMinLoad = 0.2

// Polynomial coefficients c0..c5 of
// c0 + c1*ts + c2*to + c3*ts*to + c4*ts² + c5*to²
// indexed by [power band][outside temperature band].
type coefficients [6]float64

var copTable = [3][3]coefficients{
	{ // < 18 kW
		{5.398, -0.05601, 0.14818, -0.00185, 0, 0.0008},
		{6.22734, -0.07497, 0.07841, 0, 0, 0},
		{5.59461, -0.0671, 0.17291, -0.00097, 0, -0.00206},
	},
	{ // < 35 kW
		{4.79304, -0.04132, 0.05651, 0, 0, 0},
		{6.34439, -0.1043, 0.0751, -0.00016, 0.00059, 0},
		{5.07629, -0.04833, 0.09969, -0.00096, 0.00009, 0},
	},
	{ // >= 35 kW
		{6.28133, -0.10087, 0.11251, -0.00097, 0.00056, 0.00069},
		{6.23384, -0.09963, 0.11295, -0.00061, 0.00052, 0},
		{5.0019, -0.04138, 0.10137, -0.00112, 0, 0.00027},
	},
}

var powerFactorTable = [3][3]coefficients{
	{
		{1.04213, -0.00234, 0.03152, -0.00019, 0, 0},
		{1.02701, -0.00366, 0.03202, 0.00003, 0, 0},
		{0.81917, -0.00301, 0.0651, -0.00003, 0, -0.00112},
	},
	{
		{1.03825, -0.00223, 0.02272, 0, 0, 0},
		{0.93526, -0.0005, 0.03926, -0.00021, 0, 0},
		{0.79796, 0.00005, 0.05928, -0.00026, 0, -0.00066},
	},
	{
		{1.10902, -0.00478, 0.02136, 0.00019, 0, 0},
		{1.08294, -0.00438, 0.03386, 0, 0, 0},
		{1.10262, -0.00316, 0.0295, -0.00009, 0, 0.00008},
	},
}

func tableIndex(powT, tOut float64) (int, int) {
	p := 2
	switch {
	case powT < 18000:
		p = 0
	case powT < 35000:
		p = 1
	}
	t := 2
	switch {
	case tOut < 7:
		t = 0
	case tOut < 10:
		t = 1
	}
	return p, t
}

func (c coefficients) eval(ts, to float64) float64 {
	return c[0] + c[1]*ts + c[2]*to + c[3]*ts*to + c[4]*ts*ts + c[5]*to*to
}

// COP returns the coefficient of performance of a heatpump with nominal
// thermal power powT at outside temperature tOut and supply temperature
// tSupply.
func COP(powT, tOut, tSupply float64) float64 {
	p, t := tableIndex(powT, tOut)
	return copTable[p][t].eval(tSupply, tOut)
}

// PowerFactor returns the ratio of available to nominal thermal power.
func PowerFactor(powT, tOut, tSupply float64) float64 {
	p, t := tableIndex(powT, tOut)
	return powerFactorTable[p][t].eval(tSupply, tOut)
}

// Heatpump is an air/water heatpump with modulating output.
type Heatpump struct {
	powT        float64
	tSupply     float64
	tMinWorking float64
	state       float64

	conE *hist.Ring
	genT *hist.Ring
	cop  *hist.Ring
}

func NewHeatpump(powT, tSupply, tMinWorking float64, histSize int) (*Heatpump, error) {
	if powT < 0 {
		return nil, fmt.Errorf("%w: heatpump thermal power %.1f W is negative", ErrInvalid, powT)
	}
	return &Heatpump{
		powT:        powT,
		tSupply:     tSupply,
		tMinWorking: tMinWorking,
		conE:        hist.New(histSize),
		genT:        hist.New(histSize),
		cop:         hist.New(histSize),
	}, nil
}

// Step runs the heatpump at the requested modulation and returns electrical
// consumption and thermal generation. Requests above zero are raised to the
// minimum load.
func (h *Heatpump) Step(state, tOut float64) (conE, genT float64) {
	if state > 0 {
		h.state = max(heatpumpMinLoad, min(state, 1))
	} else {
		h.state = 0
	}

	cop := -1.0
	if h.state > 0 {
		genT = h.state * h.powT * PowerFactor(h.powT, tOut, h.tSupply)
		cop = COP(h.powT, tOut, h.tSupply)
		conE = genT / cop
	}
	h.conE.Save(conE)
	h.genT.Save(genT)
	h.cop.Save(cop)
	return conE, genT
}

func (h *Heatpump) ThermalPower() float64     { return h.powT }
func (h *Heatpump) SupplyTemperature() float64 { return h.tSupply }
func (h *Heatpump) MinWorkingTemperature() float64 {
	return h.tMinWorking
}
func (h *Heatpump) State() float64 { return h.state }

// History returns consumption, generation and COP (-1 while off).
func (h *Heatpump) History() (conE, genT, cop []float64) {
	return h.conE.Values(), h.genT.Values(), h.cop.Values()
}
