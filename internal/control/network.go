package control

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// layer is a fully-connected layer y = W x + b.
type layer struct {
	w *mat.Dense    // [out][in]
	b *mat.VecDense // [out]
}

// Network is a feedforward network with ReLU hidden layers and a linear
// output layer. Only inference is supported.
type Network struct {
	layers []layer
}

// LayerWeights is the serialized form of one layer.
type LayerWeights struct {
	Weights [][]float64 `json:"weights"`
	Biases  []float64   `json:"biases"`
}

// NewNetwork builds a network from per-layer weight matrices ([out][in])
// and bias vectors.
func NewNetwork(layers []LayerWeights) (*Network, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("%w: network has no layers", ErrInvalid)
	}
	n := &Network{layers: make([]layer, len(layers))}
	in := -1
	for i, l := range layers {
		out := len(l.Weights)
		if out == 0 || len(l.Biases) != out {
			return nil, fmt.Errorf("%w: layer %d has %d rows and %d biases", ErrInvalid, i, out, len(l.Biases))
		}
		cols := len(l.Weights[0])
		if cols == 0 || (in >= 0 && cols != in) {
			return nil, fmt.Errorf("%w: layer %d expects %d inputs, previous layer gives %d", ErrInvalid, i, cols, in)
		}
		data := make([]float64, 0, out*cols)
		for j, row := range l.Weights {
			if len(row) != cols {
				return nil, fmt.Errorf("%w: layer %d row %d has %d columns, want %d", ErrInvalid, i, j, len(row), cols)
			}
			data = append(data, row...)
		}
		n.layers[i] = layer{
			w: mat.NewDense(out, cols, data),
			b: mat.NewVecDense(out, append([]float64(nil), l.Biases...)),
		}
		in = out
	}
	return n, nil
}

// InputSize returns the number of input features.
func (n *Network) InputSize() int {
	_, c := n.layers[0].w.Dims()
	return c
}

// OutputSize returns the number of outputs.
func (n *Network) OutputSize() int {
	return n.layers[len(n.layers)-1].b.Len()
}

// Forward computes the network output for input.
func (n *Network) Forward(input []float64) []float64 {
	x := mat.NewVecDense(len(input), append([]float64(nil), input...))
	for i, l := range n.layers {
		var y mat.VecDense
		y.MulVec(l.w, x)
		y.AddVec(&y, l.b)
		if i < len(n.layers)-1 {
			for j := 0; j < y.Len(); j++ {
				if y.AtVec(j) < 0 {
					y.SetVec(j, 0)
				}
			}
		}
		x = &y
	}
	return append([]float64(nil), x.RawVector().Data...)
}

func (n *Network) MarshalJSON() ([]byte, error) {
	layers := make([]LayerWeights, len(n.layers))
	for i, l := range n.layers {
		r, _ := l.w.Dims()
		rows := make([][]float64, r)
		for j := range rows {
			rows[j] = mat.Row(nil, j, l.w)
		}
		layers[i] = LayerWeights{Weights: rows, Biases: append([]float64(nil), l.b.RawVector().Data...)}
	}
	return json.Marshal(struct {
		Layers []LayerWeights `json:"layers"`
	}{Layers: layers})
}

func (n *Network) UnmarshalJSON(data []byte) error {
	var raw struct {
		Layers []LayerWeights `json:"layers"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	built, err := NewNetwork(raw.Layers)
	if err != nil {
		return err
	}
	*n = *built
	return nil
}
