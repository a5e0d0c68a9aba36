// Package ingest reads boundary condition series from CSV files.
package ingest

import (
	"io"

	"cellsim/internal/model"
)

// Parser reads boundary conditions from a source.
type Parser interface {
	Parse(r io.Reader) ([]model.BoundaryCondition, error)
}
