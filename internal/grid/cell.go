package grid

import (
	"fmt"
	"sort"
)

// Cell is one fishnet grid cell. Cells are immutable for the life of a run.
type Cell struct {
	ID     int     `json:"id"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Region Region  `json:"region"`
}

// Classifier resolves grid cells to their reporting region and location.
type Classifier interface {
	// Cell returns the cell with the given id.
	Cell(id int) (Cell, bool)
	// Cells returns every classified cell ordered by id.
	Cells() []Cell
}

// CellIndex is an in-memory Classifier.
type CellIndex struct {
	byID  map[int]int
	cells []Cell
}

// NewCellIndex builds an index from cells. Duplicate ids and cells that are not
// classified into exactly one sub-region are rejected.
func NewCellIndex(cells []Cell) (*CellIndex, error) {
	idx := &CellIndex{byID: make(map[int]int, len(cells))}
	for _, c := range cells {
		if err := idx.Add(c); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Add inserts a single cell, keeping the ordering by id.
func (x *CellIndex) Add(c Cell) error {
	if x.byID == nil {
		x.byID = make(map[int]int)
	}
	if !c.Region.IsSubRegion() {
		return fmt.Errorf("cell %d: region %s is not a sub-region", c.ID, c.Region)
	}
	if _, ok := x.byID[c.ID]; ok {
		return fmt.Errorf("cell %d: duplicate id", c.ID)
	}

	pos := sort.Search(len(x.cells), func(i int) bool { return x.cells[i].ID >= c.ID })
	x.cells = append(x.cells, Cell{})
	copy(x.cells[pos+1:], x.cells[pos:])
	x.cells[pos] = c

	for i := pos; i < len(x.cells); i++ {
		x.byID[x.cells[i].ID] = i
	}
	return nil
}

func (x *CellIndex) Cell(id int) (Cell, bool) {
	i, ok := x.byID[id]
	if !ok {
		return Cell{}, false
	}
	return x.cells[i], true
}

func (x *CellIndex) Cells() []Cell {
	return x.cells
}

// Len returns the number of indexed cells.
func (x *CellIndex) Len() int {
	return len(x.cells)
}
