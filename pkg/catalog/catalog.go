package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/coolbeans/modcat/pkg/extract"
)

// ErrDuplicateCode is matched by errors.Is when a catalog contains the same
// module code more than once.
var ErrDuplicateCode = errors.New("duplicate module code")

// Collision is a module code shared by several records.
type Collision struct {
	Code string `json:"code"`
	// Positions are indexes into Catalog.Records, ascending.
	Positions []int `json:"positions"`
}

// CollisionError reports every colliding module code of a catalog.
type CollisionError struct {
	Collisions []Collision
}

func (e *CollisionError) Error() string {
	codes := make([]string, len(e.Collisions))
	for i, c := range e.Collisions {
		codes[i] = fmt.Sprintf("%s (x%d)", c.Code, len(c.Positions))
	}
	return fmt.Sprintf("%v: %s", ErrDuplicateCode, strings.Join(codes, ", "))
}

// Is lets errors.Is match ErrDuplicateCode.
func (e *CollisionError) Is(target error) bool {
	return target == ErrDuplicateCode
}

// Catalog is the result of one build.
type Catalog struct {
	// Records holds one record per accepted module, in document order.
	Records []Record `json:"records"`

	// Blocks are the module blocks the records were built from, parallel to Records.
	Blocks []extract.Block `json:"-"`

	Collisions []Collision `json:"collisions,omitempty"`

	// OverviewDuplicates lists codes that more than one overview row claimed.
	OverviewDuplicates []string `json:"overview_duplicates,omitempty"`
}

// Err returns a *CollisionError when module codes repeat, nil otherwise.
func (c *Catalog) Err() error {
	if len(c.Collisions) == 0 {
		return nil
	}
	return &CollisionError{Collisions: c.Collisions}
}

// findCollisions groups record positions by module code and keeps the codes
// with more than one record, in order of first appearance.
func findCollisions(records []Record) []Collision {
	positions := make(map[string][]int)
	var order []string
	for i, rec := range records {
		if _, seen := positions[rec.ModuleNo]; !seen {
			order = append(order, rec.ModuleNo)
		}
		positions[rec.ModuleNo] = append(positions[rec.ModuleNo], i)
	}

	var collisions []Collision
	for _, code := range order {
		if p := positions[code]; len(p) > 1 {
			collisions = append(collisions, Collision{Code: code, Positions: p})
		}
	}
	return collisions
}
