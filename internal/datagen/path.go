package datagen

import (
	"fmt"
	"path/filepath"
)

// PathBuilder derives where a generated index is cached, so a second run
// with the same parameters reuses it.
type PathBuilder struct {
	Dir          string
	Name         string
	DocCount     int64
	StringLength int
	NullPercent  int
}

// Build returns the index path, e.g. "<dir>/sqlops_d1000000_l20_n10.idx".
func (p PathBuilder) Build() string {
	name := p.Name
	if name == "" {
		name = "sqlops"
	}
	return filepath.Join(p.Dir, fmt.Sprintf("%s_d%d_l%d_n%d.idx", name, p.DocCount, p.StringLength, p.NullPercent))
}
