package wavelet

import "fmt"

// FlattenCoeffs packs per-column coefficient vectors (scaling first, then
// each wavelet scale) into the single parameter vector sampled by the
// chain.
func FlattenCoeffs(cols [][]complex128) []complex128 {
	var n int
	for _, col := range cols {
		n += len(col)
	}
	out := make([]complex128, 0, n)
	for _, col := range cols {
		out = append(out, col...)
	}
	return out
}

// ExpandCoeffs splits a chain parameter vector back into nscales+1 equal
// columns, scaling first. The vector length must divide evenly.
func ExpandCoeffs(x []complex128, nscales int) ([][]complex128, error) {
	if nscales < 1 {
		return nil, fmt.Errorf("need at least one wavelet scale, got %d", nscales)
	}
	ncols := nscales + 1
	if len(x) == 0 || len(x)%ncols != 0 {
		return nil, fmt.Errorf("parameter vector of length %d does not split into %d columns", len(x), ncols)
	}
	stride := len(x) / ncols
	cols := make([][]complex128, ncols)
	for c := 0; c < ncols; c++ {
		col := make([]complex128, stride)
		copy(col, x[c*stride:(c+1)*stride])
		cols[c] = col
	}
	return cols, nil
}
