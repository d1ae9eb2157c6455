package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/eigenbom/sds"
	"gonum.org/v1/gonum/spatial/r3"
)

// LoadTetgen reads basename.node and basename.ele and builds a mesh with
// FromTetras.
func LoadTetgen(basename string) (*Mesh, error) {
	node, err := os.Open(basename + ".node")
	if err != nil {
		return nil, err
	}
	defer node.Close()
	ele, err := os.Open(basename + ".ele")
	if err != nil {
		return nil, err
	}
	defer ele.Close()
	m, err := ReadTetgen(node, ele)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", basename, err)
	}
	return m, nil
}

// ReadTetgen parses a Tetgen node and element file pair. Indices must be
// 0-based and each record index must equal its position. Elements must have
// 4 nodes; attributes and boundary markers are ignored. Text after '#' is a
// comment.
func ReadTetgen(node, ele io.Reader) (*Mesh, error) {
	const op = "ReadTetgen"
	nodes := newTokenLines(node)
	header, err := nodes.next()
	if err != nil {
		return nil, sds.Wrap(sds.KindPrecondition, op, fmt.Errorf("node header: %w", err))
	}
	nn, err := atoiField(header, 0)
	if err != nil || nn <= 0 {
		return nil, sds.Errorf(sds.KindPrecondition, op, "node header %q: bad node count", strings.Join(header, " "))
	}
	if dim, err := atoiField(header, 1); err == nil && dim != 3 {
		return nil, sds.Errorf(sds.KindPrecondition, op, "node dimension %d, want 3", dim)
	}
	points := make([]r3.Vec, nn)
	for i := 0; i < nn; i++ {
		rec, err := nodes.next()
		if err != nil {
			return nil, sds.Wrap(sds.KindPrecondition, op, fmt.Errorf("node %d: %w", i, err))
		}
		if idx, err := atoiField(rec, 0); err != nil || idx != i {
			return nil, sds.Errorf(sds.KindPrecondition, op, "node record %d: index %q out of order", i, rec[0])
		}
		if len(rec) < 4 {
			return nil, sds.Errorf(sds.KindPrecondition, op, "node %d: want 3 coordinates", i)
		}
		var c [3]float64
		for k := range c {
			c[k], err = strconv.ParseFloat(rec[1+k], 64)
			if err != nil {
				return nil, sds.Wrap(sds.KindPrecondition, op, fmt.Errorf("node %d: %w", i, err))
			}
		}
		points[i] = r3.Vec{X: c[0], Y: c[1], Z: c[2]}
	}

	elems := newTokenLines(ele)
	header, err = elems.next()
	if err != nil {
		return nil, sds.Wrap(sds.KindPrecondition, op, fmt.Errorf("element header: %w", err))
	}
	nt, err := atoiField(header, 0)
	if err != nil || nt <= 0 {
		return nil, sds.Errorf(sds.KindPrecondition, op, "element header: no tetrahedra")
	}
	if per, err := atoiField(header, 1); err != nil || per != 4 {
		return nil, sds.Errorf(sds.KindPrecondition, op, "element header: not in 4 node format")
	}
	tetras := make([][4]int, nt)
	for i := 0; i < nt; i++ {
		rec, err := elems.next()
		if err != nil {
			return nil, sds.Wrap(sds.KindPrecondition, op, fmt.Errorf("tetra %d: %w", i, err))
		}
		if idx, err := atoiField(rec, 0); err != nil || idx != i {
			return nil, sds.Errorf(sds.KindPrecondition, op, "tetra record %d: indexing error", i)
		}
		for k := 0; k < 4; k++ {
			v, err := atoiField(rec, 1+k)
			if err != nil {
				return nil, sds.Wrap(sds.KindPrecondition, op, fmt.Errorf("tetra %d: %w", i, err))
			}
			if v < 0 || v >= nn {
				return nil, sds.Errorf(sds.KindPrecondition, op, "tetra %d: node %d out of range", i, v)
			}
			tetras[i][k] = v
		}
	}
	return FromTetras(points, tetras)
}

// tokenLines yields whitespace separated fields of non-empty lines with
// comments stripped.
type tokenLines struct {
	s    *bufio.Scanner
	line int
}

func newTokenLines(r io.Reader) *tokenLines {
	return &tokenLines{s: bufio.NewScanner(r)}
}

func (t *tokenLines) next() ([]string, error) {
	for t.s.Scan() {
		t.line++
		text := t.s.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		if fields := strings.Fields(text); len(fields) > 0 {
			return fields, nil
		}
	}
	if err := t.s.Err(); err != nil {
		return nil, err
	}
	return nil, io.ErrUnexpectedEOF
}

func atoiField(fields []string, i int) (int, error) {
	if i >= len(fields) {
		return 0, fmt.Errorf("missing field %d", i)
	}
	return strconv.Atoi(fields[i])
}
