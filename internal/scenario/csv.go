package scenario

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/san-kum/astrosim/internal/particle"
	"github.com/san-kum/astrosim/internal/vec"
)

var ErrBadRecord = errors.New("scenario: malformed particle record")

// ReadCSV parses records of "mass, x, y, vx, vy". Lines starting with '#'
// are comments; there is no header row.
func ReadCSV(r io.Reader) ([]particle.Particle, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = 5
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var ps []particle.Particle
	for {
		record, err := cr.Read()
		if err == io.EOF {
			return ps, nil
		}
		if err != nil {
			// csv.ParseError already names the line.
			return nil, fmt.Errorf("%w: %v", ErrBadRecord, err)
		}

		var v [5]float64
		for i, field := range record {
			f, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				line, _ := cr.FieldPos(i)
				return nil, fmt.Errorf("%w: line %d field %d: %v", ErrBadRecord, line, i+1, err)
			}
			v[i] = f
		}
		if v[0] < 0 {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d: negative mass %g", ErrBadRecord, line, v[0])
		}
		ps = append(ps, particle.New(v[0], vec.New(v[1], v[2]), vec.New(v[3], v[4])))
	}
}

// LoadFiles concatenates the particles of every file, in order.
func LoadFiles(paths ...string) ([]particle.Particle, error) {
	if len(paths) == 0 {
		return nil, errors.New("scenario: need at least one input file (CSV with mass, positions, velocities)")
	}
	var all []particle.Particle
	for _, path := range paths {
		ps, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		all = append(all, ps...)
	}
	return all, nil
}

func loadFile(path string) ([]particle.Particle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ps, err := ReadCSV(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ps, nil
}

// WriteCSV writes ps in the format read by ReadCSV. Values use the
// shortest representation that parses back to the same float64.
func WriteCSV(w io.Writer, ps []particle.Particle) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# mass, x, y, vx, vy")
	var b []byte
	for _, p := range ps {
		b = strconv.AppendFloat(b[:0], p.Mass, 'g', -1, 64)
		for _, v := range [...]float64{p.Pos.X, p.Pos.Y, p.Vel.X, p.Vel.Y} {
			b = append(b, ", "...)
			b = strconv.AppendFloat(b, v, 'g', -1, 64)
		}
		b = append(b, '\n')
		if _, err := bw.Write(b); err != nil {
			return err
		}
	}
	return bw.Flush()
}
