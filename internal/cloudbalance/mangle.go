package cloudbalance

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/mangle/ast"
	"github.com/google/mangle/parse"
)

// Problems are stored as Mangle facts:
//
//	computer("c1", 24, 96, 4800, 5000).   id, cpu, memory, network, cost
//	process("p1", 1, 4, 100).             unassigned
//	process("p2", 2, 8, 200, "c1").       assigned to c1
const (
	predComputer = "computer"
	predProcess  = "process"
)

// LoadFile reads a problem from a Mangle fact file.
func LoadFile(path string) (*Solution, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Load reads a problem from Mangle facts. Rules and declarations other than
// facts are rejected; processes may reference computers declared later.
func Load(r io.Reader) (*Solution, error) {
	unit, err := parse.Unit(r)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	s := &Solution{}
	byID := make(map[string]*Computer)
	assignments := make(map[*Process]string)
	seen := make(map[string]bool)

	for _, clause := range unit.Clauses {
		if len(clause.Premises) > 0 || clause.Transform != nil {
			return nil, fmt.Errorf("%s: only facts are supported", clause.Head)
		}
		atom := clause.Head
		switch atom.Predicate.Symbol {
		case predComputer:
			c, err := computerFrom(atom)
			if err != nil {
				return nil, err
			}
			if byID[c.ID] != nil {
				return nil, fmt.Errorf("computer %q is declared twice", c.ID)
			}
			byID[c.ID] = c
			s.Computers = append(s.Computers, c)
		case predProcess:
			p, computer, err := processFrom(atom)
			if err != nil {
				return nil, err
			}
			if seen[p.ID] {
				return nil, fmt.Errorf("process %q is declared twice", p.ID)
			}
			seen[p.ID] = true
			if computer != "" {
				assignments[p] = computer
			}
			s.Processes = append(s.Processes, p)
		default:
			return nil, fmt.Errorf("%s: unknown predicate %q", atom, atom.Predicate.Symbol)
		}
	}

	for _, p := range s.Processes {
		id, ok := assignments[p]
		if !ok {
			continue
		}
		c := byID[id]
		if c == nil {
			return nil, fmt.Errorf("process %q runs on the unknown computer %q", p.ID, id)
		}
		p.Computer = c
	}
	return s, nil
}

func computerFrom(atom ast.Atom) (*Computer, error) {
	if len(atom.Args) != 5 {
		return nil, fmt.Errorf("%s: computer takes 5 arguments, got %d", atom, len(atom.Args))
	}
	c := &Computer{}
	var err error
	if c.ID, err = stringArg(atom, 0); err != nil {
		return nil, err
	}
	for i, dst := range []*int64{&c.CPU, &c.Memory, &c.Network, &c.Cost} {
		if *dst, err = numberArg(atom, i+1); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func processFrom(atom ast.Atom) (*Process, string, error) {
	if n := len(atom.Args); n != 4 && n != 5 {
		return nil, "", fmt.Errorf("%s: process takes 4 or 5 arguments, got %d", atom, n)
	}
	p := &Process{}
	var err error
	if p.ID, err = stringArg(atom, 0); err != nil {
		return nil, "", err
	}
	for i, dst := range []*int64{&p.CPU, &p.Memory, &p.Network} {
		if *dst, err = numberArg(atom, i+1); err != nil {
			return nil, "", err
		}
	}
	var computer string
	if len(atom.Args) == 5 {
		if computer, err = stringArg(atom, 4); err != nil {
			return nil, "", err
		}
	}
	return p, computer, nil
}

func constantArg(atom ast.Atom, i int) (ast.Constant, error) {
	c, ok := atom.Args[i].(ast.Constant)
	if !ok {
		return ast.Constant{}, fmt.Errorf("%s: argument %d is not a constant", atom, i)
	}
	return c, nil
}

// stringArg accepts strings and names; names lose their leading slash.
func stringArg(atom ast.Atom, i int) (string, error) {
	c, err := constantArg(atom, i)
	if err != nil {
		return "", err
	}
	switch c.Type {
	case ast.StringType:
		return c.Symbol, nil
	case ast.NameType:
		return strings.TrimPrefix(c.Symbol, "/"), nil
	}
	return "", fmt.Errorf("%s: argument %d is not a string", atom, i)
}

func numberArg(atom ast.Atom, i int) (int64, error) {
	c, err := constantArg(atom, i)
	if err != nil {
		return 0, err
	}
	if c.Type != ast.NumberType {
		return 0, fmt.Errorf("%s: argument %d is not a number", atom, i)
	}
	return c.NumValue, nil
}

// Write stores a solution as Mangle facts readable by Load.
func Write(w io.Writer, s *Solution) error {
	for _, c := range s.Computers {
		atom := ast.NewAtom(predComputer, ast.String(c.ID),
			ast.Number(c.CPU), ast.Number(c.Memory), ast.Number(c.Network), ast.Number(c.Cost))
		if _, err := fmt.Fprintf(w, "%s.\n", atom); err != nil {
			return err
		}
	}
	for _, p := range s.Processes {
		args := []ast.BaseTerm{ast.String(p.ID), ast.Number(p.CPU), ast.Number(p.Memory), ast.Number(p.Network)}
		if p.Computer != nil {
			args = append(args, ast.String(p.Computer.ID))
		}
		if _, err := fmt.Fprintf(w, "%s.\n", ast.NewAtom(predProcess, args...)); err != nil {
			return err
		}
	}
	return nil
}
