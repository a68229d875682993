// Package cloudbalance is the cloud balancing example problem: assign
// processes to computers without exceeding their cpu, memory and network
// capacity, while paying for as few computers as possible.
package cloudbalance

import (
	"fmt"
	"math/rand"
)

// Computer is a problem fact.
type Computer struct {
	ID      string
	CPU     int64
	Memory  int64
	Network int64
	Cost    int64
}

func (c *Computer) String() string {
	return c.ID
}

// Process is a planning entity; Computer is its planning variable.
type Process struct {
	ID       string
	CPU      int64
	Memory   int64
	Network  int64
	Computer *Computer
}

func (p *Process) String() string {
	return p.ID
}

// IsAssigned reports whether the process runs on a computer.
func (p *Process) IsAssigned() bool {
	return p.Computer != nil
}

// Solution is one assignment of all processes.
type Solution struct {
	Computers []*Computer
	Processes []*Process
}

// Facts returns the computers followed by the processes.
func (s *Solution) Facts() []any {
	facts := make([]any, 0, len(s.Computers)+len(s.Processes))
	for _, c := range s.Computers {
		facts = append(facts, c)
	}
	for _, p := range s.Processes {
		facts = append(facts, p)
	}
	return facts
}

// Computer returns the computer with the given id, or nil.
func (s *Solution) Computer(id string) *Computer {
	for _, c := range s.Computers {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Clone copies the solution. The copy shares nothing with s.
func (s *Solution) Clone() *Solution {
	out := &Solution{
		Computers: make([]*Computer, len(s.Computers)),
		Processes: make([]*Process, len(s.Processes)),
	}
	copies := make(map[*Computer]*Computer, len(s.Computers))
	for i, c := range s.Computers {
		cc := *c
		out.Computers[i] = &cc
		copies[c] = &cc
	}
	for i, p := range s.Processes {
		pc := *p
		if p.Computer != nil {
			pc.Computer = copies[p.Computer]
		}
		out.Processes[i] = &pc
	}
	return out
}

// Shuffle assigns every process to a random computer.
func (s *Solution) Shuffle(rng *rand.Rand) {
	if len(s.Computers) == 0 {
		return
	}
	for _, p := range s.Processes {
		p.Computer = s.Computers[rng.Intn(len(s.Computers))]
	}
}

// Generate creates a random problem with every process unassigned.
func Generate(rng *rand.Rand, computers, processes int) *Solution {
	s := &Solution{}
	for i := 0; i < computers; i++ {
		cpu := int64(4 << rng.Intn(4))
		s.Computers = append(s.Computers, &Computer{
			ID:      fmt.Sprintf("c%d", i+1),
			CPU:     cpu,
			Memory:  cpu * 4,
			Network: int64(rng.Intn(10)+1) * 100,
			Cost:    cpu*100 + int64(rng.Intn(500)),
		})
	}
	for i := 0; i < processes; i++ {
		s.Processes = append(s.Processes, &Process{
			ID:      fmt.Sprintf("p%d", i+1),
			CPU:     int64(rng.Intn(4) + 1),
			Memory:  int64(rng.Intn(8) + 1),
			Network: int64(rng.Intn(5)+1) * 10,
		})
	}
	return s
}
