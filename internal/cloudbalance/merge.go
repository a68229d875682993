package cloudbalance

// Delta lists the fact events that turned a solution into another one.
// Retracted holds processes before computers, Inserted computers before
// processes.
type Delta struct {
	Inserted  []any
	Updated   []any
	Retracted []any
}

// Empty reports whether the merge changed nothing.
func (d Delta) Empty() bool {
	return len(d.Inserted)+len(d.Updated)+len(d.Retracted) == 0
}

// Merge makes s equal to next, matching facts by id. Facts that exist in
// both keep their identity and are changed in place, so a session holding s
// only needs the returned events.
func (s *Solution) Merge(next *Solution) Delta {
	var d Delta

	live := make(map[string]*Computer, len(s.Computers))
	for _, c := range s.Computers {
		live[c.ID] = c
	}
	keep := make(map[string]bool, len(next.Computers))
	computers := make([]*Computer, 0, len(next.Computers))
	for _, nc := range next.Computers {
		keep[nc.ID] = true
		c, ok := live[nc.ID]
		switch {
		case !ok:
			c = &Computer{}
			*c = *nc
			live[c.ID] = c
			d.Inserted = append(d.Inserted, c)
		case *c != *nc:
			*c = *nc
			d.Updated = append(d.Updated, c)
		}
		computers = append(computers, c)
	}
	var goneComputers []any
	for _, c := range s.Computers {
		if !keep[c.ID] {
			goneComputers = append(goneComputers, c)
		}
	}

	current := make(map[string]*Process, len(s.Processes))
	for _, p := range s.Processes {
		current[p.ID] = p
	}
	keep = make(map[string]bool, len(next.Processes))
	processes := make([]*Process, 0, len(next.Processes))
	var added []any
	for _, np := range next.Processes {
		keep[np.ID] = true
		want := *np
		if np.Computer != nil {
			want.Computer = live[np.Computer.ID]
		}
		p, ok := current[np.ID]
		switch {
		case !ok:
			p = &want
			added = append(added, p)
		case *p != want:
			*p = want
			d.Updated = append(d.Updated, p)
		}
		processes = append(processes, p)
	}
	for _, p := range s.Processes {
		if !keep[p.ID] {
			d.Retracted = append(d.Retracted, p)
		}
	}

	d.Retracted = append(d.Retracted, goneComputers...)
	d.Inserted = append(d.Inserted, added...)
	s.Computers = computers
	s.Processes = processes
	return d
}
