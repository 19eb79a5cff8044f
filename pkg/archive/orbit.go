package archive

import "fmt"

// An Orbit is an orbit number, with the naming helpers the archive layout
// uses.
type Orbit int

// Code is the zero-padded orbit tag used in filenames, e.g. "orbit03453".
func (o Orbit)Code() string {
	return fmt.Sprintf("orbit%05d", int(o))
}

// Block is the archive subdirectory the orbit lives in; orbits are grouped
// by hundreds, e.g. orbit 3453 -> "orbit03400".
func (o Orbit)Block() string {
	return fmt.Sprintf("orbit%05d", int(o)/100*100)
}
