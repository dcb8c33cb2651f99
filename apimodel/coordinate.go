package apimodel

import (
	"fmt"
	"strconv"
)

const (
	// PositionCount is the number of detents of a rotary switch
	PositionCount = 6
	// SwitchCount is the number of rotary switches
	SwitchCount = 3
	// CoordinateCount is the number of selectable images
	CoordinateCount = PositionCount * PositionCount * PositionCount
)

// Position of a rotary switch, 1 to 6. The zero value means unknown.
type Position int

const UnknownPosition Position = 0

func (p Position) Known() bool {
	return p >= 1 && p <= PositionCount
}

func (p Position) String() string {
	if !p.Known() {
		return "?"
	}
	return strconv.Itoa(int(p))
}

// Coordinate identifies one of the 216 images. Each digit is in [0,5].
type Coordinate struct {
	A int `json:"a"`
	B int `json:"b"`
	C int `json:"c"`
}

// CoordinateFromPositions converts switch positions (1-6) to a coordinate (0-5).
func CoordinateFromPositions(positions [SwitchCount]Position) (Coordinate, error) {
	for i, p := range positions {
		if !p.Known() {
			return Coordinate{}, fmt.Errorf("switch %d position is unknown", i+1)
		}
	}
	return Coordinate{
		A: int(positions[0]) - 1,
		B: int(positions[1]) - 1,
		C: int(positions[2]) - 1,
	}, nil
}

// CoordinateAt returns the coordinate at the given index of the lexicographic
// enumeration (first digit major). The index wraps modulo CoordinateCount.
func CoordinateAt(index int) Coordinate {
	index %= CoordinateCount
	if index < 0 {
		index += CoordinateCount
	}
	return Coordinate{
		A: index / (PositionCount * PositionCount),
		B: (index / PositionCount) % PositionCount,
		C: index % PositionCount,
	}
}

func (c Coordinate) Valid() bool {
	return validDigit(c.A) && validDigit(c.B) && validDigit(c.C)
}

func validDigit(d int) bool {
	return d >= 0 && d < PositionCount
}

// Index returns the position of the coordinate in the lexicographic enumeration.
func (c Coordinate) Index() int {
	return c.A*PositionCount*PositionCount + c.B*PositionCount + c.C
}

// Next returns the following coordinate, wrapping from 5-5-5 to 0-0-0.
func (c Coordinate) Next() Coordinate {
	return CoordinateAt(c.Index() + 1)
}

// Digits returns the coordinate as an array, indexed by switch.
func (c Coordinate) Digits() [SwitchCount]int {
	return [SwitchCount]int{c.A, c.B, c.C}
}

// Positions returns the switch positions (1-6) selecting this coordinate.
func (c Coordinate) Positions() [SwitchCount]Position {
	return [SwitchCount]Position{Position(c.A + 1), Position(c.B + 1), Position(c.C + 1)}
}

// Stem is the dash-joined image name, e.g. "2-1-5".
func (c Coordinate) Stem() string {
	return strconv.Itoa(c.A) + "-" + strconv.Itoa(c.B) + "-" + strconv.Itoa(c.C)
}

func (c Coordinate) Filename() string {
	return c.Stem() + ".jpeg"
}

func (c Coordinate) String() string {
	return "(" + strconv.Itoa(c.A) + "," + strconv.Itoa(c.B) + "," + strconv.Itoa(c.C) + ")"
}
