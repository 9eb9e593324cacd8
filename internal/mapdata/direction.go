package mapdata

// ExitDirection indexes the six exits of a room.
// Unknown and None are not real exits and never index Room.Exits.
type ExitDirection uint8

const (
	North ExitDirection = iota
	South
	East
	West
	Up
	Down
	Unknown
	None
)

// NumExits is the number of real exits every room carries.
const NumExits = 6

// AllExits lists the six real directions in index order.
var AllExits = [NumExits]ExitDirection{North, South, East, West, Up, Down}

var directionNames = [...]string{"north", "south", "east", "west", "up", "down", "unknown", "none"}

func (d ExitDirection) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return "invalid"
}

// IsNESWUD reports whether d is one of the six real exits.
func (d ExitDirection) IsNESWUD() bool { return d < Unknown }

// IsNESW reports whether d is a horizontal direction.
func (d ExitDirection) IsNESW() bool { return d <= West }

// Opposite returns the reverse of a real direction.
// Unknown and None are their own opposites.
func (d ExitDirection) Opposite() ExitDirection {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	case Up:
		return Down
	case Down:
		return Up
	default:
		return d
	}
}

// Offset returns the unit grid vector of d; non-real directions map to the origin.
func (d ExitDirection) Offset() Coordinate {
	switch d {
	case North:
		return Coordinate{Y: -1}
	case South:
		return Coordinate{Y: 1}
	case East:
		return Coordinate{X: 1}
	case West:
		return Coordinate{X: -1}
	case Up:
		return Coordinate{Z: 1}
	case Down:
		return Coordinate{Z: -1}
	default:
		return Coordinate{}
	}
}

// Char returns the single-letter abbreviation of d.
func (d ExitDirection) Char() byte {
	return "nsewud?-"[min(int(d), int(None))]
}

// ParseDirection maps a direction word or its abbreviation to an ExitDirection.
//
// Postcondition: Returns (Unknown, false) for unrecognised input.
func ParseDirection(s string) (ExitDirection, bool) {
	switch s {
	case "n", "north":
		return North, true
	case "s", "south":
		return South, true
	case "e", "east":
		return East, true
	case "w", "west":
		return West, true
	case "u", "up":
		return Up, true
	case "d", "down":
		return Down, true
	}
	return Unknown, false
}
