package world

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidRegionID is returned by ParseRegionID for malformed ids.
var ErrInvalidRegionID = errors.New("invalid region id")

// MakeRegionID builds the canonical region id "<shardID>:<cx>,<cz>".
func MakeRegionID(shardID string, c Cell) string {
	return shardID + ":" + strconv.Itoa(c.X) + "," + strconv.Itoa(c.Z)
}

// ParseRegionID inverts MakeRegionID. Shard ids may themselves contain ':'.
func ParseRegionID(id string) (string, Cell, error) {
	sep := strings.LastIndexByte(id, ':')
	if sep <= 0 {
		return "", Cell{}, fmt.Errorf("%w: %q", ErrInvalidRegionID, id)
	}

	shardID, coords := id[:sep], id[sep+1:]
	xs, zs, ok := strings.Cut(coords, ",")
	if !ok {
		return "", Cell{}, fmt.Errorf("%w: %q", ErrInvalidRegionID, id)
	}

	cx, err := strconv.Atoi(xs)
	if err != nil {
		return "", Cell{}, fmt.Errorf("%w: %q: cx: %v", ErrInvalidRegionID, id, err)
	}
	cz, err := strconv.Atoi(zs)
	if err != nil {
		return "", Cell{}, fmt.Errorf("%w: %q: cz: %v", ErrInvalidRegionID, id, err)
	}

	return shardID, Cell{X: cx, Z: cz}, nil
}
