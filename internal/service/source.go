package service

import "fmt"

// DataSource tags where the displayed collection came from.
type DataSource int

const (
	SourceNone DataSource = iota
	SourceSample
	SourceCache
	SourceNetwork
)

func (d DataSource) String() string {
	switch d {
	case SourceNone:
		return "none"
	case SourceSample:
		return "sample"
	case SourceCache:
		return "cache"
	case SourceNetwork:
		return "network"
	default:
		return fmt.Sprintf("DataSource(%d)", int(d))
	}
}

// MarshalText renders the tag as its name in JSON.
func (d DataSource) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
