// Package history owns the retained usage samples for every monitored
// resource. It enforces the retention window, answers span and datapoint
// queries, and persists state across runs through a pluggable backend.
package history

import "fmt"

// Resource identifies the kind of usage a series tracks.
type Resource int

const (
	Memory Resource = iota
	Disk
)

func (r Resource) String() string {
	switch r {
	case Memory:
		return "memory"
	case Disk:
		return "disk"
	}
	return fmt.Sprintf("resource(%d)", int(r))
}

// DiskKind selects one of the two per-mountpoint series.
type DiskKind int

const (
	Space DiskKind = iota
	Inode
)

func (k DiskKind) String() string {
	switch k {
	case Space:
		return "space"
	case Inode:
		return "inode"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseDiskKind converts the wire/CLI spelling of a disk series kind.
func ParseDiskKind(s string) (DiskKind, error) {
	switch s {
	case "space":
		return Space, nil
	case "inode":
		return Inode, nil
	}
	return 0, fmt.Errorf("%w: unknown disk series kind %q", ErrInvalidInput, s)
}

// Key names one series: the global memory series, or a (mountpoint, kind)
// disk series. Construct keys with MemoryKey and DiskKey; a zero Key is
// the memory key.
type Key struct {
	Resource Resource
	Mount    string
	Kind     DiskKind
}

// MemoryKey returns the key of the global memory usage series.
func MemoryKey() Key {
	return Key{Resource: Memory}
}

// DiskKey returns the key of one disk series for a mountpoint.
func DiskKey(mount string, kind DiskKind) Key {
	return Key{Resource: Disk, Mount: mount, Kind: kind}
}

func (k Key) String() string {
	if k.Resource == Disk {
		return fmt.Sprintf("disk %s %s", k.Kind, k.Mount)
	}
	return k.Resource.String()
}
