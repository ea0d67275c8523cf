package geometry

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/stripefs/stripefs/internal/subvol"
)

// Keys is the namespaced set of geometry xattr names for one translator
// instance (spec §6.2: namespace trusted.<translator-instance-name>.*).
type Keys struct {
	Size     string
	Count    string
	Index    string
	Coalesce string
}

// NewKeys builds the Keys for the given translator instance name.
func NewKeys(instanceName string) Keys {
	ns := fmt.Sprintf("trusted.%s.", instanceName)
	return Keys{
		Size:     ns + "stripe-size",
		Count:    ns + "stripe-count",
		Index:    ns + "stripe-index",
		Coalesce: ns + "stripe-coalesce",
	}
}

func encodeInt64(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

func decodeInt64(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("expected 8 bytes, got %d", len(b))
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

func encodeInt32(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func decodeInt32(b []byte) (int32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("expected 4 bytes, got %d", len(b))
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

// WriteXattrs writes all four geometry xattrs for stripe-index idx of d to
// sv at path (spec §4.1 creation protocol: "each carrying its own
// stripe-index=i xattr").
func WriteXattrs(ctx context.Context, sv subvol.Subvolume, keys Keys, path string, d *Descriptor, idx int32) error {
	coalesce := int32(0)
	if d.Coalesce {
		coalesce = 1
	}
	writes := []struct {
		key   string
		value []byte
	}{
		{keys.Size, encodeInt64(d.StripeSize)},
		{keys.Count, encodeInt32(d.StripeCount)},
		{keys.Index, encodeInt32(idx)},
		{keys.Coalesce, encodeInt32(coalesce)},
	}
	for _, w := range writes {
		if err := sv.Setxattr(ctx, path, w.key, w.value); err != nil {
			return fmt.Errorf("setxattr %s: %w", w.key, err)
		}
	}
	return nil
}

// readXattrs reads and decodes the geometry xattrs for path on sv. present
// is false (no error) when any of the three required xattrs cannot be read,
// signaling the discovery protocol to flag a self-heal instead of failing
// (spec §4.1 step 2).
type xattrReply struct {
	present  bool
	size     int64
	count    int32
	index    int32
	coalesce bool
}

func readXattrs(ctx context.Context, sv subvol.Subvolume, keys Keys, path string) (xattrReply, error) {
	sizeRaw, err := sv.Getxattr(ctx, path, keys.Size)
	if err != nil {
		return xattrReply{present: false}, nil
	}
	countRaw, err := sv.Getxattr(ctx, path, keys.Count)
	if err != nil {
		return xattrReply{present: false}, nil
	}
	indexRaw, err := sv.Getxattr(ctx, path, keys.Index)
	if err != nil {
		return xattrReply{present: false}, nil
	}

	size, err := decodeInt64(sizeRaw)
	if err != nil {
		return xattrReply{}, fmt.Errorf("decode stripe-size: %w", err)
	}
	count, err := decodeInt32(countRaw)
	if err != nil {
		return xattrReply{}, fmt.Errorf("decode stripe-count: %w", err)
	}
	index, err := decodeInt32(indexRaw)
	if err != nil {
		return xattrReply{}, fmt.Errorf("decode stripe-index: %w", err)
	}

	coalesce := false
	if coalesceRaw, err := sv.Getxattr(ctx, path, keys.Coalesce); err == nil {
		v, err := decodeInt32(coalesceRaw)
		if err != nil {
			return xattrReply{}, fmt.Errorf("decode stripe-coalesce: %w", err)
		}
		coalesce = v != 0
	}

	return xattrReply{present: true, size: size, count: count, index: index, coalesce: coalesce}, nil
}
