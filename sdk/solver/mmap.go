package solver

import (
	"encoding/binary"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mappedFile keeps a memory-mapped region alive for the lifetime of the
// borrowed entry stores built on top of it.
type mappedFile struct {
	data []byte
}

func mmapFile(path string) (*mappedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("solver: mmap %s: %w", path, err)
	}
	return &mappedFile{data: data}, nil
}

func (m *mappedFile) Close() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	return err
}

// LoadBorrowedRegrets memory-maps a regrets dump read-only and returns
// per-round RegretEntries whose backing slices alias the mapping directly
// (no copy). Writes to the returned stores are rejected.
func LoadBorrowedRegrets(path string, numPerBucket, total []int) ([]*RegretEntries, *mappedFile, error) {
	m, err := mmapFile(path)
	if err != nil {
		return nil, nil, err
	}
	out := make([]*RegretEntries, len(numPerBucket))
	offset := 0
	for r := range out {
		var tag EntryType
		tagBytes := m.data[offset : offset+4]
		tag = EntryType(binary.LittleEndian.Uint32(tagBytes))
		offset += 4
		if tag != TypeInt32 {
			m.Close()
			return nil, nil, fmt.Errorf("solver: regret dump round %d has type %s, expected %s", r, tag, TypeInt32)
		}
		n := total[r]
		byteLen := n * 4
		slice := unsafe.Slice((*int32)(unsafe.Pointer(&m.data[offset])), n)
		offset += byteLen
		out[r] = &RegretEntries{numPerBucket: numPerBucket[r], total: n, data: slice, borrowed: true}
	}
	return out, m, nil
}

// LoadBorrowedAvgStrategy is the average-strategy analogue of
// LoadBorrowedRegrets; widths must match what the dump was written with.
func LoadBorrowedAvgStrategy(path string, widths []EntryType, numPerBucket, total []int) ([]AvgEntryStore, *mappedFile, error) {
	m, err := mmapFile(path)
	if err != nil {
		return nil, nil, err
	}
	out := make([]AvgEntryStore, len(widths))
	offset := 0
	for r, width := range widths {
		tag := EntryType(binary.LittleEndian.Uint32(m.data[offset : offset+4]))
		offset += 4
		if tag != width {
			m.Close()
			return nil, nil, fmt.Errorf("solver: avg-strategy dump round %d has type %s, expected %s", r, tag, width)
		}
		n := total[r]
		var store AvgEntryStore
		var byteLen int
		switch width {
		case TypeUint8:
			slice := unsafe.Slice((*uint8)(unsafe.Pointer(&m.data[offset])), n)
			store = &AvgEntries[uint8]{numPerBucket: numPerBucket[r], total: n, data: slice, borrowed: true}
			byteLen = n
		case TypeUint32:
			slice := unsafe.Slice((*uint32)(unsafe.Pointer(&m.data[offset])), n)
			store = &AvgEntries[uint32]{numPerBucket: numPerBucket[r], total: n, data: slice, borrowed: true}
			byteLen = n * 4
		case TypeUint64:
			slice := unsafe.Slice((*uint64)(unsafe.Pointer(&m.data[offset])), n)
			store = &AvgEntries[uint64]{numPerBucket: numPerBucket[r], total: n, data: slice, borrowed: true}
			byteLen = n * 8
		default:
			m.Close()
			return nil, nil, fmt.Errorf("solver: unsupported borrowed width %s", width)
		}
		offset += byteLen
		out[r] = store
	}
	return out, m, nil
}
