package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/doorwatch-io/doorwatch/internal/domain"
)

// Metadata artifact layout, little-endian, written whole on every mutation
// and read whole on load:
//
//	enrolled_count int32
//	Capacity × { name [MaxNameLen]byte, id int32, enrolled uint8, template_count int32 }
//
// There is no version tag and no partial-write protection; a torn write on
// power loss loses names only, never features, and reset_database recovers.

type slotRecord struct {
	Name          [domain.MaxNameLen]byte
	ID            int32
	Enrolled      uint8
	TemplateCount int32
}

func writeMeta(path string, enrolled int, slots *[domain.Capacity]domain.FaceSlot) error {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, int32(enrolled)); err != nil {
		return err
	}

	for i := range slots {
		var rec slotRecord
		copy(rec.Name[:domain.MaxNameLen-1], slots[i].Name)
		rec.ID = int32(slots[i].ID)
		if slots[i].Enrolled {
			rec.Enrolled = 1
		}
		rec.TemplateCount = int32(slots[i].TemplateCount)
		if err := binary.Write(buf, binary.LittleEndian, &rec); err != nil {
			return err
		}
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write metadata %s: %w", path, err)
	}
	return nil
}

func readMeta(path string) (int, [domain.Capacity]domain.FaceSlot, error) {
	var slots [domain.Capacity]domain.FaceSlot

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, slots, err
	}

	r := bytes.NewReader(data)
	var enrolled int32
	if err := binary.Read(r, binary.LittleEndian, &enrolled); err != nil {
		return 0, slots, fmt.Errorf("read enrolled count: %w", err)
	}

	for i := range slots {
		var rec slotRecord
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return 0, slots, fmt.Errorf("read slot %d: %w", i, err)
		}
		slots[i] = domain.FaceSlot{
			ID:            int(rec.ID),
			Name:          cString(rec.Name[:]),
			Enrolled:      rec.Enrolled != 0,
			TemplateCount: int(rec.TemplateCount),
		}
	}

	return int(enrolled), slots, nil
}

// cString cuts a fixed-width name field at its first NUL.
func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
