package boltstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/MUME/MMapper-sub000/internal/flags"
	"github.com/MUME/MMapper-sub000/internal/mapdata"
)

// roomFormat is the version byte leading every encoded room.
const roomFormat = 1

var errBadRecord = errors.New("malformed room record")

// roomKey is the big-endian id, so that cursor order is id order.
func roomKey(id mapdata.RoomID) []byte {
	return binary.BigEndian.AppendUint32(nil, uint32(id))
}

type roomHeader struct {
	ServerID  uint32
	Terrain   uint8
	Light     uint8
	Sundeath  uint8
	Portable  uint8
	Ridable   uint8
	Align     uint8
	UpToDate  uint8
	MobFlags  uint32
	LoadFlags uint32
	X, Y, Z   int32
}

type exitHeader struct {
	ExitFlags uint32
	DoorFlags uint32
	Targets   uint32
}

func encodeRoom(r *mapdata.Room) []byte {
	var buf bytes.Buffer
	buf.WriteByte(roomFormat)
	h := roomHeader{
		ServerID:  uint32(r.ServerID),
		Terrain:   uint8(r.Terrain),
		Light:     uint8(r.Light),
		Sundeath:  uint8(r.Sundeath),
		Portable:  uint8(r.Portable),
		Ridable:   uint8(r.Ridable),
		Align:     uint8(r.Align),
		MobFlags:  r.MobFlags.Uint32(),
		LoadFlags: r.LoadFlags.Uint32(),
		X:         r.Position.X,
		Y:         r.Position.Y,
		Z:         r.Position.Z,
	}
	if r.UpToDate {
		h.UpToDate = 1
	}
	// Writes to a bytes.Buffer cannot fail.
	_ = binary.Write(&buf, binary.LittleEndian, h)
	for _, s := range []string{r.Name, r.StaticDesc, r.DynamicDesc, r.Note} {
		writeString(&buf, s)
	}
	for _, d := range mapdata.AllExits {
		e := r.Exit(d)
		_ = binary.Write(&buf, binary.LittleEndian, exitHeader{
			ExitFlags: e.ExitFlags.Uint32(),
			DoorFlags: e.DoorFlags.Uint32(),
			Targets:   uint32(len(e.Outgoing())),
		})
		writeString(&buf, e.DoorName)
		for _, t := range e.Outgoing() {
			_ = binary.Write(&buf, binary.LittleEndian, uint32(t))
		}
	}
	return buf.Bytes()
}

func decodeRoom(id mapdata.RoomID, data []byte) (*mapdata.Room, error) {
	rd := bytes.NewReader(data)
	version, err := rd.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("room %d: %w", id, errBadRecord)
	}
	if version != roomFormat {
		return nil, fmt.Errorf("room %d: unsupported record version %d", id, version)
	}

	var h roomHeader
	if err := binary.Read(rd, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("room %d header: %w", id, errBadRecord)
	}
	r := mapdata.NewRoom(mapdata.Coordinate{X: h.X, Y: h.Y, Z: h.Z})
	r.ID = id
	r.ServerID = mapdata.ServerRoomID(h.ServerID)
	r.Terrain = mapdata.TerrainType(h.Terrain)
	r.Light = mapdata.LightType(h.Light)
	r.Sundeath = mapdata.SundeathType(h.Sundeath)
	r.Portable = mapdata.PortableType(h.Portable)
	r.Ridable = mapdata.RidableType(h.Ridable)
	r.Align = mapdata.AlignType(h.Align)
	r.MobFlags = flags.FromUint32[mapdata.MobFlag](h.MobFlags)
	r.LoadFlags = flags.FromUint32[mapdata.LoadFlag](h.LoadFlags)
	r.UpToDate = h.UpToDate != 0

	for _, field := range []*string{&r.Name, &r.StaticDesc, &r.DynamicDesc, &r.Note} {
		if *field, err = readString(rd); err != nil {
			return nil, fmt.Errorf("room %d text: %w", id, err)
		}
	}
	for _, d := range mapdata.AllExits {
		var eh exitHeader
		if err := binary.Read(rd, binary.LittleEndian, &eh); err != nil {
			return nil, fmt.Errorf("room %d exit %s: %w", id, d, errBadRecord)
		}
		e := r.Exit(d)
		if e.DoorName, err = readString(rd); err != nil {
			return nil, fmt.Errorf("room %d exit %s: %w", id, d, err)
		}
		for range eh.Targets {
			var t uint32
			if err := binary.Read(rd, binary.LittleEndian, &t); err != nil {
				return nil, fmt.Errorf("room %d exit %s: %w", id, d, errBadRecord)
			}
			e.AddOut(mapdata.RoomID(t))
		}
		e.ExitFlags = flags.FromUint32[mapdata.ExitFlag](eh.ExitFlags)
		e.DoorFlags = flags.FromUint32[mapdata.DoorFlag](eh.DoorFlags)
	}
	return r, nil
}

func writeString(buf *bytes.Buffer, s string) {
	buf.Write(binary.AppendUvarint(nil, uint64(len(s))))
	buf.WriteString(s)
}

func readString(rd *bytes.Reader) (string, error) {
	n, err := binary.ReadUvarint(rd)
	if err != nil {
		return "", errBadRecord
	}
	if n > uint64(rd.Len()) {
		return "", errBadRecord
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(rd, b); err != nil {
		return "", errBadRecord
	}
	return string(b), nil
}
