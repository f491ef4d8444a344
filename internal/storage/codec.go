package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/annel0/voxel-remesher/internal/mesher"
	"github.com/annel0/voxel-remesher/internal/vec"
	"google.golang.org/protobuf/encoding/protowire"
)

// ErrCorrupt возвращается, если сохранённую запись не удалось разобрать
var ErrCorrupt = errors.New("повреждённая запись сетки")

// MeshRecord - построенная сетка чанка вместе с ревизией, с которой она снята
type MeshRecord struct {
	Coords   vec.Vec3
	Revision uint64
	Quads    []mesher.Quad
	BuiltAt  time.Time
}

// Номера полей записи
const (
	fieldCoords   protowire.Number = 1 // packed sint64 x,y,z
	fieldRevision protowire.Number = 2 // varint
	fieldCorners  protowire.Number = 3 // packed sint64, 12 чисел на квад
	fieldBuiltAt  protowire.Number = 4 // unix nanos
)

const intsPerQuad = 12

// encodeRecord сериализует запись в protobuf wire-формат без сгенерированного кода
func encodeRecord(rec *MeshRecord) []byte {
	buf := make([]byte, 0, 32+len(rec.Quads)*intsPerQuad*2)

	var packed []byte
	packed = appendVec(packed, rec.Coords)
	buf = protowire.AppendTag(buf, fieldCoords, protowire.BytesType)
	buf = protowire.AppendBytes(buf, packed)

	buf = protowire.AppendTag(buf, fieldRevision, protowire.VarintType)
	buf = protowire.AppendVarint(buf, rec.Revision)

	if len(rec.Quads) > 0 {
		packed = packed[:0]
		for _, q := range rec.Quads {
			for _, c := range q.Corners() {
				packed = appendVec(packed, c)
			}
		}
		buf = protowire.AppendTag(buf, fieldCorners, protowire.BytesType)
		buf = protowire.AppendBytes(buf, packed)
	}

	if !rec.BuiltAt.IsZero() {
		buf = protowire.AppendTag(buf, fieldBuiltAt, protowire.VarintType)
		buf = protowire.AppendVarint(buf, protowire.EncodeZigZag(rec.BuiltAt.UnixNano()))
	}

	return buf
}

func appendVec(b []byte, v vec.Vec3) []byte {
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(v.X)))
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(v.Y)))
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(v.Z)))
	return b
}

// decodeRecord разбирает запись; неизвестные поля пропускаются
func decodeRecord(b []byte) (*MeshRecord, error) {
	rec := &MeshRecord{}

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: тег: %v", ErrCorrupt, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldCoords && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: координаты: %v", ErrCorrupt, protowire.ParseError(n))
			}
			ints, err := consumePacked(v)
			if err != nil {
				return nil, err
			}
			if len(ints) != 3 {
				return nil, fmt.Errorf("%w: ожидалось 3 координаты, получено %d", ErrCorrupt, len(ints))
			}
			rec.Coords = vec.Vec3{X: ints[0], Y: ints[1], Z: ints[2]}
			b = b[n:]

		case num == fieldRevision && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: ревизия: %v", ErrCorrupt, protowire.ParseError(n))
			}
			rec.Revision = v
			b = b[n:]

		case num == fieldCorners && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: квады: %v", ErrCorrupt, protowire.ParseError(n))
			}
			ints, err := consumePacked(v)
			if err != nil {
				return nil, err
			}
			if len(ints)%intsPerQuad != 0 {
				return nil, fmt.Errorf("%w: %d чисел не делится на %d", ErrCorrupt, len(ints), intsPerQuad)
			}
			rec.Quads = make([]mesher.Quad, 0, len(ints)/intsPerQuad)
			for i := 0; i < len(ints); i += intsPerQuad {
				rec.Quads = append(rec.Quads, mesher.Quad{
					A: vec.Vec3{X: ints[i], Y: ints[i+1], Z: ints[i+2]},
					B: vec.Vec3{X: ints[i+3], Y: ints[i+4], Z: ints[i+5]},
					C: vec.Vec3{X: ints[i+6], Y: ints[i+7], Z: ints[i+8]},
					D: vec.Vec3{X: ints[i+9], Y: ints[i+10], Z: ints[i+11]},
				})
			}
			b = b[n:]

		case num == fieldBuiltAt && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: время: %v", ErrCorrupt, protowire.ParseError(n))
			}
			rec.BuiltAt = time.Unix(0, protowire.DecodeZigZag(v)).UTC()
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: поле %d: %v", ErrCorrupt, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	return rec, nil
}

func consumePacked(b []byte) ([]int, error) {
	var out []int
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: packed: %v", ErrCorrupt, protowire.ParseError(n))
		}
		out = append(out, int(protowire.DecodeZigZag(v)))
		b = b[n:]
	}
	return out, nil
}
