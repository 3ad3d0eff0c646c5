package domain

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"tandem/utils"
)

// バイトオーダー: リトルエンディアン
var byteOrder = binary.LittleEndian

const (
	ProtocolVersion   = 1
	HeaderSize        = 25
	PayloadHeaderSize = 2
	SamplePayloadSize = 49
	GoalPayloadSize   = 24
)

// Header はメッセージヘッダー (25バイト)
//
//	version  u8       (1)
//	sender   [16]byte (16) - 送信者の AgentID
//	seq      u16      (2)
//	length   u16      (2)  - ペイロードヘッダーを含むペイロード長
//	tick     u32      (4)  - 送信時の tick (下位32bit、参考値)
type Header struct {
	Version uint8
	Sender  AgentID
	Seq     uint16
	Length  uint16
	Tick    uint32
}

// DataType はメッセージの種別
type DataType uint8

const (
	DataTypeReport DataType = 1
)

// PayloadHeader はペイロードヘッダー (2バイト)
//
//	datatype  u8 (1)
//	subtype   u8 (1) - DataTypeReport のときは ReportKind
type PayloadHeader struct {
	DataType DataType
	SubType  uint8
}

var (
	ErrInvalidHeaderSize  = errors.New("invalid header size")
	ErrInvalidPayloadSize = errors.New("invalid payload size")
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
	ErrUnknownDataType    = errors.New("unknown data type")
	ErrUnknownReportKind  = errors.New("unknown report kind")
	ErrNonFiniteValue     = errors.New("non-finite value in payload")
)

// ParseHeader はバイト列からHeaderをパースする
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, ErrInvalidHeaderSize
	}

	var sender AgentID
	copy(sender[:], data[1:17])

	return &Header{
		Version: data[0],
		Sender:  sender,
		Seq:     byteOrder.Uint16(data[17:19]),
		Length:  byteOrder.Uint16(data[19:21]),
		Tick:    byteOrder.Uint32(data[21:25]),
	}, nil
}

// Encode はHeaderをバイト列にエンコードする
func (h *Header) Encode() []byte {
	data := make([]byte, HeaderSize)
	data[0] = h.Version
	copy(data[1:17], h.Sender[:])
	byteOrder.PutUint16(data[17:19], h.Seq)
	byteOrder.PutUint16(data[19:21], h.Length)
	byteOrder.PutUint32(data[21:25], h.Tick)
	return data
}

// ParsePayloadHeader はバイト列からPayloadHeaderをパースする
func ParsePayloadHeader(data []byte) (*PayloadHeader, error) {
	if len(data) < PayloadHeaderSize {
		return nil, ErrInvalidPayloadSize
	}

	return &PayloadHeader{
		DataType: DataType(data[0]),
		SubType:  data[1],
	}, nil
}

// Encode はPayloadHeaderをバイト列にエンコードする
func (p *PayloadHeader) Encode() []byte {
	data := make([]byte, PayloadHeaderSize)
	data[0] = byte(p.DataType)
	data[1] = p.SubType
	return data
}

const sampleFlagHasHeading = 0x01

// ParseSample はバイト列からSampleをパースする (49バイト)
//
//	x, y     f64 (16) - 位置
//	energy   f64 (8)
//	heading  f64 (8)
//	velocity f64 (8)
//	flags    u8  (1)  - bit0: heading あり
//	tick     i64 (8)
func ParseSample(data []byte) (*Sample, error) {
	if len(data) < SamplePayloadSize {
		return nil, ErrInvalidPayloadSize
	}

	s := &Sample{
		Energy:     readFloat64(data[16:24]),
		Heading:    readFloat64(data[24:32]),
		Velocity:   readFloat64(data[32:40]),
		HasHeading: data[40]&sampleFlagHasHeading != 0,
		Tick:       int64(byteOrder.Uint64(data[41:49])),
	}
	s.Position[0] = readFloat64(data[0:8])
	s.Position[1] = readFloat64(data[8:16])
	if !utils.FinitePoint(s.Position) || !utils.IsFinite(s.Energy) ||
		!utils.IsFinite(s.Heading) || !utils.IsFinite(s.Velocity) {
		return nil, ErrNonFiniteValue
	}
	return s, nil
}

// EncodeSample はSampleをバイト列にエンコードする
func EncodeSample(s Sample) []byte {
	data := make([]byte, SamplePayloadSize)
	writeFloat64(data[0:8], s.Position[0])
	writeFloat64(data[8:16], s.Position[1])
	writeFloat64(data[16:24], s.Energy)
	writeFloat64(data[24:32], s.Heading)
	writeFloat64(data[32:40], s.Velocity)
	if s.HasHeading {
		data[40] |= sampleFlagHasHeading
	}
	byteOrder.PutUint64(data[41:49], uint64(s.Tick))
	return data
}

// ParseGoal はバイト列からGoalをパースする (24バイト)
//
//	x, y f64 (16)
//	tick i64 (8)
func ParseGoal(data []byte) (*Goal, error) {
	if len(data) < GoalPayloadSize {
		return nil, ErrInvalidPayloadSize
	}

	g := &Goal{Tick: int64(byteOrder.Uint64(data[16:24]))}
	g.Point[0] = readFloat64(data[0:8])
	g.Point[1] = readFloat64(data[8:16])
	if !utils.FinitePoint(g.Point) {
		return nil, ErrNonFiniteValue
	}
	return g, nil
}

// EncodeGoal はGoalをバイト列にエンコードする
func EncodeGoal(g Goal) []byte {
	data := make([]byte, GoalPayloadSize)
	writeFloat64(data[0:8], g.Point[0])
	writeFloat64(data[8:16], g.Point[1])
	byteOrder.PutUint64(data[16:24], uint64(g.Tick))
	return data
}

// EncodeReport はヘッダー付きの Report メッセージをエンコードする
func EncodeReport(sender AgentID, seq uint16, r Report) ([]byte, error) {
	var payload []byte
	switch r.Kind {
	case ReportSelfPosition, ReportOpponentPosition:
		payload = EncodeSample(r.Sample)
	case ReportGoal:
		payload = EncodeGoal(r.Goal)
	default:
		return nil, fmt.Errorf("encode report kind %d: %w", r.Kind, ErrUnknownReportKind)
	}

	header := Header{
		Version: ProtocolVersion,
		Sender:  sender,
		Seq:     seq,
		Length:  uint16(PayloadHeaderSize + len(payload)),
		Tick:    uint32(r.Tick() & 0xFFFFFFFF),
	}
	payloadHeader := PayloadHeader{
		DataType: DataTypeReport,
		SubType:  uint8(r.Kind),
	}

	data := make([]byte, 0, HeaderSize+int(header.Length))
	data = append(data, header.Encode()...)
	data = append(data, payloadHeader.Encode()...)
	data = append(data, payload...)
	return data, nil
}

// DecodeReport はメッセージ全体をパースしてヘッダーと Report を返す
func DecodeReport(data []byte) (*Header, Report, error) {
	header, err := ParseHeader(data)
	if err != nil {
		return nil, Report{}, err
	}
	if header.Version != ProtocolVersion {
		return nil, Report{}, fmt.Errorf("version %d: %w", header.Version, ErrUnsupportedVersion)
	}
	if len(data) < HeaderSize+int(header.Length) {
		return nil, Report{}, ErrInvalidPayloadSize
	}

	payloadData := data[HeaderSize : HeaderSize+int(header.Length)]
	payloadHeader, err := ParsePayloadHeader(payloadData)
	if err != nil {
		return nil, Report{}, err
	}
	if payloadHeader.DataType != DataTypeReport {
		return nil, Report{}, fmt.Errorf("data type %d: %w", payloadHeader.DataType, ErrUnknownDataType)
	}

	payload := payloadData[PayloadHeaderSize:]
	kind := ReportKind(payloadHeader.SubType)
	switch kind {
	case ReportSelfPosition, ReportOpponentPosition:
		s, err := ParseSample(payload)
		if err != nil {
			return nil, Report{}, err
		}
		return header, Report{Kind: kind, Sample: *s}, nil
	case ReportGoal:
		g, err := ParseGoal(payload)
		if err != nil {
			return nil, Report{}, err
		}
		return header, GoalReport(*g), nil
	default:
		return nil, Report{}, fmt.Errorf("report kind %d: %w", kind, ErrUnknownReportKind)
	}
}

func readFloat64(b []byte) float64 {
	return math.Float64frombits(byteOrder.Uint64(b))
}

func writeFloat64(b []byte, v float64) {
	byteOrder.PutUint64(b, math.Float64bits(v))
}
