package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrShortBuffer is returned when a decode reads past the end of the body.
var ErrShortBuffer = errors.New("protocol: short buffer")

// ErrUnknownTag is returned when a decoded byte does not map to any Tag.
var ErrUnknownTag = errors.New("protocol: unknown tag")

// byteWriter accumulates a self-describing binary encoding of a Message.
// Every variable-length field (strings, byte slices, nested sequences) is
// prefixed with a uint64 little-endian length so the decoder never has to
// guess a field's extent — this is what lets the format round-trip
// framebuffers and audio batches losslessly.
type byteWriter struct {
	buf []byte
}

func (w *byteWriter) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *byteWriter) bool(v bool)  { if v { w.u8(1) } else { w.u8(0) } }

func (w *byteWriter) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *byteWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *byteWriter) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *byteWriter) i16(v int16)     { w.u16(uint16(v)) }
func (w *byteWriter) f32(v float32)   { w.u32(math.Float32bits(v)) }
func (w *byteWriter) f64(v float64)   { w.u64(math.Float64bits(v)) }

func (w *byteWriter) bytes(b []byte) {
	w.u64(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *byteWriter) str(s string) { w.bytes([]byte(s)) }

func (w *byteWriter) strs(ss []string) {
	w.u64(uint64(len(ss)))
	for _, s := range ss {
		w.str(s)
	}
}

func (w *byteWriter) i16s(vs []int16) {
	w.u64(uint64(len(vs)))
	for _, v := range vs {
		w.i16(v)
	}
}

// byteReader is the decode-side counterpart of byteWriter. Every read is
// bounds-checked; a truncated or malformed body surfaces ErrShortBuffer
// instead of panicking, so a corrupt frame is a diagnosable error rather
// than a crash.
type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return ErrShortBuffer
	}
	return nil
}

func (r *byteReader) u8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *byteReader) boolean() (bool, error) {
	v, err := r.u8()
	return v != 0, err
}

func (r *byteReader) u16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *byteReader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *byteReader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *byteReader) i16() (int16, error) {
	v, err := r.u16()
	return int16(v), err
}

func (r *byteReader) f32() (float32, error) {
	v, err := r.u32()
	return math.Float32frombits(v), err
}

func (r *byteReader) f64() (float64, error) {
	v, err := r.u64()
	return math.Float64frombits(v), err
}

// lengthCap bounds a single decoded length prefix so a corrupt stream
// cannot force a multi-gigabyte allocation before the fatal error is
// reported to the caller.
const lengthCap = 64 << 20

func (r *byteReader) bytes() ([]byte, error) {
	n, err := r.u64()
	if err != nil {
		return nil, err
	}
	if n > lengthCap {
		return nil, fmt.Errorf("protocol: field length %d exceeds cap %d: %w", n, lengthCap, ErrOversize)
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	v := make([]byte, n)
	copy(v, r.buf[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return v, nil
}

func (r *byteReader) str() (string, error) {
	b, err := r.bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *byteReader) strs() ([]string, error) {
	n, err := r.u64()
	if err != nil {
		return nil, err
	}
	if n > lengthCap {
		return nil, fmt.Errorf("protocol: sequence length %d exceeds cap %d: %w", n, lengthCap, ErrOversize)
	}
	out := make([]string, 0, n)
	for i := uint64(0); i < n; i++ {
		s, err := r.str()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *byteReader) i16s() ([]int16, error) {
	n, err := r.u64()
	if err != nil {
		return nil, err
	}
	if n > lengthCap {
		return nil, fmt.Errorf("protocol: sequence length %d exceeds cap %d: %w", n, lengthCap, ErrOversize)
	}
	out := make([]int16, 0, n)
	for i := uint64(0); i < n; i++ {
		v, err := r.i16()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Marshal serializes a Message into its self-describing binary body (the
// bytes that go after the length prefix applied by the framing layer).
func Marshal(m Message) ([]byte, error) {
	w := &byteWriter{}
	w.u64(m.ID)
	tag := m.Payload.Tag()
	w.u8(uint8(tag))

	switch p := m.Payload.(type) {
	case Init, Deinit, Unload, Reset, Run, RunResponse, SystemInfoRequest, AVInfoRequest,
		APIVersionRequest, PollInput:
		// no payload fields
	case Load:
		w.str(p.Path)
	case SystemInfoResponse:
		writeSystemInfo(w, p.Info)
	case AVInfoResponse:
		writeAVInfo(w, p.Info)
	case APIVersionResponse:
		w.u32(p.Version)
	case VideoRefresh:
		w.bool(p.Software != nil)
		if p.Software != nil {
			w.u32(p.Software.Width)
			w.u32(p.Software.Height)
			w.bytes(p.Software.Framebuffer)
		}
	case AudioSample:
		w.i16s(p.Samples)
	case InputState:
		w.u32(p.Port)
		w.u32(p.Device)
		w.u32(p.Index)
		w.u32(p.ID)
	case InputResponse:
		w.i16(p.Value)
	case SetVariables:
		w.u64(uint64(len(p.Variables)))
		for _, v := range p.Variables {
			w.str(v.Key)
			w.str(v.Description)
			w.strs(v.Options)
			w.str(v.Default)
		}
	case GetVariable:
		w.str(p.Key)
	case GetVariableResponse:
		w.bool(p.Value != nil)
		if p.Value != nil {
			w.str(*p.Value)
		}
	case Unsupported:
		w.u8(uint8(p.For))
	default:
		return nil, fmt.Errorf("protocol: marshal: unhandled payload type %T", m.Payload)
	}
	return w.buf, nil
}

func writeSystemInfo(w *byteWriter, info SystemInfo) {
	w.str(info.LibraryName)
	w.str(info.LibraryVersion)
	w.strs(info.ValidExtensions)
	w.bool(info.NeedFullpath)
	w.bool(info.BlockExtract)
}

func readSystemInfo(r *byteReader) (SystemInfo, error) {
	var info SystemInfo
	var err error
	if info.LibraryName, err = r.str(); err != nil {
		return info, err
	}
	if info.LibraryVersion, err = r.str(); err != nil {
		return info, err
	}
	if info.ValidExtensions, err = r.strs(); err != nil {
		return info, err
	}
	if info.NeedFullpath, err = r.boolean(); err != nil {
		return info, err
	}
	if info.BlockExtract, err = r.boolean(); err != nil {
		return info, err
	}
	return info, nil
}

func writeAVInfo(w *byteWriter, info AVInfo) {
	w.u32(info.BaseWidth)
	w.u32(info.BaseHeight)
	w.u32(info.MaxWidth)
	w.u32(info.MaxHeight)
	w.f32(info.AspectRatio)
	w.f64(info.FPS)
	w.f64(info.SampleRate)
}

func readAVInfo(r *byteReader) (AVInfo, error) {
	var info AVInfo
	var err error
	if info.BaseWidth, err = r.u32(); err != nil {
		return info, err
	}
	if info.BaseHeight, err = r.u32(); err != nil {
		return info, err
	}
	if info.MaxWidth, err = r.u32(); err != nil {
		return info, err
	}
	if info.MaxHeight, err = r.u32(); err != nil {
		return info, err
	}
	if info.AspectRatio, err = r.f32(); err != nil {
		return info, err
	}
	if info.FPS, err = r.f64(); err != nil {
		return info, err
	}
	if info.SampleRate, err = r.f64(); err != nil {
		return info, err
	}
	return info, nil
}

// Unmarshal deserializes a Message body produced by Marshal.
func Unmarshal(body []byte) (Message, error) {
	r := &byteReader{buf: body}
	id, err := r.u64()
	if err != nil {
		return Message{}, err
	}
	tagByte, err := r.u8()
	if err != nil {
		return Message{}, err
	}
	tag := Tag(tagByte)

	var payload Payload
	switch tag {
	case TagInit:
		payload = Init{}
	case TagDeinit:
		payload = Deinit{}
	case TagLoad:
		path, err := r.str()
		if err != nil {
			return Message{}, err
		}
		payload = Load{Path: path}
	case TagUnload:
		payload = Unload{}
	case TagReset:
		payload = Reset{}
	case TagRun:
		payload = Run{}
	case TagRunResponse:
		payload = RunResponse{}
	case TagSystemInfo:
		payload = SystemInfoRequest{}
	case TagSystemInfoResponse:
		info, err := readSystemInfo(r)
		if err != nil {
			return Message{}, err
		}
		payload = SystemInfoResponse{Info: info}
	case TagAVInfo:
		payload = AVInfoRequest{}
	case TagAVInfoResponse:
		info, err := readAVInfo(r)
		if err != nil {
			return Message{}, err
		}
		payload = AVInfoResponse{Info: info}
	case TagAPIVersion:
		payload = APIVersionRequest{}
	case TagAPIVersionResponse:
		v, err := r.u32()
		if err != nil {
			return Message{}, err
		}
		payload = APIVersionResponse{Version: v}
	case TagVideoRefresh:
		hasSoftware, err := r.boolean()
		if err != nil {
			return Message{}, err
		}
		vr := VideoRefresh{}
		if hasSoftware {
			width, err := r.u32()
			if err != nil {
				return Message{}, err
			}
			height, err := r.u32()
			if err != nil {
				return Message{}, err
			}
			fb, err := r.bytes()
			if err != nil {
				return Message{}, err
			}
			vr.Software = &SoftwareFrame{Framebuffer: fb, Width: width, Height: height}
		}
		payload = vr
	case TagAudioSample:
		samples, err := r.i16s()
		if err != nil {
			return Message{}, err
		}
		payload = AudioSample{Samples: samples}
	case TagPollInput:
		payload = PollInput{}
	case TagInputState:
		port, err := r.u32()
		if err != nil {
			return Message{}, err
		}
		device, err := r.u32()
		if err != nil {
			return Message{}, err
		}
		index, err := r.u32()
		if err != nil {
			return Message{}, err
		}
		id2, err := r.u32()
		if err != nil {
			return Message{}, err
		}
		payload = InputState{Port: port, Device: device, Index: index, ID: id2}
	case TagInputResponse:
		v, err := r.i16()
		if err != nil {
			return Message{}, err
		}
		payload = InputResponse{Value: v}
	case TagSetVariables:
		n, err := r.u64()
		if err != nil {
			return Message{}, err
		}
		if n > lengthCap {
			return Message{}, fmt.Errorf("protocol: sequence length %d exceeds cap %d: %w", n, lengthCap, ErrOversize)
		}
		vars := make([]Variable, 0, n)
		for i := uint64(0); i < n; i++ {
			key, err := r.str()
			if err != nil {
				return Message{}, err
			}
			desc, err := r.str()
			if err != nil {
				return Message{}, err
			}
			opts, err := r.strs()
			if err != nil {
				return Message{}, err
			}
			def, err := r.str()
			if err != nil {
				return Message{}, err
			}
			vars = append(vars, Variable{Key: key, Description: desc, Options: opts, Default: def})
		}
		payload = SetVariables{Variables: vars}
	case TagGetVariable:
		key, err := r.str()
		if err != nil {
			return Message{}, err
		}
		payload = GetVariable{Key: key}
	case TagGetVariableResponse:
		has, err := r.boolean()
		if err != nil {
			return Message{}, err
		}
		gv := GetVariableResponse{}
		if has {
			s, err := r.str()
			if err != nil {
				return Message{}, err
			}
			gv.Value = &s
		}
		payload = gv
	case TagUnsupported:
		forByte, err := r.u8()
		if err != nil {
			return Message{}, err
		}
		payload = Unsupported{For: Tag(forByte)}
	default:
		return Message{}, fmt.Errorf("%w: %d", ErrUnknownTag, tagByte)
	}

	return Message{ID: id, Payload: payload}, nil
}
