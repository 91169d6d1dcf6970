package core

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// cSystemInfo mirrors struct retro_system_info's layout: five pointer/bool
// fields, no padding surprises on the platforms purego supports.
type cSystemInfo struct {
	libraryName     uintptr
	libraryVersion  uintptr
	validExtensions uintptr
	needFullpath    bool
	blockExtract    bool
}

// cAVInfo mirrors the geometry+timing portion of struct retro_system_av_info.
type cAVInfo struct {
	baseWidth, baseHeight uint32
	maxWidth, maxHeight   uint32
	aspectRatio           float32
	_                     [4]byte // alignment padding before the timing struct
	fps                   float64
	sampleRate            float64
}

type cGameInfo struct {
	path uintptr
	data uintptr
	size uint64
	meta uintptr
}

// cVariable mirrors struct retro_variable: a key and, depending on the
// environment command, either a pipe-delimited description (SET_VARIABLES)
// or the current value (GET_VARIABLE).
type cVariable struct {
	key   uintptr
	value uintptr
}

// cDirectory mirrors the `const char **` out-parameter GET_SYSTEM_DIRECTORY
// and GET_SAVE_DIRECTORY pass: the handler writes a pointer to a
// backend-owned C string into *out.
type cDirectory struct {
	out uintptr
}

func cString(ptr uintptr) string {
	if ptr == 0 {
		return ""
	}
	var n int
	for {
		b := *(*byte)(unsafe.Pointer(ptr + uintptr(n)))
		if b == 0 {
			break
		}
		n++
	}
	return unsafe.String((*byte)(unsafe.Pointer(ptr)), n)
}

func newCString(s string) uintptr {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return uintptr(unsafe.Pointer(&b[0]))
}

// purego.NewCallback pins the Go func until the process exits, which
// outlives a core: no callback is ever unregistered, not even on Close.
type retroLibrary struct {
	handle uintptr

	retroInit                   func()
	retroDeinit                 func()
	retroAPIVersion             func() uint32
	retroGetSystemInfo          func(uintptr)
	retroGetSystemAVInfo        func(uintptr)
	retroSetEnvironment         func(uintptr)
	retroSetVideoRefresh        func(uintptr)
	retroSetAudioSample         func(uintptr)
	retroSetAudioSampleBatch    func(uintptr)
	retroSetInputPoll           func(uintptr)
	retroSetInputState          func(uintptr)
	retroReset                  func()
	retroRun                    func()
	retroLoadGame               func(uintptr) bool
	retroUnloadGame             func()

	mu        sync.Mutex
	callbacks []uintptr // kept alive for the library's lifetime
	strings   [][]byte  // C strings handed back to the core, kept alive the same way
}

// keepCString allocates a null-terminated copy of s and keeps it reachable
// for the library's lifetime, matching the native ABI's expectation that
// strings handed back through the environment callback (variable values,
// save/system directories) stay valid until deinit.
func (l *retroLibrary) keepCString(s string) uintptr {
	b := make([]byte, len(s)+1)
	copy(b, s)
	l.mu.Lock()
	l.strings = append(l.strings, b)
	l.mu.Unlock()
	return uintptr(unsafe.Pointer(&b[0]))
}

// PuregoLoader opens libretro cores as dynamic shared objects using
// github.com/ebitengine/purego, avoiding a cgo dependency in the host
// binary itself.
type PuregoLoader struct{}

func (PuregoLoader) Load(path string) (Library, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("core: dlopen %s: %w", path, err)
	}

	lib := &retroLibrary{handle: handle}
	purego.RegisterLibFunc(&lib.retroInit, handle, "retro_init")
	purego.RegisterLibFunc(&lib.retroDeinit, handle, "retro_deinit")
	purego.RegisterLibFunc(&lib.retroAPIVersion, handle, "retro_api_version")
	purego.RegisterLibFunc(&lib.retroGetSystemInfo, handle, "retro_get_system_info")
	purego.RegisterLibFunc(&lib.retroGetSystemAVInfo, handle, "retro_get_system_av_info")
	purego.RegisterLibFunc(&lib.retroSetEnvironment, handle, "retro_set_environment")
	purego.RegisterLibFunc(&lib.retroSetVideoRefresh, handle, "retro_set_video_refresh")
	purego.RegisterLibFunc(&lib.retroSetAudioSample, handle, "retro_set_audio_sample")
	purego.RegisterLibFunc(&lib.retroSetAudioSampleBatch, handle, "retro_set_audio_sample_batch")
	purego.RegisterLibFunc(&lib.retroSetInputPoll, handle, "retro_set_input_poll")
	purego.RegisterLibFunc(&lib.retroSetInputState, handle, "retro_set_input_state")
	purego.RegisterLibFunc(&lib.retroReset, handle, "retro_reset")
	purego.RegisterLibFunc(&lib.retroRun, handle, "retro_run")
	purego.RegisterLibFunc(&lib.retroLoadGame, handle, "retro_load_game")
	purego.RegisterLibFunc(&lib.retroUnloadGame, handle, "retro_unload_game")

	return lib, nil
}

func (l *retroLibrary) APIVersion() uint32 { return l.retroAPIVersion() }
func (l *retroLibrary) Init()              { l.retroInit() }
func (l *retroLibrary) Deinit()            { l.retroDeinit() }
func (l *retroLibrary) Reset()             { l.retroReset() }
func (l *retroLibrary) Run()               { l.retroRun() }
func (l *retroLibrary) UnloadGame()        { l.retroUnloadGame() }

func (l *retroLibrary) LoadGame(path string) bool {
	info := cGameInfo{path: newCString(path)}
	return l.retroLoadGame(uintptr(unsafe.Pointer(&info)))
}

func (l *retroLibrary) GetSystemInfo() SystemInfo {
	var c cSystemInfo
	l.retroGetSystemInfo(uintptr(unsafe.Pointer(&c)))
	var exts []string
	if c.validExtensions != 0 {
		raw := cString(c.validExtensions)
		start := 0
		for i := 0; i <= len(raw); i++ {
			if i == len(raw) || raw[i] == '|' {
				if i > start {
					exts = append(exts, raw[start:i])
				}
				start = i + 1
			}
		}
	}
	return SystemInfo{
		LibraryName:     cString(c.libraryName),
		LibraryVersion:  cString(c.libraryVersion),
		ValidExtensions: exts,
		NeedFullpath:    c.needFullpath,
		BlockExtract:    c.blockExtract,
	}
}

func (l *retroLibrary) GetSystemAVInfo() AVInfo {
	var c cAVInfo
	l.retroGetSystemAVInfo(uintptr(unsafe.Pointer(&c)))
	return AVInfo{
		BaseWidth: int(c.baseWidth), BaseHeight: int(c.baseHeight),
		MaxWidth: int(c.maxWidth), MaxHeight: int(c.maxHeight),
		AspectRatio: c.aspectRatio, FPS: c.fps, SampleRate: c.sampleRate,
	}
}

// keepCallback records a purego callback trampoline's pointer in the
// library's callbacks list, which lives as long as the library does.
func (l *retroLibrary) keepCallback(ptr uintptr) uintptr {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.callbacks = append(l.callbacks, ptr)
	return ptr
}

func (l *retroLibrary) SetEnvironment(fn EnvironmentFunc) {
	cb := purego.NewCallback(func(cmd uint32, data uintptr) bool {
		switch cmd {
		case EnvSetPixelFormat:
			if data == 0 {
				return false
			}
			return fn(cmd, PixelFormat(*(*int32)(unsafe.Pointer(data))))

		case EnvSetVariables:
			return fn(cmd, decodeVariableDefinitions(data))

		case EnvGetVariable:
			if data == 0 {
				return false
			}
			v := (*cVariable)(unsafe.Pointer(data))
			req := &GetVariableData{Key: cString(v.key)}
			ok := fn(cmd, req)
			if ok && req.Found {
				v.value = l.keepCString(req.Value)
			}
			return ok

		case EnvGetSystemDirectory, EnvGetSaveDirectory:
			if data == 0 {
				return false
			}
			out := (*cDirectory)(unsafe.Pointer(data))
			req := &DirectoryData{}
			ok := fn(cmd, req)
			if ok {
				out.out = l.keepCString(req.Path)
			}
			return ok

		default:
			return fn(cmd, data)
		}
	})
	l.retroSetEnvironment(l.keepCallback(cb))
}

// decodeVariableDefinitions reads a NULL-terminated array of retro_variable
// structs, the wire format for SET_VARIABLES, where the value field holds a
// human-readable description with pipe-delimited options baked in by
// convention: "Human readable name; default|opt2|opt3".
func decodeVariableDefinitions(data uintptr) []VariableDefinition {
	if data == 0 {
		return nil
	}
	var defs []VariableDefinition
	stride := unsafe.Sizeof(cVariable{})
	for i := 0; ; i++ {
		v := (*cVariable)(unsafe.Pointer(data + uintptr(i)*stride))
		if v.key == 0 {
			break
		}
		defs = append(defs, parseVariableDescription(cString(v.key), cString(v.value)))
	}
	return defs
}

func parseVariableDescription(key, desc string) VariableDefinition {
	name, optsPart := desc, ""
	if idx := strings.Index(desc, "; "); idx >= 0 {
		name, optsPart = desc[:idx], desc[idx+2:]
	}
	var opts []string
	if optsPart != "" {
		opts = strings.Split(optsPart, "|")
	}
	def := ""
	if len(opts) > 0 {
		def = opts[0]
	}
	return VariableDefinition{Key: key, Description: name, Options: opts, Default: def}
}

func (l *retroLibrary) SetVideoRefresh(fn VideoRefreshFunc) {
	cb := purego.NewCallback(func(data uintptr, width, height, pitch uint32) {
		if data == 0 {
			fn(nil, int(width), int(height), int(pitch))
			return
		}
		buf := unsafe.Slice((*byte)(unsafe.Pointer(data)), int(pitch)*int(height))
		fn(buf, int(width), int(height), int(pitch))
	})
	l.retroSetVideoRefresh(l.keepCallback(cb))
}

func (l *retroLibrary) SetAudioSample(fn AudioSampleFunc) {
	cb := purego.NewCallback(func(left, right int16) {
		fn(left, right)
	})
	l.retroSetAudioSample(l.keepCallback(cb))
}

func (l *retroLibrary) SetAudioSampleBatch(fn AudioSampleBatchFunc) {
	cb := purego.NewCallback(func(data uintptr, frames uint64) uint64 {
		samples := unsafe.Slice((*int16)(unsafe.Pointer(data)), int(frames)*2)
		return uint64(fn(samples))
	})
	l.retroSetAudioSampleBatch(l.keepCallback(cb))
}

func (l *retroLibrary) SetInputPoll(fn InputPollFunc) {
	cb := purego.NewCallback(func() { fn() })
	l.retroSetInputPoll(l.keepCallback(cb))
}

func (l *retroLibrary) SetInputState(fn InputStateFunc) {
	cb := purego.NewCallback(func(port, device, index, id uint32) int16 {
		return fn(int(port), int(device), int(index), int(id))
	})
	l.retroSetInputState(l.keepCallback(cb))
}

func (l *retroLibrary) Close() error {
	return purego.Dlclose(l.handle)
}
